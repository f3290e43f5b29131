package texttospeech

import "time"

// DefaultProviderTimeout bounds a single provider attempt.
const DefaultProviderTimeout = 4 * time.Second

type ChainOptions struct {
	Providers       []Provider
	ProviderTimeout time.Duration
}

type ChainOption func(*ChainOptions)

// WithProviders sets the providers in priority order.
func WithProviders(providers ...Provider) ChainOption {
	return func(o *ChainOptions) {
		o.Providers = append(o.Providers, providers...)
	}
}

func WithProviderTimeout(timeout time.Duration) ChainOption {
	return func(o *ChainOptions) {
		if timeout <= 0 {
			return
		}
		o.ProviderTimeout = timeout
	}
}
