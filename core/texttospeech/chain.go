package texttospeech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Attempt records how a single provider call went.
type Attempt struct {
	Provider string
	Duration time.Duration
	Err      error
}

// Outcome is what the chain produced. Exactly one of Result or LocalFallback
// is set.
type Outcome struct {
	Result   *SynthesisResult
	Provider string
	// LocalFallback signals that every provider failed and the caller should
	// use its local synthesizer.
	LocalFallback bool
	Attempts      []Attempt
}

// Err joins the errors of every failed attempt.
func (o Outcome) Err() error {
	var errs []error
	for _, attempt := range o.Attempts {
		if attempt.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", attempt.Provider, attempt.Err))
		}
	}
	return errors.Join(errs...)
}

// Chain tries providers strictly in priority order and stops at the first
// success.
type Chain struct {
	providers []Provider
	timeout   time.Duration

	failures metric.Int64Counter
}

func NewChain(opts ...ChainOption) *Chain {
	options := ChainOptions{ProviderTimeout: DefaultProviderTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	failures, err := meter.Int64Counter("texttospeech.provider_failures",
		metric.WithDescription("Number of failed synthesis provider attempts"))
	if err != nil {
		logger.Warn("failed to create provider failure counter", "error", err)
	}

	return &Chain{
		providers: options.Providers,
		timeout:   options.ProviderTimeout,
		failures:  failures,
	}
}

// Synthesize returns the first provider result or a local fallback signal.
// The only error it returns is the cancellation of ctx.
func (c *Chain) Synthesize(ctx context.Context, text string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(attribute.Int("text.length", len(text)))

	outcome := Outcome{}
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return outcome, err
		}

		start := time.Now()
		result, err := c.attempt(ctx, provider, text)
		attempt := Attempt{Provider: provider.Name(), Duration: time.Since(start), Err: err}
		outcome.Attempts = append(outcome.Attempts, attempt)
		if err == nil {
			outcome.Result = result
			outcome.Provider = provider.Name()
			span.SetAttributes(attribute.String("synthesis.provider", provider.Name()))
			return outcome, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			span.RecordError(ctxErr)
			return outcome, ctxErr
		}

		logger.InfoContext(ctx, "synthesis provider failed, falling through",
			"provider", provider.Name(), "error", err, "duration", attempt.Duration)
		if c.failures != nil {
			c.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider.Name())))
		}
	}

	outcome.LocalFallback = true
	if err := outcome.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "all synthesis providers failed")
	}
	return outcome, nil
}

// ProviderTimeout is the bound applied to each provider attempt.
func (c *Chain) ProviderTimeout() time.Duration {
	return c.timeout
}

func (c *Chain) attempt(ctx context.Context, provider Provider, text string) (result *SynthesisResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("provider panicked: %v", recovered)
		}
	}()

	result, err = provider.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Data) == 0 {
		return nil, fmt.Errorf("provider returned no audio")
	}
	return result, nil
}
