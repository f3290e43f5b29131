package texttospeech

import "context"

// Encoding is the format a provider claims its bytes are in. Providers do
// not always report it correctly, so decoders treat it as a hint.
type Encoding string

const (
	EncodingPCM16Mono  Encoding = "pcm16-mono"
	EncodingCompressed Encoding = "compressed"
)

// SynthesisResult is provider output before decoding.
type SynthesisResult struct {
	Data     []byte
	Encoding Encoding
	// SampleRateHz is set when the provider declares a rate for raw PCM.
	SampleRateHz int
}

// Provider turns text into audio bytes. Calls must be independent of each
// other; implementations keep no per-call state.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string) (*SynthesisResult, error)
}
