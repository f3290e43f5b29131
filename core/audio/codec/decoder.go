package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Decoder turns synthesis results into playable clips by trying an ordered
// list of strategies and stopping at the first one that yields audio.
type Decoder struct {
	strategies []Strategy
}

type DecoderOption func(*Decoder)

// WithStrategies replaces the default strategy order.
func WithStrategies(strategies ...Strategy) DecoderOption {
	return func(d *Decoder) {
		d.strategies = strategies
	}
}

// NewDecoder probes compressed containers before falling back to raw PCM16
// mono at DefaultPCMSampleRate.
func NewDecoder(opts ...DecoderOption) *Decoder {
	decoder := &Decoder{
		strategies: []Strategy{WAV(), MP3(), PCM16Mono(DefaultPCMSampleRate)},
	}
	for _, opt := range opts {
		opt(decoder)
	}
	return decoder
}

// Decode returns the clip produced by the first successful strategy. The
// encoding tag on the result is informational only; every strategy is tried
// in order regardless of it.
func (d *Decoder) Decode(ctx context.Context, result *texttospeech.SynthesisResult) (*audio.Clip, error) {
	ctx, span := tracer.Start(ctx, "decode synthesis result")
	defer span.End()

	if result == nil || len(result.Data) == 0 {
		err := fmt.Errorf("nothing to decode")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("result.bytes", len(result.Data)),
		attribute.String("result.encoding", string(result.Encoding)),
	)

	var errs []error
	for _, strategy := range d.strategies {
		clip, err := strategy.Decode(result)
		if err == nil && clip.IsEmpty() {
			err = fmt.Errorf("decoded no samples")
		}
		if err != nil {
			if !errors.Is(err, ErrUnrecognizedFormat) {
				logger.DebugContext(ctx, "decode strategy failed, trying next",
					"strategy", strategy.Name(), "error", err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}

		span.SetAttributes(
			attribute.String("clip.strategy", strategy.Name()),
			attribute.Int("clip.sample_rate", clip.SampleRate),
			attribute.Int("clip.channels", clip.Channels),
		)
		return clip, nil
	}

	err := fmt.Errorf("no decode strategy succeeded: %w", errors.Join(errs...))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// DecodeFor decodes and converts the clip to the target device format.
func (d *Decoder) DecodeFor(ctx context.Context, result *texttospeech.SynthesisResult, target audio.EncodingInfo) (*audio.Clip, error) {
	clip, err := d.Decode(ctx, result)
	if err != nil {
		return nil, err
	}

	if target.IsZero() {
		return clip, nil
	}
	return audio.Convert(clip, target), nil
}
