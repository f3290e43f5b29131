// Package espeak synthesizes speech locally with the espeak-ng command line
// tool. It needs no network and is meant as the last resort voice.
package espeak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/koscakluka/ema-voice/core/texttospeech"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const scopeName = "github.com/koscakluka/ema-voice/core/texttospeech/espeak"

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

const (
	defaultBinary = "espeak-ng"
	defaultVoice  = "en-us"
	defaultSpeed  = 170
)

type Synthesizer struct {
	binary string
	voice  string
	speed  int
}

type Option func(*Synthesizer)

// WithBinary sets the executable, either a name on PATH or a full path.
func WithBinary(binary string) Option {
	return func(s *Synthesizer) { s.binary = binary }
}

func WithVoice(voice string) Option {
	return func(s *Synthesizer) { s.voice = voice }
}

// WithSpeed sets the speaking rate in words per minute.
func WithSpeed(wordsPerMinute int) Option {
	return func(s *Synthesizer) {
		if wordsPerMinute > 0 {
			s.speed = wordsPerMinute
		}
	}
}

func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{binary: defaultBinary, voice: defaultVoice, speed: defaultSpeed}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) Name() string {
	return "espeak"
}

// Available reports whether the binary can be found.
func (s *Synthesizer) Available() bool {
	_, err := exec.LookPath(s.binary)
	return err == nil
}

// Synthesize returns a WAV container with the spoken text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*texttospeech.SynthesisResult, error) {
	ctx, span := tracer.Start(ctx, "espeak synthesize")
	defer span.End()
	span.SetAttributes(attribute.String("request.voice", s.voice))

	text = strings.TrimSpace(text)
	if text == "" {
		err := errors.New("nothing to say")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.binary,
		"--stdout",
		"-v", s.voice,
		"-s", strconv.Itoa(s.speed),
		"--", text,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		err = fmt.Errorf("%s failed: %w: %s", s.binary, err, strings.TrimSpace(stderr.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if stdout.Len() == 0 {
		err := fmt.Errorf("%s produced no audio", s.binary)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.DebugContext(ctx, "local speech synthesized", "bytes", stdout.Len())
	return &texttospeech.SynthesisResult{Data: stdout.Bytes(), Encoding: texttospeech.EncodingCompressed}, nil
}
