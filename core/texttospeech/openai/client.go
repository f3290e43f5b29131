package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/koscakluka/ema-voice/core/texttospeech"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultModel = "gpt-4o-mini-tts"
	defaultVoice = "alloy"
)

// TextToSpeechClient synthesizes MP3 speech through the OpenAI audio API.
type TextToSpeechClient struct {
	client openaisdk.Client
	model  string
	voice  string
}

type clientOptions struct {
	apiKey  string
	baseURL string
	model   string
	voice   string
}

type ClientOption func(*clientOptions)

func WithAPIKey(apiKey string) ClientOption {
	return func(o *clientOptions) { o.apiKey = apiKey }
}

// WithBaseURL points the client at an OpenAI compatible server.
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

func WithModel(model string) ClientOption {
	return func(o *clientOptions) { o.model = model }
}

func WithVoice(voice string) ClientOption {
	return func(o *clientOptions) { o.voice = voice }
}

func NewTextToSpeechClient(opts ...ClientOption) (*TextToSpeechClient, error) {
	options := clientOptions{model: defaultModel, voice: defaultVoice}
	for _, opt := range opts {
		opt(&options)
	}

	if options.apiKey == "" {
		options.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if options.apiKey == "" {
		return nil, fmt.Errorf("openai api key not found")
	}

	requestOptions := []option.RequestOption{
		option.WithAPIKey(options.apiKey),
		option.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
		// Falling through to the next provider beats retrying this one.
		option.WithMaxRetries(0),
	}
	if options.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(options.baseURL))
	}

	return &TextToSpeechClient{
		client: openaisdk.NewClient(requestOptions...),
		model:  options.model,
		voice:  options.voice,
	}, nil
}

func (c *TextToSpeechClient) Name() string {
	return "openai"
}

func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string) (*texttospeech.SynthesisResult, error) {
	ctx, span := tracer.Start(ctx, "openai synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.String("request.voice", c.voice),
	)

	resp, err := c.client.Audio.Speech.New(ctx, openaisdk.AudioSpeechNewParams{
		Model:          openaisdk.SpeechModel(c.model),
		Input:          text,
		Voice:          openaisdk.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: openaisdk.AudioSpeechNewParamsResponseFormat("mp3"),
	})
	if err != nil {
		err = fmt.Errorf("speech request failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read speech audio: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.bytes", len(data)))
	logger.DebugContext(ctx, "openai speech synthesized", "bytes", len(data))
	return &texttospeech.SynthesisResult{Data: data, Encoding: texttospeech.EncodingCompressed}, nil
}
