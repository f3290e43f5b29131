package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/koscakluka/ema-voice/core/llms"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultModel = "gpt-4o-mini"

// Client generates replies with the OpenAI chat completions API, or any
// server compatible with it.
type Client struct {
	client       openaisdk.Client
	model        string
	instructions string
}

type clientOptions struct {
	apiKey       string
	baseURL      string
	model        string
	instructions string
}

type ClientOption func(*clientOptions)

func WithAPIKey(apiKey string) ClientOption {
	return func(o *clientOptions) { o.apiKey = apiKey }
}

func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithInstructions sets the system prompt.
func WithInstructions(instructions string) ClientOption {
	return func(o *clientOptions) { o.instructions = instructions }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	options := clientOptions{model: defaultModel}
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
	}
	if options.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(options.baseURL))
	}

	return &Client{
		client:       openaisdk.NewClient(requestOptions...),
		model:        options.model,
		instructions: options.instructions,
	}, nil
}

func (c *Client) GenerateReply(ctx context.Context, history []llms.Turn, contextNote string) (string, error) {
	ctx, span := tracer.Start(ctx, "generate reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.Int("request.turns", len(history)),
	)

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    c.model,
		Messages: toMessages(c.instructions, history, contextNote),
	})
	if err != nil {
		err = fmt.Errorf("chat completion failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("chat completion returned no choices")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(
		attribute.Int64("usage.prompt", resp.Usage.PromptTokens),
		attribute.Int64("usage.completion", resp.Usage.CompletionTokens),
	)
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	logger.DebugContext(ctx, "reply generated", "length", len(reply))
	return reply, nil
}

func toMessages(instructions string, history []llms.Turn, contextNote string) []openaisdk.ChatCompletionMessageParamUnion {
	messages := []openaisdk.ChatCompletionMessageParamUnion{}
	if instructions != "" {
		messages = append(messages, openaisdk.SystemMessage(instructions))
	}
	for _, msg := range llms.ToMessages(history, contextNote) {
		if msg.Role == llms.SpeakerAssistant {
			messages = append(messages, openaisdk.AssistantMessage(msg.Content))
			continue
		}
		messages = append(messages, openaisdk.UserMessage(msg.Content))
	}
	return messages
}
