package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koscakluka/ema-voice/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type requestBody struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Content      string  `json:"content,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalTokens      int     `json:"total_tokens"`
		TotalTime        float64 `json:"total_time"`
	} `json:"usage"`
}

// GenerateReply streams a chat completion and returns the collected text.
func (c *Client) GenerateReply(ctx context.Context, history []llms.Turn, contextNote string) (string, error) {
	ctx, span := tracer.Start(ctx, "generate reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.Int("request.turns", len(history)),
	)

	reply, err := c.generateReply(ctx, history, contextNote, func(started time.Time) {
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(started).Seconds()))
		span.AddEvent("received first chunk")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("response.length", len(reply)))
	return reply, nil
}

func (c *Client) generateReply(ctx context.Context, history []llms.Turn, contextNote string, onFirstChunk func(time.Time)) (string, error) {
	requestBodyBytes, err := json.Marshal(requestBody{
		Model:    c.model,
		Messages: toMessages(c.instructions, history, contextNote),
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	requestStarted := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, strings.TrimSpace(string(errorBody)))
	}

	var response strings.Builder
	firstChunk := true
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))
		if len(chunk) == 0 {
			continue
		}
		if chunk == endMessage {
			break
		}
		if firstChunk {
			firstChunk = false
			onFirstChunk(requestStarted)
		}

		var responseBody streamingResponseBody
		if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
			logger.DebugContext(ctx, "skipping malformed chunk", "error", err)
			continue
		}
		if len(responseBody.Choices) > 0 {
			response.WriteString(responseBody.Choices[0].Delta.Content)
		}
		if responseBody.Usage != nil {
			logger.DebugContext(ctx, "reply usage",
				"prompt_tokens", responseBody.Usage.PromptTokens,
				"completion_tokens", responseBody.Usage.CompletionTokens,
				"total_time", responseBody.Usage.TotalTime)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading streamed response: %w", err)
	}

	return strings.TrimSpace(response.String()), nil
}
