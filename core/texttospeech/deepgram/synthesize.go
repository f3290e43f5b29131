package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = textMessage{Type: "Flush"}
	closeMsg = textMessage{Type: "Close"}
)

func speakMsg(text string) textMessage {
	return textMessage{Type: "Speak", Text: text}
}

// Synthesize opens a speak socket, sends the whole text followed by a flush
// and collects audio until the server confirms the flush.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string) (*texttospeech.SynthesisResult, error) {
	ctx, span := tracer.Start(ctx, "deepgram synthesize")
	defer span.End()
	span.SetAttributes(attribute.String("request.voice", c.voice.String()))

	data, err := c.synthesize(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.bytes", len(data)))
	return &texttospeech.SynthesisResult{
		Data:         data,
		Encoding:     texttospeech.EncodingPCM16Mono,
		SampleRateHz: c.sampleRate,
	}, nil
}

func (c *TextToSpeechClient) synthesize(ctx context.Context, text string) ([]byte, error) {
	conn, err := c.connectWebsocket(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			// Unblocks the read loop below.
			_ = conn.Close()
		case <-stop:
		}
	}()

	for _, msg := range []textMessage{speakMsg(text), flushMsg} {
		if err := conn.WriteJSON(msg); err != nil {
			return nil, fmt.Errorf("failed to send %s message: %w", msg.Type, err)
		}
	}

	var audio []byte
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("websocket read failed: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			audio = append(audio, msg...)
		case websocket.TextMessage:
			var parsedMsg struct {
				Type        string `json:"type"`
				Description string `json:"description"`
				ErrMsg      string `json:"err_msg"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.DebugContext(ctx, "failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				if err := conn.WriteJSON(closeMsg); err != nil {
					logger.DebugContext(ctx, "failed to close deepgram stream", "error", err)
				}
				if len(audio) == 0 {
					return nil, errors.New("deepgram returned no audio")
				}
				return audio, nil
			case "Error":
				return nil, fmt.Errorf("deepgram error: %s %s", parsedMsg.Description, parsedMsg.ErrMsg)
			case "Warning":
				logger.WarnContext(ctx, "deepgram warning", "description", parsedMsg.Description)
			}
		}
	}
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context) (*websocket.Conn, error) {
	speakURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	urlValues := speakURL.Query()
	urlValues.Set("encoding", "linear16")
	urlValues.Set("sample_rate", strconv.Itoa(c.sampleRate))
	urlValues.Set("model", c.voice.String())
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}
