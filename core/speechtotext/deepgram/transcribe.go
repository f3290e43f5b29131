package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/internal/utils"
	"go.opentelemetry.io/otel/attribute"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/listen"

// TranscriptionClient is a speechtotext.Recognizer backed by the Deepgram
// live transcription websocket. Audio is fed through SendAudio.
type TranscriptionClient struct {
	apiKey       string
	endpoint     string
	model        string
	language     string
	encodingInfo audio.EncodingInfo

	mu     sync.Mutex
	stream *transcriptionStream
}

type ClientOption func(*TranscriptionClient)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

// WithEndpoint overrides the websocket URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TranscriptionClient) { c.endpoint = endpoint }
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) { c.language = language }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *TranscriptionClient) {
		if !encodingInfo.IsZero() {
			c.encodingInfo = encodingInfo
		}
	}
}

func NewTranscriptionClient(opts ...ClientOption) (*TranscriptionClient, error) {
	client := &TranscriptionClient{
		endpoint:     defaultEndpoint,
		model:        "nova-3",
		language:     "en-US",
		encodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		client.apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if client.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}
	if _, err := convertEncoding(client.encodingInfo); err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	return client, nil
}

type transcriptionStream struct {
	conn   *websocket.Conn
	connMu sync.Mutex
	emit   func(speechtotext.Event)

	lastMsgTs   atomic.Int64
	stopped     atomic.Bool
	accumulated string
	// unendedSegment is set between a speech start and the matching final.
	unendedSegment bool
	stateMu        sync.Mutex
}

func (s *TranscriptionClient) Start(ctx context.Context, emit func(speechtotext.Event)) error {
	ctx, span := tracer.Start(ctx, "open deepgram transcription")
	defer span.End()

	encoding, err := convertEncoding(s.encodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := s.connectWebsocket(ctx, encoding)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.String("request.model", s.model))

	stream := &transcriptionStream{conn: conn, emit: emit}
	stream.lastMsgTs.Store(time.Now().UnixNano())

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	emit(speechtotext.Started{})
	go stream.readAndProcessMessages(ctx, s.encodingInfo)
	return nil
}

func (s *TranscriptionClient) connectWebsocket(ctx context.Context, encoding *encodingInfo) (*websocket.Conn, error) {
	listenUrl, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	queryParams := listenUrl.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", s.model)
	queryParams.Set("language", s.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenUrl.RawQuery = queryParams.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &speechtotext.Failure{Kind: speechtotext.FailureUnknown,
				Err: fmt.Errorf("deepgram rejected credentials: %s", resp.Status)}
		}
		return nil, &speechtotext.Failure{Kind: speechtotext.FailureNetwork,
			Err: fmt.Errorf("failed to open socket connection to deepgram: %w", err)}
	}

	return conn, nil
}

// SendAudio forwards captured audio to the active stream.
func (s *TranscriptionClient) SendAudio(audio []byte) error {
	stream := s.currentStream()
	if stream == nil {
		return nil
	}

	stream.lastMsgTs.Store(time.Now().UnixNano())
	return stream.write(websocket.BinaryMessage, audio)
}

// Stop asks Deepgram to finish the stream. The read loop emits Ended once
// the server closes the socket.
func (s *TranscriptionClient) Stop() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()
	if stream == nil {
		return nil
	}

	stream.stopped.Store(true)
	if err := stream.writeJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		_ = stream.conn.Close()
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) currentStream() *transcriptionStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

func (s *transcriptionStream) write(messageType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *transcriptionStream) writeJSON(msg any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *transcriptionStream) readAndProcessMessages(ctx context.Context, encoding audio.EncodingInfo) {
	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()

	go s.generateSilence(silenceCtx, encoding)
	go func() {
		<-silenceCtx.Done()
		if ctx.Err() != nil {
			_ = s.conn.Close()
		}
	}()

	defer s.emit(speechtotext.Ended{})
	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			_ = s.conn.Close()
			switch {
			case s.stopped.Load(), ctx.Err() != nil:
				s.emit(speechtotext.Failed{Kind: speechtotext.FailureAborted, Err: err})
			case websocket.IsCloseError(err, websocket.CloseNormalClosure):
			default:
				logger.Warn("failed to read deepgram websocket message", "error", err)
				s.emit(speechtotext.Failed{Kind: speechtotext.FailureNetwork, Err: err})
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg)
		}
	}
}

func (s *transcriptionStream) processMessage(msg []byte) {
	var parsedMsg struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Debug("failed to unmarshal deepgram message", "error", err)
		return
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Debug("failed to unmarshal deepgram results", "error", err)
			return
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if !msgResp.IsFinal {
			if transcript != "" {
				s.emit(speechtotext.InterimActivity{Text: strings.TrimSpace(s.accumulated + " " + transcript)})
			}
			return
		}

		if transcript != "" {
			s.accumulated = strings.TrimSpace(s.accumulated + " " + transcript)
		}
		if msgResp.SpeechFinal {
			s.onSpeechEnded()
		}

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment {
			s.onSpeechEnded()
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true

	default:
		if parsedMsg.Type == "Error" {
			s.emit(speechtotext.Failed{Kind: speechtotext.FailureUnknown, Err: errors.New(parsedMsg.Description)})
		}
	}
}

func (s *transcriptionStream) onSpeechEnded() {
	s.unendedSegment = false
	transcript := s.accumulated
	s.accumulated = ""

	if transcript == "" {
		s.emit(speechtotext.Failed{Kind: speechtotext.FailureNoSpeech})
		return
	}
	s.emit(speechtotext.FinalResult{Text: transcript})
}

// generateSilence keeps the socket alive while no audio is flowing: short
// gaps are padded with silence so endpointing still fires, longer ones fall
// back to KeepAlive messages.
func (s *transcriptionStream) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const durationMs = 50
	const milisecondsPerSecond = 1000
	ticker := time.NewTicker(durationMs * time.Millisecond)
	defer ticker.Stop()

	chunk := make([]byte, encoding.SampleRate*encoding.Format.ByteSize()*durationMs/milisecondsPerSecond)
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	sinceLastAudio := func() time.Duration {
		return time.Since(time.Unix(0, s.lastMsgTs.Load()))
	}

	var state = silenceGeneratorStateWaiting
	var firstSilenceTime *time.Time
	var lastKeepAliveTime *time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch state {
			case silenceGeneratorStateWaiting:
				if sinceLastAudio() > durationMs*time.Millisecond {
					state = silenceGeneratorStateSilence
					firstSilenceTime = utils.Ptr(time.Now())
				}

			case silenceGeneratorStateSilence:
				if sinceLastAudio() < durationMs*time.Millisecond {
					state = silenceGeneratorStateWaiting
					firstSilenceTime = nil
					continue
				}
				if time.Since(*firstSilenceTime) >= time.Second {
					state = silenceGeneratorStateKeepAlive
					lastKeepAliveTime = utils.Ptr(time.Now())
					firstSilenceTime = nil
					continue
				}

				if err := s.write(websocket.BinaryMessage, chunk); err != nil {
					logger.Debug("sending silence audio failed", "error", err)
				}

			case silenceGeneratorStateKeepAlive:
				if sinceLastAudio() < durationMs*time.Millisecond {
					state = silenceGeneratorStateWaiting
					continue
				}

				if time.Since(*lastKeepAliveTime) >= 5*time.Second {
					lastKeepAliveTime = utils.Ptr(time.Now())
					if err := s.writeJSON(struct {
						Type string `json:"type"`
					}{Type: "KeepAlive"}); err != nil {
						logger.Debug("sending keep alive failed", "error", err)
					}
				}
			}
		}
	}
}
