package deepgram

import (
	"fmt"
	"os"
	"slices"
)

const (
	defaultEndpoint   = "wss://api.deepgram.com/v1/speak"
	defaultSampleRate = 24000
)

// TextToSpeechClient synthesizes speech over the Deepgram speak websocket.
// It returns headerless linear16 mono audio.
type TextToSpeechClient struct {
	apiKey     string
	endpoint   string
	voice      deepgramVoice
	sampleRate int
}

type ClientOption func(*TextToSpeechClient)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *TextToSpeechClient) { c.apiKey = apiKey }
}

// WithEndpoint overrides the websocket URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TextToSpeechClient) { c.endpoint = endpoint }
}

func WithVoice(voice deepgramVoice) ClientOption {
	return func(c *TextToSpeechClient) { c.voice = voice }
}

func WithSampleRate(sampleRate int) ClientOption {
	return func(c *TextToSpeechClient) {
		if sampleRate > 0 {
			c.sampleRate = sampleRate
		}
	}
}

func NewTextToSpeechClient(opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		endpoint:   defaultEndpoint,
		voice:      defaultVoice,
		sampleRate: defaultSampleRate,
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

	if !slices.Contains(GetAvailableVoices(), client.voice) {
		return nil, fmt.Errorf("invalid voice %q", client.voice)
	}

	return client, nil
}

func (c *TextToSpeechClient) Name() string {
	return "deepgram"
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}
