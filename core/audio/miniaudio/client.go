// Package miniaudio provides the default speaker and microphone through
// miniaudio.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

// Client owns a miniaudio context with one playback device and hands out
// capture streams on request. It implements playback.Output and
// audio.Microphone.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	options      clientOptions
	playbackClient
}

type clientOptions struct {
	playbackRate int
	captureRate  int
}

type ClientOption func(*clientOptions)

func WithPlaybackSampleRate(rate int) ClientOption {
	return func(o *clientOptions) {
		if rate > 0 {
			o.playbackRate = rate
		}
	}
}

func WithCaptureSampleRate(rate int) ClientOption {
	return func(o *clientOptions) {
		if rate > 0 {
			o.captureRate = rate
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	options := clientOptions{
		playbackRate: audio.DefaultSampleRate,
		captureRate:  audio.DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(&options)
	}

	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
		options:      options,
	}

	if err := client.playbackClient.Init(audioCtx, options.playbackRate); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", audio.ClassifyDeviceError(err))
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", audio.ClassifyDeviceError(err))
	}

	return &client, nil
}

// Acquire opens the default capture device. The returned stream must be
// released before the client is closed.
func (c *Client) Acquire(ctx context.Context) (audio.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream := &captureStream{encoding: audio.EncodingInfo{
		SampleRate: c.options.captureRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}}
	if err := stream.init(c.audioContext); err != nil {
		return nil, audio.ClassifyDeviceError(err)
	}
	return stream, nil
}

func (c *Client) Close() {
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: c.options.playbackRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}
}
