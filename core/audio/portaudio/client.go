// Package portaudio provides the default speaker and microphone through
// PortAudio blocking streams.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-voice/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-voice/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)

const DefaultFramesPerBuffer = 320

// Client writes playback audio on a background goroutine and opens capture
// streams on request. It implements playback.Output and audio.Microphone.
type Client struct {
	sampleRate      int
	framesPerBuffer int

	stream *portaudio.Stream
	out    []int16

	audioMu sync.Mutex
	pending []int16

	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}
}

func NewClient(sampleRate, framesPerBuffer int) (*Client, error) {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	out := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), framesPerBuffer, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio output stream: %w", audio.ClassifyDeviceError(err))
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start PortAudio output stream: %w", audio.ClassifyDeviceError(err))
	}

	c := &Client{
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		stream:          stream,
		out:             out,
		closeCh:         make(chan struct{}),
		done:            make(chan struct{}),
	}
	go c.writeLoop()
	return c, nil
}

// writeLoop feeds the output stream one buffer at a time. Write blocks at the
// device rate, and gaps are filled with silence.
func (c *Client) writeLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		c.audioMu.Lock()
		n := copy(c.out, c.pending)
		c.pending = c.pending[n:]
		c.audioMu.Unlock()
		clear(c.out[n:])

		if err := c.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			logger.Warn("failed to write to PortAudio stream", "error", err)
		}
	}
}

func (c *Client) SendAudio(data []byte) error {
	select {
	case <-c.closeCh:
		return errors.New("client closed")
	default:
	}

	samples := audio.BytesToSamples(data)
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.pending = append(c.pending, samples...)
	return nil
}

func (c *Client) ClearBuffer() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.pending = c.pending[:0]
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: c.sampleRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}
}

// Acquire opens the default input device.
func (c *Client) Acquire(ctx context.Context) (audio.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := make([]int16, c.framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), c.framesPerBuffer, in)
	if err != nil {
		return nil, audio.ClassifyDeviceError(err)
	}

	return &captureStream{
		stream:   stream,
		in:       in,
		encoding: c.EncodingInfo(),
	}, nil
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		<-c.done
		_ = c.stream.Stop()
		_ = c.stream.Close()
		_ = portaudio.Terminate()
	})
}

type captureStream struct {
	stream   *portaudio.Stream
	in       []int16
	encoding audio.EncodingInfo

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func (s *captureStream) Start(onAudio func([]byte), onFailure func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio input stream: %w", audio.ClassifyDeviceError(err))
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.readLoop(s.stopCh, s.done, onAudio, onFailure)
	return nil
}

func (s *captureStream) readLoop(stopCh, done chan struct{}, onAudio func([]byte), onFailure func(error)) {
	defer close(done)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			select {
			case <-stopCh:
				return
			default:
			}
			logger.Warn("PortAudio input stream failed", "error", err)
			if onFailure != nil {
				onFailure(errors.Join(audio.ErrDeviceLost, err))
			}
			return
		}

		onAudio(audio.SamplesToBytes(s.in))
	}
}

func (s *captureStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	s.running = false
	close(s.stopCh)
	<-s.done
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop PortAudio input stream: %w", err)
	}
	return nil
}

func (s *captureStream) Release() error {
	if err := s.Stop(); err != nil {
		logger.Debug("failed to stop input stream before release", "error", err)
	}
	return s.stream.Close()
}

func (s *captureStream) EncodingInfo() audio.EncodingInfo {
	return s.encoding
}
