package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

type captureStream struct {
	device   *malgo.Device
	encoding audio.EncodingInfo

	mu        sync.Mutex
	onAudio   func(audio []byte)
	onFailure func(error)
	stopping  bool
	failOnce  sync.Once
}

func (c *captureStream) init(audioContext *malgo.AllocatedContext) error {
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * c.encoding.ChannelCount()

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(c.encoding.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(c.encoding.ChannelCount())
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.mu.Lock()
			onAudio := c.onAudio
			c.mu.Unlock()
			if onAudio != nil {
				onAudio(pInput[:n])
			}
		},
		Stop: c.deviceStopped,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.device = device
	return nil
}

// deviceStopped reports a stop the stream did not ask for as a lost device.
func (c *captureStream) deviceStopped() {
	c.mu.Lock()
	stopping := c.stopping
	onFailure := c.onFailure
	c.mu.Unlock()

	if stopping || onFailure == nil {
		return
	}
	c.failOnce.Do(func() {
		logger.Warn("capture device stopped unexpectedly")
		go onFailure(audio.ErrDeviceLost)
	})
}

func (c *captureStream) Start(onAudio func(audio []byte), onFailure func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errors.New("device not initialized")
	} else if c.device.IsStarted() {
		return nil
	}

	c.onAudio = onAudio
	c.onFailure = onFailure
	c.stopping = false
	if err := c.device.Start(); err != nil {
		c.onAudio = nil
		return fmt.Errorf("failed to start capture device: %w", audio.ClassifyDeviceError(err))
	}
	return nil
}

func (c *captureStream) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errors.New("device not initialized")
	} else if !c.device.IsStarted() {
		return nil
	}

	c.stopping = true
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}

	c.onAudio = nil
	return nil
}

func (c *captureStream) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopping = true
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	c.onAudio = nil
	c.onFailure = nil
	return nil
}

func (c *captureStream) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}
