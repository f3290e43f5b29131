package audio

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// Clip is decoded, playable audio. Samples are signed 16-bit and interleaved
// when Channels > 1.
type Clip struct {
	ID         string
	Samples    []int16
	SampleRate int
	Channels   int
}

func NewClip(samples []int16, sampleRate, channels int) *Clip {
	if channels <= 0 {
		channels = 1
	}
	return &Clip{
		ID:         uuid.NewString(),
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Frames returns the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c == nil || c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

func (c *Clip) IsEmpty() bool {
	return c == nil || c.Frames() == 0
}

// EncodingInfo describes the clip in device terms.
func (c *Clip) EncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: c.SampleRate, Channels: c.Channels, Format: EncodingLinear16}
}

// BytesToSamples interprets little-endian linear16 bytes. A trailing odd byte
// is dropped.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian linear16.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(sample))
	}
	return data
}
