package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/texttospeech"
)

// DefaultPCMSampleRate is assumed for raw PCM that does not declare a rate.
const DefaultPCMSampleRate = 24000

var ErrUnrecognizedFormat = errors.New("unrecognized audio format")

// Strategy decodes bytes under one format assumption. Strategies for
// containers must return ErrUnrecognizedFormat instead of guessing when the
// bytes do not carry their signature.
type Strategy interface {
	Name() string
	Decode(result *texttospeech.SynthesisResult) (*audio.Clip, error)
}

type wavStrategy struct{}

// WAV decodes RIFF/WAVE containers with integer PCM payloads.
func WAV() Strategy { return wavStrategy{} }

func (wavStrategy) Name() string { return "wav" }

func (wavStrategy) Decode(result *texttospeech.SynthesisResult) (*audio.Clip, error) {
	data := result.Data
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrUnrecognizedFormat
	}

	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav header: %w", ErrUnrecognizedFormat)
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}
	if buffer == nil || buffer.Format == nil {
		return nil, fmt.Errorf("wav has no format chunk")
	}

	shift := int(decoder.BitDepth) - 16
	samples := make([]int16, len(buffer.Data))
	for i, value := range buffer.Data {
		switch {
		case decoder.BitDepth == 8:
			samples[i] = int16((value - 128) << 8)
		case shift > 0:
			samples[i] = int16(value >> shift)
		default:
			samples[i] = int16(value)
		}
	}

	return audio.NewClip(samples, buffer.Format.SampleRate, buffer.Format.NumChannels), nil
}

type mp3Strategy struct{}

// MP3 decodes MPEG-1/2 Layer III streams, with or without an ID3 tag.
func MP3() Strategy { return mp3Strategy{} }

func (mp3Strategy) Name() string { return "mp3" }

func (mp3Strategy) Decode(result *texttospeech.SynthesisResult) (*audio.Clip, error) {
	if !looksLikeMP3(result.Data) {
		return nil, ErrUnrecognizedFormat
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(result.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil && len(pcm) == 0 {
		return nil, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}

	// go-mp3 always produces interleaved 16-bit stereo.
	return audio.NewClip(audio.BytesToSamples(pcm), decoder.SampleRate(), 2), nil
}

type pcm16MonoStrategy struct {
	sampleRate int
}

// PCM16Mono treats the bytes as headerless little-endian 16-bit mono samples.
// The rate declared on the result wins over sampleRate.
func PCM16Mono(sampleRate int) Strategy {
	if sampleRate <= 0 {
		sampleRate = DefaultPCMSampleRate
	}
	return pcm16MonoStrategy{sampleRate: sampleRate}
}

func (pcm16MonoStrategy) Name() string { return "pcm16-mono" }

func (s pcm16MonoStrategy) Decode(result *texttospeech.SynthesisResult) (*audio.Clip, error) {
	if len(result.Data) < 2 {
		return nil, fmt.Errorf("not enough bytes for a single sample")
	}

	sampleRate := s.sampleRate
	if result.SampleRateHz > 0 {
		sampleRate = result.SampleRateHz
	}

	return audio.NewClip(audio.BytesToSamples(result.Data), sampleRate, 1), nil
}

var (
	mpeg1Bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1}
	mpeg2Bitrates = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1}

	mpegSampleRates = map[byte][3]int{
		3: {44100, 48000, 32000},
		2: {22050, 24000, 16000},
		0: {11025, 12000, 8000},
	}
)

func looksLikeMP3(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}

	frameLength, ok := mp3FrameLength(data)
	if !ok {
		return false
	}
	if len(data) < frameLength+4 {
		return len(data) >= frameLength
	}

	_, ok = mp3FrameLength(data[frameLength:])
	return ok
}

// mp3FrameLength parses a Layer III frame header at the start of data.
func mp3FrameLength(data []byte) (int, bool) {
	if len(data) < 4 || data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		return 0, false
	}

	version := (data[1] >> 3) & 0x03
	layer := (data[1] >> 1) & 0x03
	if version == 1 || layer != 1 {
		return 0, false
	}

	bitrateIndex := data[2] >> 4
	sampleRateIndex := (data[2] >> 2) & 0x03
	padding := int((data[2] >> 1) & 0x01)
	if bitrateIndex == 0 || bitrateIndex == 15 || sampleRateIndex == 3 {
		return 0, false
	}

	sampleRate := mpegSampleRates[version][sampleRateIndex]
	if version == 3 {
		return 144000*mpeg1Bitrates[bitrateIndex]/sampleRate + padding, true
	}
	return 72000*mpeg2Bitrates[bitrateIndex]/sampleRate + padding, true
}
