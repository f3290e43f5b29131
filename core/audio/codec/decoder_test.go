package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/texttospeech"
)

func sineSamples(count int) []int16 {
	samples := make([]int16, count)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/24000))
	}
	return samples
}

func wavBytes(samples []int16, sampleRate, channels int) []byte {
	data := audio.SamplesToBytes(samples)
	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

type recordingStrategy struct {
	name  string
	clip  *audio.Clip
	err   error
	order *[]string
}

func (s recordingStrategy) Name() string { return s.name }

func (s recordingStrategy) Decode(*texttospeech.SynthesisResult) (*audio.Clip, error) {
	*s.order = append(*s.order, s.name)
	return s.clip, s.err
}

func TestDecodeFallsBackToRawPCM(t *testing.T) {
	samples := sineSamples(2400)
	result := &texttospeech.SynthesisResult{Data: audio.SamplesToBytes(samples), Encoding: texttospeech.EncodingCompressed}

	clip, err := NewDecoder().Decode(context.Background(), result)
	if err != nil {
		t.Fatalf("expected raw pcm fallback to succeed, got %v", err)
	}

	if clip.SampleRate != DefaultPCMSampleRate || clip.Channels != 1 {
		t.Fatalf("expected %dHz mono, got %dHz %d channels", DefaultPCMSampleRate, clip.SampleRate, clip.Channels)
	}
	if len(clip.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(clip.Samples))
	}
	for i := range samples {
		if clip.Samples[i] != samples[i] {
			t.Fatalf("expected sample %d to be %d, got %d", i, samples[i], clip.Samples[i])
		}
	}
}

func TestDecodeForResamplesRawPCMWithinTolerance(t *testing.T) {
	samples := sineSamples(2400)
	result := &texttospeech.SynthesisResult{Data: audio.SamplesToBytes(samples), Encoding: texttospeech.EncodingPCM16Mono}

	clip, err := NewDecoder().DecodeFor(context.Background(), result,
		audio.EncodingInfo{SampleRate: 48000, Channels: 1, Format: audio.EncodingLinear16})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if clip.SampleRate != 48000 {
		t.Fatalf("expected 48000Hz, got %d", clip.SampleRate)
	}
	back := audio.Resample(clip.Samples, 1, 48000, DefaultPCMSampleRate)
	if diff := len(back) - len(samples); diff > 1 || diff < -1 {
		t.Fatalf("expected round trip to keep %d samples, got %d", len(samples), len(back))
	}
}

func TestDecodeHonoursDeclaredSampleRate(t *testing.T) {
	result := &texttospeech.SynthesisResult{Data: audio.SamplesToBytes(sineSamples(160)), SampleRateHz: 16000}

	clip, err := NewDecoder().Decode(context.Background(), result)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Fatalf("expected declared 16000Hz rate, got %d", clip.SampleRate)
	}
}

func TestDecodeReadsWAVBeforeRawPCM(t *testing.T) {
	samples := sineSamples(1000)
	result := &texttospeech.SynthesisResult{Data: wavBytes(samples, 22050, 1), Encoding: texttospeech.EncodingPCM16Mono}

	clip, err := NewDecoder().Decode(context.Background(), result)
	if err != nil {
		t.Fatalf("expected wav decode to succeed, got %v", err)
	}

	if clip.SampleRate != 22050 {
		t.Fatalf("expected wav header rate 22050, got %d", clip.SampleRate)
	}
	if len(clip.Samples) != len(samples) {
		t.Fatalf("expected header bytes to be excluded, got %d samples", len(clip.Samples))
	}
}

func TestDecodeTriesStrategiesInOrderAndStopsAtFirstSuccess(t *testing.T) {
	order := []string{}
	decoder := NewDecoder(WithStrategies(
		recordingStrategy{name: "first", err: ErrUnrecognizedFormat, order: &order},
		recordingStrategy{name: "second", clip: audio.NewClip([]int16{}, 24000, 1), order: &order},
		recordingStrategy{name: "third", clip: audio.NewClip([]int16{1, 2}, 24000, 1), order: &order},
		recordingStrategy{name: "fourth", clip: audio.NewClip([]int16{3, 4}, 24000, 1), order: &order},
	))

	clip, err := decoder.Decode(context.Background(), &texttospeech.SynthesisResult{Data: []byte{0, 0}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if clip.Samples[0] != 1 {
		t.Fatalf("expected clip from third strategy, got %v", clip.Samples)
	}
	expected := []string{"first", "second", "third"}
	if len(order) != len(expected) {
		t.Fatalf("expected strategies %v, got %v", expected, order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("expected strategies %v, got %v", expected, order)
		}
	}
}

func TestDecodeFailsWhenEveryStrategyFails(t *testing.T) {
	_, err := NewDecoder().Decode(context.Background(), &texttospeech.SynthesisResult{Data: []byte{7}})
	if err == nil {
		t.Fatalf("expected an error for a single byte")
	}

	_, err = NewDecoder().Decode(context.Background(), &texttospeech.SynthesisResult{})
	if err == nil {
		t.Fatalf("expected an error for empty data")
	}
}

func TestMP3StrategyRejectsRawPCM(t *testing.T) {
	result := &texttospeech.SynthesisResult{Data: audio.SamplesToBytes(sineSamples(2400))}
	if _, err := MP3().Decode(result); !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("expected raw pcm to be unrecognized, got %v", err)
	}
}

func TestLooksLikeMP3(t *testing.T) {
	// MPEG-1 Layer III, 128kbps, 44.1kHz: 417 byte frames.
	header := []byte{0xFF, 0xFB, 0x90, 0x00}

	twoFrames := make([]byte, 417*2)
	copy(twoFrames, header)
	copy(twoFrames[417:], header)
	if !looksLikeMP3(twoFrames) {
		t.Fatalf("expected consecutive frames to be detected")
	}

	brokenSecondFrame := make([]byte, 417*2)
	copy(brokenSecondFrame, header)
	if looksLikeMP3(brokenSecondFrame) {
		t.Fatalf("expected a lone sync word followed by garbage to be rejected")
	}

	if !looksLikeMP3([]byte("ID3\x04\x00")) {
		t.Fatalf("expected id3 tagged stream to be detected")
	}

	if looksLikeMP3([]byte{0xFF, 0xFF, 0x90, 0x00}) {
		t.Fatalf("expected layer I header to be rejected")
	}
}
