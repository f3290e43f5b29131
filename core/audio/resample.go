package audio

import "math"

// Resample converts interleaved samples between sample rates using linear
// interpolation. For every output frame i the source position is i/ratio,
// where ratio = to/from, and the value is interpolated between the floor and
// ceil source frames (the ceil is clamped to the last frame).
func Resample(samples []int16, channels, from, to int) []int16 {
	if channels <= 0 {
		channels = 1
	}
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return samples
	}

	inFrames := len(samples) / channels
	if inFrames == 0 {
		return nil
	}

	ratio := float64(to) / float64(from)
	outFrames := int(math.Round(float64(inFrames) * ratio))
	out := make([]int16, outFrames*channels)
	for i := range outFrames {
		position := float64(i) / ratio
		lower := int(math.Floor(position))
		if lower > inFrames-1 {
			lower = inFrames - 1
		}
		upper := lower + 1
		if upper > inFrames-1 {
			upper = inFrames - 1
		}
		fraction := position - float64(lower)

		for ch := range channels {
			a := float64(samples[lower*channels+ch])
			b := float64(samples[upper*channels+ch])
			out[i*channels+ch] = clampSample(a + (b-a)*fraction)
		}
	}

	return out
}

// Remix converts interleaved samples between channel layouts. Downmixing
// averages every source channel, upmixing copies the mono signal to every
// output channel.
func Remix(samples []int16, from, to int) []int16 {
	if from <= 0 || to <= 0 || from == to {
		return samples
	}

	frames := len(samples) / from
	out := make([]int16, frames*to)
	for i := range frames {
		var sum float64
		for ch := range from {
			sum += float64(samples[i*from+ch])
		}
		mono := clampSample(sum / float64(from))
		for ch := range to {
			if from > 1 && to > 1 && ch < from {
				out[i*to+ch] = samples[i*from+ch]
				continue
			}
			out[i*to+ch] = mono
		}
	}
	return out
}

// Convert remixes and resamples a clip to match the target encoding.
func Convert(clip *Clip, target EncodingInfo) *Clip {
	if clip == nil {
		return nil
	}

	samples := clip.Samples
	channels := clip.Channels
	if targetChannels := target.ChannelCount(); targetChannels != channels {
		samples = Remix(samples, channels, targetChannels)
		channels = targetChannels
	}

	sampleRate := clip.SampleRate
	if target.SampleRate > 0 && target.SampleRate != sampleRate {
		samples = Resample(samples, channels, sampleRate, target.SampleRate)
		sampleRate = target.SampleRate
	}

	return &Clip{ID: clip.ID, Samples: samples, SampleRate: sampleRate, Channels: channels}
}

func clampSample(value float64) int16 {
	value = math.Round(value)
	if value > math.MaxInt16 {
		return math.MaxInt16
	}
	if value < math.MinInt16 {
		return math.MinInt16
	}
	return int16(value)
}
