// Package audio holds the sample model shared by the renderer: decoded
// PCM kept as interleaved float64 frames in [-1, 1], plus the format
// conversions (rate, channels, pitch, gain, pan) applied per note.
package audio

import "math"

// Sample is a decoded sound, interleaved by channel.
type Sample struct {
	Data     []float64
	Channels int
	Rate     int
}

// Frames returns the number of sample frames (per-channel samples).
func (s *Sample) Frames() int {
	if s.Channels == 0 {
		return 0
	}
	return len(s.Data) / s.Channels
}

// Clone returns a deep copy of the sample.
func (s *Sample) Clone() *Sample {
	out := &Sample{
		Data:     make([]float64, len(s.Data)),
		Channels: s.Channels,
		Rate:     s.Rate,
	}
	copy(out.Data, s.Data)
	return out
}

// Sync converts a sample to the given rate and channel count. The input
// is not modified; the result may share no data with it.
func Sync(s *Sample, rate, channels int) *Sample {
	out := s
	if out.Channels != channels {
		out = convertChannels(out, channels)
	}
	if out.Rate != rate {
		step := float64(out.Rate) / float64(rate)
		converted := Resample(out, step)
		converted.Rate = rate
		out = converted
	}
	if out == s {
		out = s.Clone()
	}
	return out
}

// Gain returns a copy of s with every sample scaled by g.
func Gain(s *Sample, g float64) *Sample {
	out := s.Clone()
	for i := range out.Data {
		out.Data[i] *= g
	}
	return out
}

// EqualPowerPan returns left/right gains for a pan position in [-1, 1].
// Center sits at -3 dB on both channels.
func EqualPowerPan(p float64) (float64, float64) {
	if p < -1 {
		p = -1
	}
	if p > 1 {
		p = 1
	}
	theta := (p + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}

// Pan applies the equal-power pan law to a stereo sample. Mono samples
// are passed through untouched; pan only makes sense with two channels.
func Pan(s *Sample, p float64) *Sample {
	if s.Channels != 2 {
		return s.Clone()
	}
	l, r := EqualPowerPan(p)
	out := s.Clone()
	for i := 0; i+1 < len(out.Data); i += 2 {
		out.Data[i] *= l
		out.Data[i+1] *= r
	}
	return out
}

func convertChannels(s *Sample, channels int) *Sample {
	frames := s.Frames()
	out := &Sample{
		Data:     make([]float64, frames*channels),
		Channels: channels,
		Rate:     s.Rate,
	}
	switch {
	case s.Channels == 1 && channels == 2:
		for i := 0; i < frames; i++ {
			v := s.Data[i]
			out.Data[i*2] = v
			out.Data[i*2+1] = v
		}
	case s.Channels == 2 && channels == 1:
		for i := 0; i < frames; i++ {
			out.Data[i] = (s.Data[i*2] + s.Data[i*2+1]) / 2
		}
	default:
		// General case: average source channels, copy to all targets.
		for i := 0; i < frames; i++ {
			var sum float64
			for ch := 0; ch < s.Channels; ch++ {
				sum += s.Data[i*s.Channels+ch]
			}
			v := sum / float64(s.Channels)
			for ch := 0; ch < channels; ch++ {
				out.Data[i*channels+ch] = v
			}
		}
	}
	return out
}
