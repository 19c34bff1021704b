// Package mix accumulates note waveforms into a sample-accurate
// timeline buffer. Accumulation happens at int16 scale inside an int64
// buffer, so any number of overlapping notes fits without wrapping;
// finalization hard-clips to the 16-bit range. Because integer addition
// commutes, partial mixers built in parallel merge to a bit-identical
// result regardless of worker count or completion order.
package mix

import "math"

const (
	fullScale = 32767
	minSample = -32768
)

// Mixer owns a growable accumulation buffer for one render.
type Mixer struct {
	rate     int
	channels int
	buf      []int64
}

// New returns an empty mixer for the given output format.
func New(rate, channels int) *Mixer {
	return &Mixer{rate: rate, channels: channels}
}

// NewWithCapacity pre-sizes the buffer for the given number of frames.
func NewWithCapacity(rate, channels, frames int) *Mixer {
	m := New(rate, channels)
	if frames > 0 {
		m.buf = make([]int64, frames*channels)
	}
	return m
}

// Frames returns the current buffer length in frames.
func (m *Mixer) Frames() int {
	return len(m.buf) / m.channels
}

// Overlay adds an interleaved float waveform (unit scale) into the
// buffer starting at the given frame, quantizing each sample once. The
// buffer grows as needed.
func (m *Mixer) Overlay(data []float64, startFrame int) {
	if startFrame < 0 {
		startFrame = 0
	}
	start := startFrame * m.channels
	end := start + len(data)
	if end > len(m.buf) {
		grown := make([]int64, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	for i, v := range data {
		m.buf[start+i] += int64(math.Round(v * fullScale))
	}
}

// Merge folds another mixer's buffer into this one.
func (m *Mixer) Merge(other *Mixer) {
	if len(other.buf) > len(m.buf) {
		grown := make([]int64, len(other.buf))
		copy(grown, m.buf)
		m.buf = grown
	}
	for i, v := range other.buf {
		m.buf[i] += v
	}
}

// Finalize reduces the accumulation buffer to 16-bit-range samples.
// Out-of-range values are hard-clipped. When normalize is set and the
// mix clips, the whole signal is scaled down to peak at full scale
// instead (the clipping factor is returned either way; 1 means the mix
// never left the representable range).
func (m *Mixer) Finalize(normalize bool) ([]int, float64) {
	var peak int64
	for _, v := range m.buf {
		if v > peak {
			peak = v
		}
		if -v > peak {
			peak = -v
		}
	}
	factor := float64(peak) / fullScale
	out := make([]int, len(m.buf))
	if normalize && factor > 1 {
		for i, v := range m.buf {
			out[i] = int(math.Round(float64(v) / factor))
		}
		return out, factor
	}
	for i, v := range m.buf {
		switch {
		case v > fullScale:
			out[i] = fullScale
		case v < minSample:
			out[i] = minSample
		default:
			out[i] = int(v)
		}
	}
	return out, factor
}
