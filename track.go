package nbswave

import (
	"context"
	"time"

	intenc "github.com/OpenNBS/nbswave/internal/encode"
)

// Track is a finalized 16-bit PCM render. Data is interleaved and every
// value fits the int16 range.
type Track struct {
	Data       []int
	SampleRate int
	Channels   int

	// ClippingFactor is how far the mix exceeded full scale before
	// finalization; 1 or less means nothing was clipped or normalized.
	ClippingFactor float64
}

// Frames returns the track length in sample frames.
func (t *Track) Frames() int {
	if t.Channels == 0 {
		return 0
	}
	return len(t.Data) / t.Channels
}

// Duration returns the track length as wall-clock time.
func (t *Track) Duration() time.Duration {
	if t.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(t.Frames()) / float64(t.SampleRate) * float64(time.Second))
}

// FadeOut applies a linear fade over the final d of the track, in
// place.
func (t *Track) FadeOut(d time.Duration) {
	frames := t.Frames()
	fadeFrames := int(d.Seconds() * float64(t.SampleRate))
	if fadeFrames <= 0 {
		return
	}
	if fadeFrames > frames {
		fadeFrames = frames
	}
	start := frames - fadeFrames
	for f := start; f < frames; f++ {
		gain := float64(frames-f) / float64(fadeFrames+1)
		for ch := 0; ch < t.Channels; ch++ {
			i := f*t.Channels + ch
			t.Data[i] = int(float64(t.Data[i]) * gain)
		}
	}
}

// Save writes the track to path, inferring the container format from
// the file extension. Everything except WAV goes through the external
// encoder.
func (t *Track) Save(path string) error {
	return t.Export(context.Background(), path, "", 320)
}

// Export writes the track to path in the given format (empty = infer
// from path) at the given bitrate for lossy formats. Encoder failures
// surface as *EncoderError.
func (t *Track) Export(ctx context.Context, path, format string, bitrateKbps int) error {
	if format == "" {
		format = intenc.FormatFromPath(path)
	}
	pcm := intenc.PCM{Data: t.Data, Rate: t.SampleRate, Channels: t.Channels}
	if err := intenc.Write(ctx, path, format, pcm, bitrateKbps); err != nil {
		return &EncoderError{Format: format, Err: err}
	}
	return nil
}
