package audio

import "math"

// PitchRatio converts a semitone offset into a playback-speed ratio.
func PitchRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// Resample stretches or squeezes a sample by reading the input at the
// given step per output frame, using linear interpolation between
// neighboring input frames. Output length is round(frames/step). A step
// of exactly 1 is a pass-through copy.
func Resample(s *Sample, step float64) *Sample {
	if step == 1 {
		return s.Clone()
	}
	inFrames := s.Frames()
	outFrames := int(math.Round(float64(inFrames) / step))
	out := &Sample{
		Data:     make([]float64, outFrames*s.Channels),
		Channels: s.Channels,
		Rate:     s.Rate,
	}
	if inFrames == 0 || outFrames == 0 {
		return out
	}
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		i0 := int(pos)
		if i0 >= inFrames {
			i0 = inFrames - 1
		}
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}
		frac := pos - float64(i0)
		for ch := 0; ch < s.Channels; ch++ {
			a := s.Data[i0*s.Channels+ch]
			b := s.Data[i1*s.Channels+ch]
			out.Data[i*s.Channels+ch] = a*(1-frac) + b*frac
		}
	}
	return out
}
