package nbswave

import (
	"testing"
	"time"
)

func flatTrack(frames, value int) *Track {
	data := make([]int, frames*2)
	for i := range data {
		data[i] = value
	}
	return &Track{Data: data, SampleRate: 100, Channels: 2}
}

func TestTrackDuration(t *testing.T) {
	track := flatTrack(250, 0)
	if track.Frames() != 250 {
		t.Fatalf("frames = %d, want 250", track.Frames())
	}
	if got := track.Duration(); got != 2500*time.Millisecond {
		t.Fatalf("duration = %v, want 2.5s", got)
	}
}

func TestTrackFadeOut(t *testing.T) {
	track := flatTrack(100, 10000)
	track.FadeOut(500 * time.Millisecond)

	// First half untouched.
	if track.Data[0] != 10000 || track.Data[49*2] != 10000 {
		t.Fatalf("fade touched samples before its window")
	}
	// Inside the window the gain ramps down monotonically to near zero.
	prev := 10001
	for f := 50; f < 100; f++ {
		v := track.Data[f*2]
		if v >= prev {
			t.Fatalf("gain not decreasing at frame %d: %d >= %d", f, v, prev)
		}
		if v != track.Data[f*2+1] {
			t.Fatalf("channels diverge at frame %d", f)
		}
		prev = v
	}
	if last := track.Data[99*2]; last < 0 || last > 1000 {
		t.Fatalf("final sample = %d, want near zero", last)
	}
}

func TestTrackFadeLongerThanTrack(t *testing.T) {
	track := flatTrack(10, 10000)
	track.FadeOut(time.Minute)
	if track.Data[0] >= 10000 {
		t.Fatalf("fade covering the whole track must attenuate frame 0")
	}
	if track.Data[9*2] >= track.Data[0] {
		t.Fatalf("fade must still ramp down")
	}
}
