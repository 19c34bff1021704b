package mix

import (
	"reflect"
	"testing"
)

func TestOverlayPlacesAtOffset(t *testing.T) {
	m := New(44100, 2)
	m.Overlay([]float64{0.5, -0.5}, 3)
	data, factor := m.Finalize(false)
	if factor > 1 {
		t.Fatalf("unexpected clipping factor %v", factor)
	}
	if len(data) != 8 {
		t.Fatalf("buffer length = %d, want 8", len(data))
	}
	if data[6] != 16384 || data[7] != -16384 {
		t.Fatalf("samples at offset: %v", data[6:])
	}
	for _, v := range data[:6] {
		if v != 0 {
			t.Fatalf("leading samples must stay silent: %v", data)
		}
	}
}

func TestOverlayGrowsBuffer(t *testing.T) {
	m := NewWithCapacity(44100, 2, 2)
	m.Overlay([]float64{1, 1}, 10)
	if m.Frames() != 11 {
		t.Fatalf("frames = %d, want 11", m.Frames())
	}
}

func TestOverlayAccumulates(t *testing.T) {
	m := New(44100, 1)
	m.Overlay([]float64{0.25}, 0)
	m.Overlay([]float64{0.25}, 0)
	data, _ := m.Finalize(false)
	// Each overlay quantizes to round(0.25*32767) = 8192.
	want := 2 * 8192
	if data[0] != want {
		t.Fatalf("accumulated sample = %d, want %d", data[0], want)
	}
}

func TestFinalizeHardClipsNotWraps(t *testing.T) {
	m := New(44100, 1)
	m.Overlay([]float64{1, -1}, 0)
	m.Overlay([]float64{1, -1}, 0)
	data, factor := m.Finalize(false)
	if factor <= 1 {
		t.Fatalf("expected clipping factor above 1, got %v", factor)
	}
	if data[0] != fullScale {
		t.Fatalf("positive overflow must clip to %d, got %d", fullScale, data[0])
	}
	if data[1] != minSample {
		t.Fatalf("negative overflow must clip to %d, got %d", minSample, data[1])
	}
}

func TestFinalizeNormalize(t *testing.T) {
	m := New(44100, 1)
	m.Overlay([]float64{1}, 0)
	m.Overlay([]float64{1}, 0)
	data, factor := m.Finalize(true)
	if factor <= 1 {
		t.Fatalf("expected clipping factor above 1, got %v", factor)
	}
	if data[0] != fullScale {
		t.Fatalf("normalized peak = %d, want %d", data[0], fullScale)
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	build := func(order []int) []int {
		parts := make([]*Mixer, 3)
		for i := range parts {
			parts[i] = New(44100, 1)
		}
		parts[0].Overlay([]float64{0.1, 0.2}, 0)
		parts[1].Overlay([]float64{0.3}, 1)
		parts[2].Overlay([]float64{0.4, 0.5, 0.6}, 2)
		final := New(44100, 1)
		for _, i := range order {
			final.Merge(parts[i])
		}
		data, _ := final.Finalize(false)
		return data
	}
	a := build([]int{0, 1, 2})
	b := build([]int{2, 0, 1})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("merge must be order independent:\n%v\n%v", a, b)
	}
}

func TestMergeGrows(t *testing.T) {
	a := New(44100, 1)
	a.Overlay([]float64{0.1}, 0)
	b := New(44100, 1)
	b.Overlay([]float64{0.2}, 5)
	a.Merge(b)
	if a.Frames() != 6 {
		t.Fatalf("frames after merge = %d, want 6", a.Frames())
	}
}
