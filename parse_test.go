package nbswave

import (
	"errors"
	"reflect"
	"testing"
)

func testSongV5() *Song {
	return &Song{
		Header: Header{
			Version:                5,
			VanillaInstrumentCount: 16,
			Name:                   "Test Song",
			Author:                 "someone",
			Description:            "fixture",
			Tempo:                  10,
			TimeSignature:          4,
			Loop:                   true,
			MaxLoopCount:           2,
			LoopStartTick:          4,
		},
		Notes: []Note{
			{Tick: 0, Layer: 0, Instrument: 0, Key: 45, Velocity: 100},
			{Tick: 0, Layer: 1, Instrument: 1, Key: 57, Velocity: 80, Panning: -25},
			{Tick: 4, Layer: 0, Instrument: 16, Key: 33, Velocity: 100, Pitch: -150},
			{Tick: 9, Layer: 2, Instrument: 0, Key: 50, Velocity: 50, Panning: 100, Pitch: 25},
		},
		Layers: []Layer{
			{Name: "melody", Volume: 100},
			{Name: "bass", Volume: 75, Panning: -50},
			{Name: "drums", Volume: 100, Panning: 100, Lock: true},
		},
		Instruments: []Instrument{
			{Name: "Custom", File: "custom.wav", Key: 45, PressKey: true},
		},
	}
}

func TestParseRoundTrip(t *testing.T) {
	want := testSongV5()
	got, err := Parse(Encode(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// The writer fills in the computed song length.
	want.Header.Length = 9
	if !reflect.DeepEqual(got.Header, want.Header) {
		t.Fatalf("header mismatch:\ngot  %+v\nwant %+v", got.Header, want.Header)
	}
	if !reflect.DeepEqual(got.Notes, want.Notes) {
		t.Fatalf("notes mismatch:\ngot  %+v\nwant %+v", got.Notes, want.Notes)
	}
	if !reflect.DeepEqual(got.Layers, want.Layers) {
		t.Fatalf("layers mismatch:\ngot  %+v\nwant %+v", got.Layers, want.Layers)
	}
	if !reflect.DeepEqual(got.Instruments, want.Instruments) {
		t.Fatalf("instruments mismatch:\ngot  %+v\nwant %+v", got.Instruments, want.Instruments)
	}
}

func TestParseRoundTripClassic(t *testing.T) {
	song := &Song{
		Header: Header{Version: 0, VanillaInstrumentCount: 10, Tempo: 20.15},
		Notes: []Note{
			{Tick: 2, Layer: 0, Instrument: 3, Key: 40, Velocity: 100},
			{Tick: 5, Layer: 1, Instrument: 0, Key: 60, Velocity: 100},
		},
		Layers: []Layer{{Name: "a", Volume: 100}, {Name: "b", Volume: 50}},
	}
	got, err := Parse(Encode(song))
	if err != nil {
		t.Fatalf("parse classic: %v", err)
	}
	if got.Header.Version != 0 || got.Header.VanillaInstrumentCount != 10 {
		t.Fatalf("header: %+v", got.Header)
	}
	if got.Header.Length != 5 {
		t.Fatalf("length = %d, want 5", got.Header.Length)
	}
	if got.Header.Tempo != 20.15 {
		t.Fatalf("tempo = %v, want 20.15", got.Header.Tempo)
	}
	if !reflect.DeepEqual(got.Notes, song.Notes) {
		t.Fatalf("notes mismatch: %+v", got.Notes)
	}
	// Classic layers carry no panning byte.
	if got.Layers[1].Volume != 50 || got.Layers[1].Panning != 0 {
		t.Fatalf("layers mismatch: %+v", got.Layers)
	}
}

func TestEncodeTempoRounding(t *testing.T) {
	// The stored tempo is ticks/sec x100 in a u16. Products like
	// 20.15*100 sit just below the integer in float64, so the encoder
	// must round, not truncate.
	for _, tempo := range []float64{20.15, 10.25, 8.31, 19.99, 0.01, 655.35} {
		song := testSongV5()
		song.Header.Tempo = tempo
		got, err := Parse(Encode(song))
		if err != nil {
			t.Fatalf("parse (tempo %v): %v", tempo, err)
		}
		if got.Header.Tempo != tempo {
			t.Fatalf("tempo = %v, want %v", got.Header.Tempo, tempo)
		}
	}
}

func TestParseVersion1DefaultsNoteFields(t *testing.T) {
	song := &Song{
		Header: Header{Version: 1, VanillaInstrumentCount: 16, Tempo: 10},
		Notes:  []Note{{Tick: 0, Layer: 0, Instrument: 0, Key: 45, Velocity: 100}},
		Layers: []Layer{{Name: "l", Volume: 100}},
	}
	got, err := Parse(Encode(song))
	if err != nil {
		t.Fatalf("parse v1: %v", err)
	}
	n := got.Notes[0]
	if n.Velocity != 100 || n.Panning != 0 || n.Pitch != 0 {
		t.Fatalf("v1 note defaults: %+v", n)
	}
}

func TestParseTickDeltaAccumulation(t *testing.T) {
	song := &Song{
		Header: Header{Version: 5, VanillaInstrumentCount: 16, Tempo: 10},
		Notes: []Note{
			{Tick: 3, Layer: 2, Instrument: 0, Key: 45, Velocity: 100},
			{Tick: 3, Layer: 5, Instrument: 1, Key: 46, Velocity: 100},
			{Tick: 1000, Layer: 0, Instrument: 2, Key: 47, Velocity: 100},
		},
		Layers: make([]Layer, 6),
	}
	for i := range song.Layers {
		song.Layers[i].Volume = 100
	}
	got, err := Parse(Encode(song))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got.Notes) != 3 {
		t.Fatalf("note count = %d, want 3", len(got.Notes))
	}
	ticks := []int{got.Notes[0].Tick, got.Notes[1].Tick, got.Notes[2].Tick}
	if ticks[0] != 3 || ticks[1] != 3 || ticks[2] != 1000 {
		t.Fatalf("absolute ticks: %v", ticks)
	}
	if got.Notes[0].Layer != 2 || got.Notes[1].Layer != 5 {
		t.Fatalf("layer accumulation: %+v", got.Notes[:2])
	}
}

func TestParseErrors(t *testing.T) {
	valid := Encode(testSongV5())
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", valid[:3]},
		{"truncated header", valid[:20]},
		{"truncated notes", valid[:len(valid)/2]},
		{"bad version", []byte{0, 0, 99, 16}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.data)
			if err == nil {
				t.Fatalf("expected parse error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseRejectsZeroTempo(t *testing.T) {
	song := testSongV5()
	song.Header.Tempo = 0
	if _, err := Parse(Encode(song)); err == nil {
		t.Fatalf("expected error for zero tempo")
	}
}

func TestParseRejectsDanglingLayerReference(t *testing.T) {
	song := testSongV5()
	song.Notes = append(song.Notes, Note{Tick: 11, Layer: 9, Instrument: 0, Key: 45, Velocity: 100})
	if _, err := Parse(Encode(song)); err == nil {
		t.Fatalf("expected error for note referencing missing layer")
	}
}
