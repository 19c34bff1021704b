package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// wavBytes builds a canonical 16-bit PCM WAV file in memory.
func wavBytes(rate, channels int, samples []int16) []byte {
	dataSize := len(samples) * 2
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(rate))
	binary.LittleEndian.PutUint32(out[28:], uint32(rate*channels*2))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(s))
	}
	return out
}

func TestDecodeWAV(t *testing.T) {
	data := wavBytes(22050, 2, []int16{16384, -16384, 0, 32767})
	s, err := Decode("tone.wav", data)
	if err != nil {
		t.Fatalf("decode wav: %v", err)
	}
	if s.Channels != 2 || s.Rate != 22050 {
		t.Fatalf("format = %d ch %d Hz, want 2 ch 22050 Hz", s.Channels, s.Rate)
	}
	if s.Frames() != 2 {
		t.Fatalf("frames = %d, want 2", s.Frames())
	}
	if math.Abs(s.Data[0]-0.5) > 1e-9 || math.Abs(s.Data[1]+0.5) > 1e-9 {
		t.Fatalf("unexpected samples: %v", s.Data)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	if err := os.WriteFile(path, wavBytes(44100, 1, []int16{100, 200}), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Frames() != 2 || s.Channels != 1 {
		t.Fatalf("unexpected sample: %d frames, %d channels", s.Frames(), s.Channels)
	}
}

func TestDecodeUnknownExtension(t *testing.T) {
	if _, err := Decode("tone.aiff", []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestDecodeCorruptWAV(t *testing.T) {
	if _, err := Decode("tone.wav", []byte("not a riff file")); err == nil {
		t.Fatalf("expected error for corrupt wav")
	}
}
