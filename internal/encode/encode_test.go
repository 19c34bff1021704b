package encode

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-audio/wav"
)

func TestFormatFromPath(t *testing.T) {
	cases := []struct{ path, want string }{
		{"song.wav", "wav"},
		{"song.MP3", "mp3"},
		{"out/song.ogg", "ogg"},
		{"song", "wav"},
	}
	for _, tc := range cases {
		if got := FormatFromPath(tc.path); got != tc.want {
			t.Fatalf("FormatFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	pcm := PCM{Data: []int{100, -100, 32767, -32768}, Rate: 44100, Channels: 2}
	if err := Write(context.Background(), path, "wav", pcm, 0); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode written wav: %v", err)
	}
	if buf.Format.SampleRate != 44100 || buf.Format.NumChannels != 2 {
		t.Fatalf("format = %+v", buf.Format)
	}
	if !reflect.DeepEqual(buf.Data, pcm.Data) {
		t.Fatalf("samples: got %v, want %v", buf.Data, pcm.Data)
	}
}

func TestRawBytesLittleEndian(t *testing.T) {
	got := rawBytes(PCM{Data: []int{1, -1, 256}, Rate: 44100, Channels: 1})
	want := []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("raw bytes: got %x, want %x", got, want)
	}
}
