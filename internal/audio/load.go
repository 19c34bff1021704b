package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/go-audio/wav"
)

// LoadFile decodes a sound file into a Sample. The decoder is picked by
// file extension (.wav, .ogg, .mp3).
func LoadFile(name string) (*Sample, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Decode(name, data)
}

// Decode decodes raw sound-file bytes. name is only inspected for its
// extension.
func Decode(name string, data []byte) (*Sample, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		return decodeWAV(data)
	case ".ogg":
		return decodeOGG(data)
	case ".mp3":
		return decodeMP3(data)
	default:
		return nil, fmt.Errorf("unsupported sound format %q", path.Ext(name))
	}
}

func decodeWAV(data []byte) (*Sample, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("decode wav: missing format chunk")
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int(1) << (bitDepth - 1))
	s := &Sample{
		Data:     make([]float64, len(buf.Data)),
		Channels: buf.Format.NumChannels,
		Rate:     buf.Format.SampleRate,
	}
	for i, v := range buf.Data {
		s.Data[i] = float64(v) / scale
	}
	return s, nil
}

func decodeOGG(data []byte) (*Sample, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode ogg: %w", err)
	}
	s := &Sample{
		Data:     make([]float64, len(pcm)),
		Channels: format.Channels,
		Rate:     format.SampleRate,
	}
	for i, v := range pcm {
		s.Data[i] = float64(v)
	}
	return s, nil
}

func decodeMP3(data []byte) (*Sample, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	// go-mp3 always emits 16-bit little-endian stereo.
	s := &Sample{
		Data:     make([]float64, 0, len(raw)/2),
		Channels: 2,
		Rate:     dec.SampleRate(),
	}
	for i := 0; i+1 < len(raw); i += 2 {
		v := int16(uint16(raw[i]) | uint16(raw[i+1])<<8)
		s.Data = append(s.Data, float64(v)/32768)
	}
	return s, nil
}
