package nbswave

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// currentVersion is the newest .nbs format revision this package reads
// and writes.
const currentVersion = 5

// byteReader decodes the little-endian primitives of the .nbs format,
// recording the first failure instead of returning an error per read.
type byteReader struct {
	data []byte
	off  int
	err  *ParseError
}

func (r *byteReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = &ParseError{Offset: r.off, Msg: fmt.Sprintf(format, args...)}
	}
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.fail("truncated file: need %d bytes, have %d", n, len(r.data)-r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *byteReader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *byteReader) u16() int {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int(binary.LittleEndian.Uint16(b))
}

func (r *byteReader) i16() int {
	return int(int16(uint16(r.u16())))
}

func (r *byteReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *byteReader) str() string {
	n := int(r.u32())
	if r.err == nil && n > len(r.data)-r.off {
		r.fail("truncated string: length %d exceeds remaining %d", n, len(r.data)-r.off)
	}
	b := r.take(n)
	return string(b)
}

// Parse decodes the binary .nbs structure into a Song. Both the classic
// format (version 0) and the open format (versions 1 through 5) are
// supported; malformed or truncated input yields a *ParseError.
func Parse(data []byte) (*Song, error) {
	r := &byteReader{data: data}
	song := &Song{}
	h := &song.Header

	first := r.u16()
	if first == 0 {
		h.Version = r.u8()
		if r.err == nil && (h.Version < 1 || h.Version > currentVersion) {
			r.fail("unsupported format version %d", h.Version)
		}
		h.VanillaInstrumentCount = r.u8()
		if h.Version >= 3 {
			h.Length = r.u16()
		}
	} else {
		h.Version = 0
		h.VanillaInstrumentCount = 10
		h.Length = first
	}

	layerCount := r.u16()
	h.Name = r.str()
	h.Author = r.str()
	h.OriginalAuthor = r.str()
	h.Description = r.str()
	h.Tempo = float64(r.u16()) / 100
	h.AutoSave = r.u8() != 0
	h.AutoSaveDuration = r.u8()
	h.TimeSignature = r.u8()
	h.MinutesSpent = r.u32()
	h.LeftClicks = r.u32()
	h.RightClicks = r.u32()
	h.BlocksAdded = r.u32()
	h.BlocksRemoved = r.u32()
	h.ImportName = r.str()
	if h.Version >= 4 {
		h.Loop = r.u8() != 0
		h.MaxLoopCount = r.u8()
		h.LoopStartTick = r.u16()
	}
	if r.err != nil {
		return nil, r.err
	}
	if h.Tempo <= 0 {
		r.fail("tempo must be positive, got %v", h.Tempo)
		return nil, r.err
	}

	parseNotes(r, song)
	parseLayers(r, song, layerCount)
	parseInstruments(r, song)
	if r.err != nil {
		return nil, r.err
	}

	for _, n := range song.Notes {
		if n.Layer < 0 || n.Layer >= len(song.Layers) {
			r.fail("note at tick %d references layer %d of %d", n.Tick, n.Layer, len(song.Layers))
			return nil, r.err
		}
	}
	return song, nil
}

// parseNotes decodes the tick-delta note grid: a run per populated
// tick (u16 skip count, 0 ends the grid), and inside each run a layer
// jump per note (u16, 0 ends the run). Absolute positions come from
// accumulating the jumps.
func parseNotes(r *byteReader, song *Song) {
	tick := -1
	for {
		jump := r.u16()
		if r.err != nil || jump == 0 {
			return
		}
		tick += jump
		layer := -1
		for {
			layerJump := r.u16()
			if r.err != nil || layerJump == 0 {
				break
			}
			layer += layerJump
			n := Note{
				Tick:       tick,
				Layer:      layer,
				Instrument: int(r.u8()),
				Key:        int(r.u8()),
				Velocity:   100,
			}
			if song.Header.Version >= 4 {
				n.Velocity = int(r.u8())
				n.Panning = int(r.u8()) - 100
				n.Pitch = r.i16()
			}
			if r.err != nil {
				return
			}
			song.Notes = append(song.Notes, n)
		}
	}
}

func parseLayers(r *byteReader, song *Song, count int) {
	for i := 0; i < count && r.err == nil; i++ {
		l := Layer{Name: r.str()}
		if song.Header.Version >= 4 {
			l.Lock = r.u8() != 0
		}
		l.Volume = int(r.u8())
		if song.Header.Version >= 2 {
			l.Panning = int(r.u8()) - 100
		}
		song.Layers = append(song.Layers, l)
	}
}

func parseInstruments(r *byteReader, song *Song) {
	count := int(r.u8())
	for i := 0; i < count && r.err == nil; i++ {
		ins := Instrument{
			Name:     r.str(),
			File:     r.str(),
			Key:      int(r.u8()),
			PressKey: r.u8() != 0,
		}
		song.Instruments = append(song.Instruments, ins)
	}
}

// ParseFile reads and parses an .nbs file from disk.
func ParseFile(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Read parses an .nbs song from a stream.
func Read(r io.Reader) (*Song, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
