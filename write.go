package nbswave

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"sort"
)

type byteWriter struct {
	buf bytes.Buffer
}

func (w *byteWriter) u8(v byte) { w.buf.WriteByte(v) }

func (w *byteWriter) u16(v int) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf.Write(b[:])
}

func (w *byteWriter) i16(v int) { w.u16(int(uint16(int16(v)))) }

func (w *byteWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *byteWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

// Encode serializes the song back to .nbs bytes in the same format
// revision it carries in its header (version 0 emits the classic
// layout). Notes are written in tick-then-layer order; a second note on
// the same tick and layer cannot be represented and is dropped.
func Encode(song *Song) []byte {
	w := &byteWriter{}
	h := song.Header

	length := h.Length
	if last := maxTick(song.Notes); last > length {
		length = last
	}

	if h.Version == 0 {
		w.u16(length)
	} else {
		w.u16(0)
		w.u8(h.Version)
		w.u8(h.VanillaInstrumentCount)
		if h.Version >= 3 {
			w.u16(length)
		}
	}
	w.u16(len(song.Layers))
	w.str(h.Name)
	w.str(h.Author)
	w.str(h.OriginalAuthor)
	w.str(h.Description)
	w.u16(int(math.Round(h.Tempo * 100)))
	if h.AutoSave {
		w.u8(1)
	} else {
		w.u8(0)
	}
	w.u8(h.AutoSaveDuration)
	w.u8(h.TimeSignature)
	w.u32(h.MinutesSpent)
	w.u32(h.LeftClicks)
	w.u32(h.RightClicks)
	w.u32(h.BlocksAdded)
	w.u32(h.BlocksRemoved)
	w.str(h.ImportName)
	if h.Version >= 4 {
		if h.Loop {
			w.u8(1)
		} else {
			w.u8(0)
		}
		w.u8(h.MaxLoopCount)
		w.u16(h.LoopStartTick)
	}

	writeNotes(w, song)
	writeLayers(w, song)
	writeInstruments(w, song)
	return w.buf.Bytes()
}

func writeNotes(w *byteWriter, song *Song) {
	notes := make([]Note, len(song.Notes))
	copy(notes, song.Notes)
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Tick != notes[j].Tick {
			return notes[i].Tick < notes[j].Tick
		}
		return notes[i].Layer < notes[j].Layer
	})

	tick := -1
	layer := -1
	for _, n := range notes {
		if n.Tick != tick {
			if tick >= 0 {
				w.u16(0) // end previous tick run
			}
			w.u16(n.Tick - tick)
			tick = n.Tick
			layer = -1
		}
		if n.Layer == layer {
			continue // unrepresentable duplicate
		}
		w.u16(n.Layer - layer)
		layer = n.Layer
		w.u8(byte(n.Instrument))
		w.u8(byte(n.Key))
		if song.Header.Version >= 4 {
			w.u8(byte(n.Velocity))
			w.u8(byte(n.Panning + 100))
			w.i16(n.Pitch)
		}
	}
	if tick >= 0 {
		w.u16(0)
	}
	w.u16(0) // end note section
}

func writeLayers(w *byteWriter, song *Song) {
	for _, l := range song.Layers {
		w.str(l.Name)
		if song.Header.Version >= 4 {
			if l.Lock {
				w.u8(1)
			} else {
				w.u8(0)
			}
		}
		w.u8(byte(l.Volume))
		if song.Header.Version >= 2 {
			w.u8(byte(l.Panning + 100))
		}
	}
}

func writeInstruments(w *byteWriter, song *Song) {
	w.u8(byte(len(song.Instruments)))
	for _, ins := range song.Instruments {
		w.str(ins.Name)
		w.str(ins.File)
		w.u8(byte(ins.Key))
		if ins.PressKey {
			w.u8(1)
		} else {
			w.u8(0)
		}
	}
}

// WriteFile serializes the song to an .nbs file on disk.
func WriteFile(path string, song *Song) error {
	return os.WriteFile(path, Encode(song), 0o644)
}
