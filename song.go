package nbswave

import (
	"sort"
)

// baseKey is the unshifted note-block key (F#4). A note at this key
// plays its instrument sample at the original speed.
const baseKey = 45

// tempoChangerName marks the hidden Note Block Studio feature: custom
// instruments with this name change the song tempo instead of playing a
// sound. The note's fine-pitch value divided by 15 is the new tempo in
// ticks per second.
const tempoChangerName = "Tempo Changer"

// Header carries the song metadata stored ahead of the note grid.
type Header struct {
	Version                 byte    `yaml:"version"`
	VanillaInstrumentCount  byte    `yaml:"vanilla_instrument_count"`
	Length                  int     `yaml:"length"`
	Name                    string  `yaml:"name"`
	Author                  string  `yaml:"author"`
	OriginalAuthor          string  `yaml:"original_author"`
	Description             string  `yaml:"description"`
	Tempo                   float64 `yaml:"tempo"` // ticks per second
	AutoSave                bool    `yaml:"auto_save"`
	AutoSaveDuration        byte    `yaml:"auto_save_duration"`
	TimeSignature           byte    `yaml:"time_signature"`
	MinutesSpent            uint32  `yaml:"minutes_spent"`
	LeftClicks              uint32  `yaml:"left_clicks"`
	RightClicks             uint32  `yaml:"right_clicks"`
	BlocksAdded             uint32  `yaml:"blocks_added"`
	BlocksRemoved           uint32  `yaml:"blocks_removed"`
	ImportName              string  `yaml:"import_name"`
	Loop                    bool    `yaml:"loop"`
	MaxLoopCount            byte    `yaml:"max_loop_count"`
	LoopStartTick           int     `yaml:"loop_start_tick"`
}

// Note is a single note-block event. Panning is -100..100 (0 center),
// Pitch is fine detune in cents.
type Note struct {
	Tick       int
	Layer      int
	Instrument int
	Key        int
	Velocity   int
	Panning    int
	Pitch      int
}

// Layer is one horizontal track of the song grid. Volume is 0..100,
// Panning -100..100.
type Layer struct {
	Name    string
	Lock    bool
	Volume  int
	Panning int
}

// Instrument is a custom-instrument declaration from the song trailer.
// Key is the sample's own pitch (45 = unshifted). The sound data itself
// lives in an external sound source, referenced by File.
type Instrument struct {
	Name     string
	File     string
	Key      int
	PressKey bool
}

// Song is the parsed, immutable in-memory model of an .nbs file.
type Song struct {
	Header      Header
	Notes       []Note
	Layers      []Layer
	Instruments []Instrument
}

func maxTick(notes []Note) int {
	t := 0
	for _, n := range notes {
		if n.Tick > t {
			t = n.Tick
		}
	}
	return t
}

// LengthTicks returns the song length in ticks. The stored header value
// is unreliable in version 1 and 2 files, so the last note tick is used
// instead there (and as a floor everywhere else).
func (s *Song) LengthTicks() int {
	last := maxTick(s.Notes)
	if s.Header.Version == 1 || s.Header.Version == 2 {
		return last
	}
	if s.Header.Length > last {
		return s.Header.Length
	}
	return last
}

// tempoChangerIDs returns the instrument ids of all tempo changers.
func (s *Song) tempoChangerIDs() map[int]bool {
	ids := make(map[int]bool)
	for i, ins := range s.Instruments {
		if ins.Name == tempoChangerName {
			ids[int(s.Header.VanillaInstrumentCount)+i] = true
		}
	}
	return ids
}

// tickSeconds builds the tempo map for the given note set: the playback
// position in seconds of every tick from 0 to the last tick, honoring
// tempo-changer notes. Without changers each tick is 1/tempo apart.
func (s *Song) tickSeconds(notes []Note) []float64 {
	last := maxTick(notes)
	changerIDs := s.tempoChangerIDs()
	var changers []Note
	if len(changerIDs) > 0 {
		for _, n := range notes {
			if changerIDs[n.Instrument] {
				changers = append(changers, n)
			}
		}
		sort.SliceStable(changers, func(i, j int) bool { return changers[i].Tick < changers[j].Tick })
	}

	positions := make([]float64, 0, last+2)
	tick := 0
	tempo := s.Header.Tempo
	seconds := 0.0
	positions = append(positions, 0)
	advance := func(until int) {
		for ; tick < until; tick++ {
			seconds += 1 / tempo
			positions = append(positions, seconds)
		}
	}
	for _, c := range changers {
		advance(c.Tick)
		if next := float64(c.Pitch) / 15; next > 0 {
			tempo = next
		}
	}
	advance(last + 1)
	return positions
}

// weightedNote is a note with layer volume/panning folded in and its
// pitch expressed as a semitone offset from the instrument sample.
type weightedNote struct {
	tick       int
	layer      int
	instrument int
	pitch      float64
	volume     float64
	pan        float64
}

// weightNotes resolves every audible note to its effective values.
// Notes on locked layers, tempo-changer notes, and silent notes are
// dropped.
func (s *Song) weightNotes(notes []Note) []weightedNote {
	changerIDs := s.tempoChangerIDs()
	vanilla := int(s.Header.VanillaInstrumentCount)
	out := make([]weightedNote, 0, len(notes))
	for _, n := range notes {
		if changerIDs[n.Instrument] {
			continue
		}
		layer := s.Layers[n.Layer]
		if layer.Lock {
			continue
		}
		instrumentKey := baseKey
		if ci := n.Instrument - vanilla; ci >= 0 && ci < len(s.Instruments) {
			instrumentKey = (baseKey - s.Instruments[ci].Key) + baseKey
		}
		volume := float64(layer.Volume) / 100 * float64(n.Velocity) / 100
		if volume <= 0 {
			continue
		}
		pan := float64(layer.Panning)/100 + float64(n.Panning)/100
		if pan < -1 {
			pan = -1
		}
		if pan > 1 {
			pan = 1
		}
		out = append(out, weightedNote{
			tick:       n.Tick,
			layer:      n.Layer,
			instrument: n.Instrument,
			pitch:      float64(n.Key-instrumentKey) + float64(n.Pitch)/100,
			volume:     volume,
			pan:        pan,
		})
	}
	return out
}

// sortWeighted orders notes so that equal (instrument, pitch, volume,
// pan) runs sit next to each other, letting the mix loop reuse the
// processed waveform for repeated notes. The trailing tick/layer keys
// make the order total, so chunk boundaries are reproducible.
func sortWeighted(notes []weightedNote) {
	sort.Slice(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.pitch != b.pitch {
			return a.pitch < b.pitch
		}
		if a.instrument != b.instrument {
			return a.instrument < b.instrument
		}
		if a.volume != b.volume {
			return a.volume < b.volume
		}
		if a.pan != b.pan {
			return a.pan < b.pan
		}
		if a.tick != b.tick {
			return a.tick < b.tick
		}
		return a.layer < b.layer
	})
}

// loopNotes returns notes extended by count extra passes of the loop
// body (everything from the loop start tick on), each pass shifted by
// one loop period.
func loopNotes(s *Song, notes []Note, count int) []Note {
	start := s.Header.LoopStartTick
	period := s.LengthTicks() + 1 - start
	if period <= 0 {
		return notes
	}
	out := make([]Note, len(notes), len(notes)*(count+1))
	copy(out, notes)
	for i := 1; i <= count; i++ {
		for _, n := range notes {
			if n.Tick < start {
				continue
			}
			n.Tick += period * i
			out = append(out, n)
		}
	}
	return out
}
