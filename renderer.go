package nbswave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	intaudio "github.com/OpenNBS/nbswave/internal/audio"
	intmix "github.com/OpenNBS/nbswave/internal/mix"
	intsrc "github.com/OpenNBS/nbswave/internal/sources"
)

// defaultInstruments are the bundled note-block sounds, indexed by
// built-in instrument id.
var defaultInstruments = []string{
	"harp.ogg",
	"dbass.ogg",
	"bdrum.ogg",
	"sdrum.ogg",
	"click.ogg",
	"guitar.ogg",
	"flute.ogg",
	"bell.ogg",
	"icechime.ogg",
	"xylobone.ogg",
	"iron_xylophone.ogg",
	"cow_bell.ogg",
	"didgeridoo.ogg",
	"bit.ogg",
	"banjo.ogg",
	"pling.ogg",
}

// SongRenderer owns the render lifecycle: load a song, load instrument
// sounds (repeatable; later sources override earlier ones), check for
// missing instruments, and mix the song into a Track. It is not safe
// for concurrent use; finish loading before rendering.
type SongRenderer struct {
	song        *Song
	cfg         renderConfig
	stack       *intsrc.Stack
	instruments map[int]*intaudio.Sample // nil value = declared but unassigned
	defaults    bool
}

// NewSongRenderer wraps an already-parsed song.
func NewSongRenderer(song *Song, opts ...RenderOption) *SongRenderer {
	cfg := defaultRenderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SongRenderer{
		song:        song,
		cfg:         cfg,
		stack:       &intsrc.Stack{},
		instruments: make(map[int]*intaudio.Sample),
	}
}

// Load parses an .nbs file and returns a renderer for it.
func Load(path string, opts ...RenderOption) (*SongRenderer, error) {
	song, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return NewSongRenderer(song, opts...), nil
}

// Song returns the parsed song being rendered.
func (r *SongRenderer) Song() *Song { return r.song }

// Close releases any open sound sources (zip archives).
func (r *SongRenderer) Close() error { return r.stack.Close() }

func (r *SongRenderer) log() *slog.Logger {
	if r.cfg.logger != nil {
		return r.cfg.logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LoadInstruments adds a directory or zip archive of sound files and
// re-resolves the song's custom instruments against the source stack.
// Calling it again with a source containing the same file names
// overrides the earlier sounds.
func (r *SongRenderer) LoadInstruments(path string) error {
	src, err := intsrc.Open(path)
	if err != nil {
		return &InstrumentSourceError{Path: path, Err: err}
	}
	r.stack.Add(src)
	return r.resolveCustom()
}

// resolveCustom maps every custom-instrument declaration to a decoded
// sample from the source stack. Unresolvable declarations stay absent;
// declarations with no file assigned register as silent.
func (r *SongRenderer) resolveCustom() error {
	vanilla := int(r.song.Header.VanillaInstrumentCount)
	for i, ins := range r.song.Instruments {
		id := vanilla + i
		if ins.File == "" {
			r.instruments[id] = nil
			continue
		}
		name, data, err := r.stack.Lookup(ins.File)
		if errors.Is(err, intsrc.ErrNotFound) {
			continue
		}
		if err != nil {
			return &InstrumentSourceError{Path: ins.File, Err: err}
		}
		sample, err := intaudio.Decode(name, data)
		if err != nil {
			return &InstrumentSourceError{Path: name, Err: err}
		}
		r.instruments[id] = intaudio.Sync(sample, r.cfg.sampleRate, r.cfg.channels)
	}
	return nil
}

// ensureDefaults loads the built-in instrument set from the default
// sound path. Files that cannot be read leave their id unresolved;
// whether that matters is decided when the song is mixed.
func (r *SongRenderer) ensureDefaults() {
	if r.defaults {
		return
	}
	r.defaults = true
	src, err := intsrc.Open(r.cfg.defaultSoundPath)
	if err != nil {
		r.log().Warn("default sounds unavailable", "path", r.cfg.defaultSoundPath, "err", err)
		return
	}
	defer src.Close()
	vanilla := int(r.song.Header.VanillaInstrumentCount)
	if vanilla > len(defaultInstruments) {
		vanilla = len(defaultInstruments)
	}
	for id := 0; id < vanilla; id++ {
		name, data, err := src.Lookup(defaultInstruments[id])
		if err != nil {
			r.log().Warn("built-in sound missing", "file", defaultInstruments[id], "err", err)
			continue
		}
		sample, err := intaudio.Decode(name, data)
		if err != nil {
			r.log().Warn("built-in sound unreadable", "file", name, "err", err)
			continue
		}
		r.instruments[id] = intaudio.Sync(sample, r.cfg.sampleRate, r.cfg.channels)
	}
}

func (r *SongRenderer) prepare() error {
	r.ensureDefaults()
	return r.resolveCustom()
}

// MissingInstruments returns the custom instruments referenced or
// declared by the song that did not resolve to a loaded sound.
// Built-in instruments never appear here.
func (r *SongRenderer) MissingInstruments() []Instrument {
	vanilla := int(r.song.Header.VanillaInstrumentCount)
	var missing []Instrument
	for i, ins := range r.song.Instruments {
		if _, ok := r.instruments[vanilla+i]; !ok {
			missing = append(missing, ins)
		}
	}
	limit := vanilla + len(r.song.Instruments)
	seen := make(map[int]bool)
	for _, n := range r.song.Notes {
		if n.Instrument >= limit && !seen[n.Instrument] {
			seen[n.Instrument] = true
			missing = append(missing, Instrument{Name: fmt.Sprintf("Unknown instrument #%d", n.Instrument)})
		}
	}
	return missing
}

// describeInstrument names an instrument id for error reporting.
func (r *SongRenderer) describeInstrument(id int) Instrument {
	vanilla := int(r.song.Header.VanillaInstrumentCount)
	if id < vanilla {
		if id < len(defaultInstruments) {
			file := defaultInstruments[id]
			return Instrument{Name: strings.TrimSuffix(file, ".ogg"), File: file, Key: baseKey}
		}
		return Instrument{Name: fmt.Sprintf("instrument_%d", id), Key: baseKey}
	}
	if ci := id - vanilla; ci < len(r.song.Instruments) {
		return r.song.Instruments[ci]
	}
	return Instrument{Name: fmt.Sprintf("Unknown instrument #%d", id)}
}

// checkMissing fails with the exact unresolved set unless missing
// instruments are ignored. Instruments declared without a sound file
// are silent by design and never count.
func (r *SongRenderer) checkMissing(notes []weightedNote) error {
	if r.cfg.ignoreMissing {
		return nil
	}
	seen := make(map[int]bool)
	var ids []int
	for _, n := range notes {
		if seen[n.instrument] {
			continue
		}
		seen[n.instrument] = true
		if _, ok := r.instruments[n.instrument]; !ok {
			ids = append(ids, n.instrument)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Ints(ids)
	missing := make([]Instrument, len(ids))
	for i, id := range ids {
		missing[i] = r.describeInstrument(id)
	}
	return &MissingInstrumentError{Instruments: missing}
}

// MixSong renders the whole song into a single track.
func (r *SongRenderer) MixSong() (*Track, error) {
	return r.MixSongContext(context.Background())
}

// MixSongContext renders the whole song, polling ctx between notes so
// a long render can be cancelled.
func (r *SongRenderer) MixSongContext(ctx context.Context) (*Track, error) {
	if err := r.prepare(); err != nil {
		return nil, err
	}
	notes := r.song.Notes
	if r.cfg.loops > 0 {
		notes = loopNotes(r.song, notes, r.cfg.loops)
	}
	weighted := r.song.weightNotes(notes)
	if err := r.checkMissing(weighted); err != nil {
		return nil, err
	}
	positions := r.song.tickSeconds(notes)
	sortWeighted(weighted)

	workers := r.cfg.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(weighted) {
		workers = len(weighted)
	}
	if workers < 1 {
		workers = 1
	}
	r.log().Debug("mixing",
		"notes", len(weighted), "workers", workers,
		"rate", r.cfg.sampleRate, "channels", r.cfg.channels)

	mixers := make([]*intmix.Mixer, workers)
	chunk := (len(weighted) + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(weighted) {
			hi = len(weighted)
		}
		m := intmix.New(r.cfg.sampleRate, r.cfg.channels)
		mixers[w] = m
		part := weighted[lo:hi]
		g.Go(func() error {
			return r.mixChunk(gctx, m, part, positions)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fixed-order merge: identical output for any worker count.
	final := mixers[0]
	for _, m := range mixers[1:] {
		final.Merge(m)
	}
	return r.finalize(final), nil
}

func (r *SongRenderer) finalize(m *intmix.Mixer) *Track {
	data, factor := m.Finalize(r.cfg.normalize)
	if factor > 1 {
		if r.cfg.normalize {
			r.log().Warn("output clipped, normalized to full scale", "factor", factor)
		} else {
			r.log().Warn("output clipped", "factor", factor)
		}
	}
	track := &Track{
		Data:           data,
		SampleRate:     r.cfg.sampleRate,
		Channels:       r.cfg.channels,
		ClippingFactor: factor,
	}
	if r.cfg.fadeOut > 0 {
		track.FadeOut(r.cfg.fadeOut)
	}
	return track
}

// mixChunk renders a slice of the sorted note list into its own mixer.
// Runs of notes sharing instrument, pitch, volume, or pan reuse the
// partially processed waveform from the previous note.
func (r *SongRenderer) mixChunk(ctx context.Context, m *intmix.Mixer, notes []weightedNote, positions []float64) error {
	var last weightedNote
	var pitched, gained, panned *intaudio.Sample
	for i, n := range notes {
		if i%64 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		sample, ok := r.instruments[n.instrument]
		if !ok || sample == nil {
			continue
		}
		if pitched == nil || n.instrument != last.instrument || n.pitch != last.pitch {
			pitched = intaudio.Resample(sample, intaudio.PitchRatio(n.pitch))
			gained, panned = nil, nil
		}
		if gained == nil || n.volume != last.volume {
			gained = intaudio.Gain(pitched, n.volume*r.cfg.volume)
			panned = nil
		}
		if panned == nil || n.pan != last.pan {
			panned = intaudio.Pan(gained, n.pan)
		}
		last = n
		start := int(math.Round(positions[n.tick] * float64(r.cfg.sampleRate)))
		m.Overlay(panned.Data, start)
	}
	return nil
}

// Stem is one layer group rendered on its own.
type Stem struct {
	Name  string
	Track *Track
}

// MixLayers renders each non-empty layer to its own track. With
// groupByName set, layers sharing a name render together.
func (r *SongRenderer) MixLayers(groupByName bool) ([]Stem, error) {
	return r.MixLayersContext(context.Background(), groupByName)
}

func (r *SongRenderer) MixLayersContext(ctx context.Context, groupByName bool) ([]Stem, error) {
	if err := r.prepare(); err != nil {
		return nil, err
	}
	weighted := r.song.weightNotes(r.song.Notes)
	if err := r.checkMissing(weighted); err != nil {
		return nil, err
	}
	positions := r.song.tickSeconds(r.song.Notes)

	groupName := func(layer int) string {
		name := r.song.Layers[layer].Name
		if groupByName {
			return name
		}
		return fmt.Sprintf("%d %s", layer, name)
	}
	var order []string
	groups := make(map[string][]weightedNote)
	for _, n := range weighted {
		key := groupName(n.layer)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], n)
	}

	stems := make([]Stem, 0, len(order))
	for _, key := range order {
		notes := groups[key]
		sortWeighted(notes)
		m := intmix.New(r.cfg.sampleRate, r.cfg.channels)
		if err := r.mixChunk(ctx, m, notes, positions); err != nil {
			return nil, err
		}
		stems = append(stems, Stem{Name: key, Track: r.finalize(m)})
	}
	return stems, nil
}

// Render mixes the song and writes it to outputPath, inferring the
// container format from the extension unless overridden.
func (r *SongRenderer) Render(outputPath string) error {
	return r.RenderContext(context.Background(), outputPath)
}

// RenderContext is Render with cancellation support; the context covers
// both mixing and the external encoder invocation.
func (r *SongRenderer) RenderContext(ctx context.Context, outputPath string) error {
	track, err := r.MixSongContext(ctx)
	if err != nil {
		return err
	}
	return track.Export(ctx, outputPath, r.cfg.format, r.cfg.bitrateKbps)
}
