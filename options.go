package nbswave

import (
	"log/slog"
	"time"
)

// RenderOption configures a SongRenderer.
type RenderOption func(*renderConfig)

type renderConfig struct {
	sampleRate       int
	channels         int
	defaultSoundPath string
	customSounds     []string
	ignoreMissing    bool
	normalize        bool
	volume           float64
	workers          int
	loops            int
	fadeOut          time.Duration
	format           string
	bitrateKbps      int
	logger           *slog.Logger
}

func defaultRenderConfig() renderConfig {
	return renderConfig{
		sampleRate:       44100,
		channels:         2,
		defaultSoundPath: "sounds",
		volume:           1,
		bitrateKbps:      320,
	}
}

// WithSampleRate sets the output sample rate (default 44100).
func WithSampleRate(rate int) RenderOption {
	return func(cfg *renderConfig) { cfg.sampleRate = rate }
}

// WithChannels sets the output channel count (default 2).
func WithChannels(channels int) RenderOption {
	return func(cfg *renderConfig) { cfg.channels = channels }
}

// WithDefaultSoundPath sets the directory holding the built-in
// note-block sounds (default "sounds").
func WithDefaultSoundPath(path string) RenderOption {
	return func(cfg *renderConfig) { cfg.defaultSoundPath = path }
}

// WithCustomSounds adds directories or zip archives to load custom
// instrument sounds from, in override order (later wins).
func WithCustomSounds(paths ...string) RenderOption {
	return func(cfg *renderConfig) { cfg.customSounds = append(cfg.customSounds, paths...) }
}

// WithIgnoreMissingInstruments makes rendering skip notes whose
// instrument has no resolvable sound instead of failing.
func WithIgnoreMissingInstruments(ignore bool) RenderOption {
	return func(cfg *renderConfig) { cfg.ignoreMissing = ignore }
}

// WithNormalize scales a clipping mix down to peak at full scale
// instead of hard-clipping it.
func WithNormalize(normalize bool) RenderOption {
	return func(cfg *renderConfig) { cfg.normalize = normalize }
}

// WithVolume sets a global gain applied to every note (default 1).
func WithVolume(volume float64) RenderOption {
	return func(cfg *renderConfig) { cfg.volume = volume }
}

// WithWorkers fixes the number of parallel note-rendering workers.
// Zero or negative means one per CPU. The output is identical for any
// worker count.
func WithWorkers(n int) RenderOption {
	return func(cfg *renderConfig) { cfg.workers = n }
}

// WithLoops renders the loop body (from the song's loop start tick) an
// extra n times after the first pass.
func WithLoops(n int) RenderOption {
	return func(cfg *renderConfig) { cfg.loops = n }
}

// WithFadeOut applies a linear fade over the final d of the rendered
// track.
func WithFadeOut(d time.Duration) RenderOption {
	return func(cfg *renderConfig) { cfg.fadeOut = d }
}

// WithFormat overrides the output format normally inferred from the
// output path's extension.
func WithFormat(format string) RenderOption {
	return func(cfg *renderConfig) { cfg.format = format }
}

// WithBitrate sets the target bitrate in kbit/s for lossy output
// formats (default 320).
func WithBitrate(kbps int) RenderOption {
	return func(cfg *renderConfig) { cfg.bitrateKbps = kbps }
}

// WithLogger directs render progress and warnings to the given logger.
// By default the library is silent.
func WithLogger(logger *slog.Logger) RenderOption {
	return func(cfg *renderConfig) { cfg.logger = logger }
}
