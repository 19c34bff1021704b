package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/OpenNBS/nbswave"
)

type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var customSounds pathList
	var (
		output        = flag.String("o", "", "output file (format inferred from extension)")
		sounds        = flag.String("sounds", "sounds", "directory with the built-in note-block sounds")
		ignoreMissing = flag.Bool("ignore-missing", false, "skip notes whose instrument sound is missing")
		sampleRate    = flag.Int("sample-rate", 44100, "output sample rate")
		channels      = flag.Int("channels", 2, "output channel count")
		volume        = flag.Float64("volume", 1.0, "global gain")
		normalize     = flag.Bool("normalize", false, "normalize instead of hard-clipping when the mix clips")
		loops         = flag.Int("loops", 0, "extra loop passes to render")
		fadeOut       = flag.Duration("fadeout", 0, "fade-out applied to the end of the track")
		workers       = flag.Int("workers", 0, "parallel mixing workers (0 = one per CPU)")
		format        = flag.String("format", "", "output format override (wav, mp3, ogg, flac, ...)")
		bitrate       = flag.Int("bitrate", 320, "bitrate in kbit/s for lossy formats")
		info          = flag.Bool("info", false, "print song metadata as YAML and exit")
		missing       = flag.Bool("missing", false, "list unresolved instruments and exit")
		logLevel      = flag.String("log-level", "warn", "log level: debug|info|warn|error")
	)
	flag.Var(&customSounds, "custom", "custom sound directory or zip archive (repeatable, later overrides earlier)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] song.nbs\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts := []nbswave.RenderOption{
		nbswave.WithDefaultSoundPath(*sounds),
		nbswave.WithIgnoreMissingInstruments(*ignoreMissing),
		nbswave.WithSampleRate(*sampleRate),
		nbswave.WithChannels(*channels),
		nbswave.WithVolume(*volume),
		nbswave.WithNormalize(*normalize),
		nbswave.WithLoops(*loops),
		nbswave.WithFadeOut(*fadeOut),
		nbswave.WithWorkers(*workers),
		nbswave.WithFormat(*format),
		nbswave.WithBitrate(*bitrate),
		nbswave.WithLogger(logger),
	}

	renderer, err := nbswave.Load(input, opts...)
	if err != nil {
		logger.Error("load song", "path", input, "err", err)
		os.Exit(1)
	}
	defer renderer.Close()

	if *info {
		printInfo(renderer.Song())
		return
	}

	if len(customSounds) == 0 {
		if studio := studioSoundsDir(); studio != "" {
			logger.Debug("using Note Block Studio sounds", "path", studio)
			customSounds = append(customSounds, studio)
		}
	}
	for _, path := range customSounds {
		if err := renderer.LoadInstruments(path); err != nil {
			logger.Error("load instruments", "path", path, "err", err)
			os.Exit(1)
		}
	}

	if *missing {
		for _, ins := range renderer.MissingInstruments() {
			if ins.File != "" {
				fmt.Printf("%s\t%s\n", ins.Name, ins.File)
			} else {
				fmt.Println(ins.Name)
			}
		}
		return
	}

	if *output == "" {
		*output = strings.TrimSuffix(input, filepath.Ext(input)) + ".wav"
	}
	start := time.Now()
	if err := renderer.Render(*output); err != nil {
		logger.Error("render", "err", err)
		os.Exit(1)
	}
	logger.Info("rendered", "output", *output, "took", time.Since(start).Round(time.Millisecond))
}

func newLogger(level string) (*slog.Logger, error) {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "info":
		lv = slog.LevelInfo
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})), nil
}

// studioSoundsDir returns the Note Block Studio per-user sounds
// directory when it exists, the usual place custom sounds live.
func studioSoundsDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, "Minecraft Note Block Studio", "Data", "Sounds")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

func printInfo(song *nbswave.Song) {
	doc := struct {
		Header      nbswave.Header `yaml:"header"`
		Notes       int            `yaml:"notes"`
		Layers      int            `yaml:"layers"`
		Instruments []string       `yaml:"custom_instruments"`
		LengthTicks int            `yaml:"length_ticks"`
	}{
		Header:      song.Header,
		Notes:       len(song.Notes),
		Layers:      len(song.Layers),
		LengthTicks: song.LengthTicks(),
	}
	for _, ins := range song.Instruments {
		doc.Instruments = append(doc.Instruments, fmt.Sprintf("%s (%s)", ins.Name, ins.File))
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}
