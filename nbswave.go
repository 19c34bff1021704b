// Package nbswave renders Note Block Studio songs (.nbs files) into
// audio. It parses the binary song format, resolves every note to a
// sound sample (built-in or user-supplied, with later-loaded sources
// overriding earlier ones), pitch-shifts and gain/pan-adjusts each
// note, and composites everything into one sample-accurate PCM track.
//
// WAV output is written directly; other formats go through an external
// ffmpeg process. Rendering is deterministic: the same song and sound
// set always produce byte-identical output, regardless of how many
// worker goroutines mix it.
package nbswave

// RenderAudio renders the song at songPath to outputPath in one call.
// The output format is inferred from outputPath's extension. Custom
// sound sources and all other knobs are supplied as options.
func RenderAudio(songPath, outputPath string, opts ...RenderOption) error {
	renderer, err := Load(songPath, opts...)
	if err != nil {
		return err
	}
	defer renderer.Close()
	for _, path := range renderer.cfg.customSounds {
		if err := renderer.LoadInstruments(path); err != nil {
			return err
		}
	}
	return renderer.Render(outputPath)
}
