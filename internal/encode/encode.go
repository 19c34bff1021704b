// Package encode writes rendered PCM to disk. WAV output is written
// natively; every other container is delegated to an external ffmpeg
// process fed raw little-endian 16-bit PCM on stdin, which is how the
// format reported by the output extension gets honored without linking
// codec libraries.
package encode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM describes a finalized 16-bit render.
type PCM struct {
	Data     []int // int16-range samples, interleaved
	Rate     int
	Channels int
}

// FormatFromPath infers the target format from the file extension.
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "wav"
	}
	return ext
}

// Write encodes pcm to path in the given format. An empty format is
// inferred from the path. bitrateKbps only applies to lossy formats.
func Write(ctx context.Context, path, format string, pcm PCM, bitrateKbps int) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	if format == "wav" {
		return writeWAV(path, pcm)
	}
	return runEncoder(ctx, path, format, pcm, bitrateKbps)
}

func writeWAV(path string, pcm PCM) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, pcm.Rate, 16, pcm.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: pcm.Channels, SampleRate: pcm.Rate},
		Data:           pcm.Data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// rawBytes serializes pcm as little-endian s16le for the encoder pipe.
func rawBytes(pcm PCM) []byte {
	out := make([]byte, len(pcm.Data)*2)
	for i, v := range pcm.Data {
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

func runEncoder(ctx context.Context, path, format string, pcm PCM, bitrateKbps int) error {
	args := []string{
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(pcm.Rate),
		"-ac", strconv.Itoa(pcm.Channels),
		"-i", "pipe:0",
		"-f", format,
	}
	if bitrateKbps > 0 && format != "flac" {
		args = append(args, "-b:a", fmt.Sprintf("%dk", bitrateKbps))
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = bytes.NewReader(rawBytes(pcm))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 400 {
			msg = msg[len(msg)-400:]
		}
		if msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}
