// Package sources resolves sound-file names against an ordered list of
// sample sources (directories and zip archives). Later-loaded sources
// override earlier ones for the same file name.
package sources

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports that no source holds the requested name.
var ErrNotFound = errors.New("sound file not found")

// Source looks up a sound file by name and returns its raw bytes.
type Source interface {
	// Lookup resolves name to file contents. It returns the name the
	// file was actually found under, which may differ from the request
	// when an alternate extension matched.
	Lookup(name string) (string, []byte, error)
	Close() error
}

// Open returns a Source for a directory path or a zip archive.
func Open(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &dirSource{root: path}, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return openZip(path)
	}
	return nil, fmt.Errorf("%s: not a directory or zip archive", path)
}

// alternates returns the candidate names tried for a lookup: the exact
// name first, then the same base name with the known sound extensions.
func alternates(name string) []string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	out := []string{name}
	for _, alt := range []string{".ogg", ".wav", ".mp3"} {
		if alt == ext {
			continue
		}
		out = append(out, base+alt)
	}
	return out
}

type dirSource struct {
	root string
}

func (d *dirSource) Lookup(name string) (string, []byte, error) {
	for _, candidate := range alternates(name) {
		data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(candidate)))
		if err == nil {
			return candidate, data, nil
		}
		if !os.IsNotExist(err) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

func (d *dirSource) Close() error { return nil }

type zipSource struct {
	rc      *zip.ReadCloser
	entries map[string]*zip.File
}

func openZip(path string) (*zipSource, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	entries := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries[f.Name] = f
	}
	return &zipSource{rc: rc, entries: entries}, nil
}

func (z *zipSource) Lookup(name string) (string, []byte, error) {
	for _, candidate := range alternates(name) {
		f, ok := z.entries[candidate]
		if !ok {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return "", nil, err
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return "", nil, err
		}
		return candidate, data, nil
	}
	return "", nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

func (z *zipSource) Close() error { return z.rc.Close() }

// Stack is an ordered collection of sources. Lookup walks the stack in
// reverse load order so the most recently added source wins.
type Stack struct {
	sources []Source
}

// Add appends a source, giving it the highest override priority.
func (st *Stack) Add(src Source) {
	st.sources = append(st.sources, src)
}

// Len reports the number of loaded sources.
func (st *Stack) Len() int { return len(st.sources) }

// Lookup resolves name against the stack.
func (st *Stack) Lookup(name string) (string, []byte, error) {
	for i := len(st.sources) - 1; i >= 0; i-- {
		found, data, err := st.sources[i].Lookup(name)
		if err == nil {
			return found, data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Close closes every source in the stack.
func (st *Stack) Close() error {
	var first error
	for _, src := range st.sources {
		if err := src.Close(); err != nil && first == nil {
			first = err
		}
	}
	st.sources = nil
	return first
}
