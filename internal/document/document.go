// Package document holds the text of Kconfig files. Buffers opened by an
// editor shadow the content on disk.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/kconfigmap/internal/model"
)

// ErrNotOpen is returned when editing a path that has no open buffer.
var ErrNotOpen = errors.New("document not open")

// Edit replaces Range with Text. Positions are zero-based line/column.
type Edit struct {
	Range model.Range
	Text  string
}

// Document is an open editor buffer.
type Document struct {
	Path    string
	Text    string
	Version int
}

// Store resolves file identities to text.
type Store struct {
	buffers map[string]*Document
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{buffers: make(map[string]*Document)}
}

// Key normalizes a path to the identity used by the store.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Open registers an editor buffer for path.
func (s *Store) Open(path, text string, version int) {
	s.buffers[Key(path)] = &Document{Path: Key(path), Text: text, Version: version}
}

// Close drops the buffer for path, exposing the disk content again.
func (s *Store) Close(path string) {
	delete(s.buffers, Key(path))
}

// IsOpen reports whether path has an editor buffer.
func (s *Store) IsOpen(path string) bool {
	_, ok := s.buffers[Key(path)]
	return ok
}

// Get returns the buffer text for path, or the file content on disk.
func (s *Store) Get(path string) (string, error) {
	if d, ok := s.buffers[Key(path)]; ok {
		return d.Text, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists reports whether path is an open buffer or a regular file.
func (s *Store) Exists(path string) bool {
	if s.IsOpen(path) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadDir lists a directory on disk.
func (s *Store) ReadDir(dir string) ([]fs.DirEntry, error) {
	return os.ReadDir(dir)
}

// Apply performs edits on the open buffer for path in order. It reports
// whether the text changed; an empty edit list changes nothing.
func (s *Store) Apply(path string, edits []Edit) (bool, error) {
	d, ok := s.buffers[Key(path)]
	if !ok {
		return false, fmt.Errorf("%s: %w", path, ErrNotOpen)
	}
	if len(edits) == 0 {
		return false, nil
	}
	text := d.Text
	for _, e := range edits {
		start := Offset(text, e.Range.Start)
		end := Offset(text, e.Range.End)
		if end < start {
			start, end = end, start
		}
		text = text[:start] + e.Text + text[end:]
	}
	changed := text != d.Text
	d.Text = text
	d.Version++
	return changed, nil
}

// Offset converts a position to a byte offset in text, clamping to the end
// of the line and of the text.
func Offset(text string, pos model.Position) int {
	off := 0
	for line := 0; line < pos.Line; line++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	lineEnd := strings.IndexByte(text[off:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text) - off
	}
	switch {
	case pos.Col < 0:
		return off
	case pos.Col > lineEnd:
		return off + lineEnd
	}
	return off + pos.Col
}
