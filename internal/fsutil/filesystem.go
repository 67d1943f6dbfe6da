// Package fsutil is the write seam for export artifacts. The exporter
// goes through FileSystem so tests can capture the PNG/CSV/JSON output
// in memory instead of touching disk.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileSystem is the surface the exporter needs: create the artifact
// directory, then write whole files into it.
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// OSFileSystem writes through to the os package.
type OSFileSystem struct{}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// MemoryFileSystem records writes in a map keyed by cleaned path. It
// refuses to write into a directory that was never created, so a
// missing MkdirAll shows up in tests the way it would on disk.
type MemoryFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string][]byte),
		dirs:  map[string]bool{".": true, "/": true},
	}
}

func (m *MemoryFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := filepath.Clean(path)
	for p != "." && p != string(filepath.Separator) {
		m.dirs[p] = true
		p = filepath.Dir(p)
	}
	return nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = filepath.Clean(name)
	if dir := filepath.Dir(name); !m.dirs[dir] {
		return fmt.Errorf("write %s: directory %s does not exist", name, dir)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// ReadFile returns the recorded contents of name.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filepath.Clean(name)]
	return data, ok
}

// Paths lists every written file path in sorted order.
func (m *MemoryFileSystem) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
