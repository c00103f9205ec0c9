// Package mem implements gantry targets held in process memory.
//
// A mem.FS is useful as a mock backend: push a maker that produces mem
// targets and code under test runs against memory instead of real
// storage. The backend deliberately has no directory support, so it also
// exercises the unsupported-capability error path.
package mem

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/gantrybuild/gantry"
)

// FS is an in-memory implementation of [gantry.FileSystem].
// It is safe for concurrent use.
type FS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewFS returns an empty in-memory filesystem.
func NewFS() *FS {
	return &FS{files: make(map[string][]byte)}
}

// Shared backs targets made by the registered "mem" kind.
var Shared = NewFS()

// Exists implements gantry.FileSystem.
func (m *FS) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path]
	return ok, nil
}

// Remove implements gantry.FileSystem.
// With recursive set it also removes every path under path's prefix.
func (m *FS) Remove(_ context.Context, path string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	if recursive {
		prefix := strings.TrimSuffix(path, "/") + "/"
		for name := range m.files {
			if strings.HasPrefix(name, prefix) {
				delete(m.files, name)
			}
		}
	}
	return nil
}

// Put stores data at path, replacing any previous contents.
func (m *FS) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
}

// Get returns a copy of the contents at path.
func (m *FS) Get(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Target is a path on an in-memory filesystem.
type Target struct {
	gantry.FSTarget
	fs *FS
}

// New returns a target for path on fsys.
func New(fsys *FS, path string) *Target {
	return &Target{FSTarget: gantry.NewFSTarget(fsys, path), fs: fsys}
}

// Open returns a reader over a snapshot of the target's contents.
func (t *Target) Open(_ context.Context) (io.ReadCloser, error) {
	data, ok := t.fs.Get(t.Path())
	if !ok {
		return nil, &gantry.FSError{Op: "open", Path: t.Path(), Err: gantry.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create returns a writer whose contents become visible on Close.
func (t *Target) Create(_ context.Context) (io.WriteCloser, error) {
	return &memWriter{fs: t.fs, path: t.Path()}, nil
}

type memWriter struct {
	fs   *FS
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	w.fs.Put(w.path, w.buf.Bytes())
	return nil
}

var _ gantry.FileTarget = &Target{}

func init() {
	gantry.RegisterKind("mem", func(_ context.Context, req gantry.Request) (gantry.Target, error) {
		return New(Shared, req.Path), nil
	})
}
