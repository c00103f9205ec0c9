// Package local implements gantry targets backed by the local disk.
package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bobg/errors"

	"github.com/gantrybuild/gantry"
)

// FS is the local-disk implementation of [gantry.FileSystem].
// It is stateless; every target in the process shares [Shared].
type FS struct{}

// Shared is the filesystem backing all local targets.
var Shared gantry.FileSystem = FS{}

var _ gantry.DirFS = FS{}

// Exists implements gantry.FileSystem.
func (FS) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &gantry.FSError{Op: "exists", Path: path, Err: err}
}

// Remove implements gantry.FileSystem.
// Without recursive it refuses to remove a non-empty directory.
func (FS) Remove(_ context.Context, path string, recursive bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return &gantry.FSError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Mkdir creates the directory at path along with missing parents.
// It fails with [gantry.ErrExists] if path already exists.
func (FS) Mkdir(_ context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return &gantry.FSError{Op: "mkdir", Path: path, Err: gantry.ErrExists}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &gantry.FSError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// IsDir implements gantry.DirFS.
func (FS) IsDir(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &gantry.FSError{Op: "isdir", Path: path, Err: err}
}

// Target is a file on the local disk.
type Target struct {
	gantry.FSTarget
}

// New returns a target for the given local path.
func New(path string) *Target {
	return &Target{FSTarget: gantry.NewFSTarget(Shared, path)}
}

// Open opens the target's file for reading.
func (t *Target) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(t.Path())
	if err != nil {
		return nil, &gantry.FSError{Op: "open", Path: t.Path(), Err: err}
	}
	return f, nil
}

// Create opens the target's file for writing.
//
// Writes go to a temporary file in the destination directory; the real
// path appears only when the returned writer is closed, via rename.
// Readers therefore never see a partial output, and an abandoned writer
// leaves the target nonexistent rather than corrupt.
func (t *Target) Create(_ context.Context) (io.WriteCloser, error) {
	dir := filepath.Dir(t.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &gantry.FSError{Op: "create", Path: t.Path(), Err: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(t.Path())+".tmp*")
	if err != nil {
		return nil, &gantry.FSError{Op: "create", Path: t.Path(), Err: err}
	}
	return &atomicFile{f: tmp, dest: t.Path()}, nil
}

// atomicFile publishes its contents to dest on Close.
type atomicFile struct {
	f    *os.File
	dest string
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *atomicFile) Close() error {
	if err := a.f.Sync(); err != nil {
		a.discard()
		return errors.Wrapf(err, "syncing temp file for %s", a.dest)
	}
	if err := a.f.Close(); err != nil {
		os.Remove(a.f.Name())
		return errors.Wrapf(err, "closing temp file for %s", a.dest)
	}
	if err := os.Rename(a.f.Name(), a.dest); err != nil {
		os.Remove(a.f.Name())
		return errors.Wrapf(err, "publishing %s", a.dest)
	}
	return nil
}

func (a *atomicFile) discard() {
	a.f.Close()
	os.Remove(a.f.Name())
}

var _ gantry.FileTarget = &Target{}

func init() {
	gantry.RegisterKind("local", func(_ context.Context, req gantry.Request) (gantry.Target, error) {
		return New(req.Path), nil
	})
}
