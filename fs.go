package gantry

import (
	"context"
	"fmt"
)

// FileSystem is the capability contract a storage backend must satisfy to
// host file targets. A backend is typically a shared, long-lived value:
// one FileSystem backs many targets and outlives all of them.
//
// Directory operations are optional; backends that have them additionally
// implement [DirFS]. Use [Mkdir] and [IsDir] to call them without caring
// whether the backend participates.
type FileSystem interface {
	// Exists reports whether path exists on the backend.
	// A missing path is (false, nil); I/O failures (permission, network)
	// are returned as errors, never folded into false.
	Exists(ctx context.Context, path string) (bool, error)

	// Remove deletes path. When recursive is true, non-empty directories
	// (or their backend analog) are removed too. Removing a missing path
	// is backend-defined but must leave the backend consistent.
	Remove(ctx context.Context, path string, recursive bool) error
}

// DirFS is the optional directory capability of a FileSystem.
type DirFS interface {
	// Mkdir creates the directory at path, including missing parents.
	// It fails with [ErrExists] if path is already present.
	Mkdir(ctx context.Context, path string) error

	// IsDir reports whether path exists and is a directory.
	IsDir(ctx context.Context, path string) (bool, error)
}

// Mkdir creates a directory on fsys.
// If the backend does not support directories the result is an
// [UnsupportedError] naming the backend, distinct from an I/O failure.
func Mkdir(ctx context.Context, fsys FileSystem, path string) error {
	d, ok := fsys.(DirFS)
	if !ok {
		return &UnsupportedError{Op: "mkdir", Backend: backendName(fsys)}
	}
	return d.Mkdir(ctx, path)
}

// IsDir reports whether path is a directory on fsys.
// If the backend does not support directories the result is an
// [UnsupportedError] naming the backend.
func IsDir(ctx context.Context, fsys FileSystem, path string) (bool, error) {
	d, ok := fsys.(DirFS)
	if !ok {
		return false, &UnsupportedError{Op: "isdir", Backend: backendName(fsys)}
	}
	return d.IsDir(ctx, path)
}

func backendName(fsys FileSystem) string {
	return fmt.Sprintf("%T", fsys)
}
