package gantry

import (
	"context"
	"io"
)

// Target is the interface that pipeline outputs must implement.
//
// A Target represents something a unit of work can produce or depend on.
// The scheduler that consumes targets decides whether to run a piece of
// work by asking its output targets whether they already exist.
type Target interface {
	// Exists reports whether the target's output is present.
	// A missing output is (false, nil); the error return is reserved for
	// failures to determine existence (permission, network, etc.).
	Exists(ctx context.Context) (bool, error)
}

// Remover is implemented by targets whose output can be deleted.
type Remover interface {
	// Remove deletes the target's output.
	Remove(ctx context.Context) error
}

// FileTarget is a Target bound to a path on a FileSystem backend.
//
// Concrete backends embed [FSTarget] for the Exists/Remove delegation and
// add their own streaming semantics in Open and Create.
type FileTarget interface {
	Target
	Remover

	// Path is the target's path. Opaque to this package.
	Path() string

	// FS is the filesystem backing the target.
	FS() FileSystem

	// Open opens the target's output for reading.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Create opens the target's output for writing.
	// Backends define buffering and atomicity;
	// the local backend publishes the output only on Close.
	Create(ctx context.Context) (io.WriteCloser, error)
}
