package gantry

import "context"

// FSTarget binds a path to a FileSystem and implements the Target
// behavior every filesystem-backed target shares. Backend packages embed
// it in their concrete target types and supply their backend's shared
// FileSystem at construction.
//
// Both fields are fixed for the life of the target: the path never
// changes, and the filesystem reference is resolved exactly once.
// Exists and Remove are pure delegation with no caching; every call
// re-queries the backend, so staleness is never hidden.
type FSTarget struct {
	fs   FileSystem
	path string
}

// NewFSTarget binds path to fsys.
func NewFSTarget(fsys FileSystem, path string) FSTarget {
	return FSTarget{fs: fsys, path: path}
}

// Path is the target's path.
func (t FSTarget) Path() string { return t.path }

// FS is the filesystem backing the target.
func (t FSTarget) FS() FileSystem { return t.fs }

// Exists implements Target.Exists by delegating to the backing filesystem.
func (t FSTarget) Exists(ctx context.Context) (bool, error) {
	return t.fs.Exists(ctx, t.path)
}

// Remove deletes the target's path, recursively.
func (t FSTarget) Remove(ctx context.Context) error {
	return t.fs.Remove(ctx, t.path, true)
}
