package gantry

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrExists indicates a path was present where an operation required
// absence (e.g. Mkdir of an existing directory).
// It matches [fs.ErrExist] under [errors.Is] so callers can branch on
// either sentinel.
var ErrExists = fs.ErrExist

// ErrNotExist indicates a path was required to exist and didn't.
// Note that Target.Exists and FileSystem.Exists report absence as a
// false return, not as this error; it appears only on operations (open,
// non-recursive remove) that need the path present.
var ErrNotExist = fs.ErrNotExist

// ErrUnhandled is the decline signal of the factory protocol:
// a [Maker] returns it (possibly wrapped) to mean "not my request",
// letting the walk fall through to the next entry in the stack.
// It is distinct from failure; any other error aborts the walk.
var ErrUnhandled = errors.New("request not handled by this factory")

// FSError is the common shape of filesystem-backend failures.
// Backends wrap their native errors in it so callers can handle storage
// errors uniformly across backend technologies.
type FSError struct {
	Op   string // the failing operation, e.g. "exists", "remove", "mkdir"
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FSError) Unwrap() error { return e.Err }

// UnsupportedError reports that a backend does not implement an optional
// capability. It carries the backend's identity so "this backend can't"
// is distinguishable from "this call failed".
type UnsupportedError struct {
	Op      string
	Backend string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s not supported by %s", e.Op, e.Backend)
}

// Is makes UnsupportedError match [errors.ErrUnsupported].
func (e *UnsupportedError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

// UnknownKindError is returned by the default maker when a request names
// a target kind that was never registered. This is a caller error, not a
// decline: the default maker is the stack's guarantee of progress and has
// no further entry to fall through to.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown target kind %q", e.Kind)
}
