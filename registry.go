package gantry

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/go-generics/v2/maps"
)

// Constructor builds a target of one registered kind from a request.
type Constructor func(ctx context.Context, req Request) (Target, error)

// RegisterKind places a target constructor in the registry under the
// given kind name. Backend packages call this from init; the default
// maker resolves requests through the registry. Registering a kind twice
// replaces the earlier constructor.
func RegisterKind(kind string, fn Constructor) {
	kindRegistry.add(kind, fn)
}

// LookupKind returns the constructor registered for kind, if any.
func LookupKind(kind string) (Constructor, bool) {
	return kindRegistry.lookup(kind)
}

// Kinds returns the sorted names of all registered target kinds.
func Kinds() []string {
	return kindRegistry.names()
}

type registry[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{items: make(map[string]T)}
}

func (r *registry[T]) add(name string, val T) {
	r.mu.Lock()
	r.items[name] = val
	r.mu.Unlock()
}

func (r *registry[T]) lookup(name string) (T, bool) {
	r.mu.Lock()
	val, ok := r.items[name]
	r.mu.Unlock()
	return val, ok
}

func (r *registry[T]) names() []string {
	r.mu.Lock()
	names := maps.Keys(r.items)
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

var kindRegistry = newRegistry[Constructor]()
