package gantry

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobg/errors"
	"go.uber.org/multierr"
)

// Request describes a target to be constructed:
// the registered kind name, the path the target should be bound to,
// and any extra constructor arguments the kind understands.
type Request struct {
	Kind string
	Path string
	Args []any
}

// Maker is one layer of the factory stack.
//
// A Maker either produces a target for the request or declines it by
// returning [ErrUnhandled] (possibly wrapped), in which case the walk
// falls through to the next layer down. Any other error is a real
// construction failure and aborts the walk. Returning a nil target
// without an error is a contract violation.
type Maker interface {
	MakeTarget(ctx context.Context, req Request) (Target, error)
}

// MakerFunc adapts a function to the Maker interface.
type MakerFunc func(ctx context.Context, req Request) (Target, error)

// MakeTarget implements Maker.
func (f MakerFunc) MakeTarget(ctx context.Context, req Request) (Target, error) {
	return f(ctx, req)
}

// defaultMaker sits at the bottom of every factory stack.
// It constructs directly through the kind registry and never declines:
// an unregistered kind is an [UnknownKindError], not a fallthrough.
type defaultMaker struct{}

func (defaultMaker) MakeTarget(ctx context.Context, req Request) (Target, error) {
	fn, ok := LookupKind(req.Kind)
	if !ok {
		return nil, &UnknownKindError{Kind: req.Kind}
	}
	return fn(ctx, req)
}

// Factory resolves target-construction requests through an ordered stack
// of [Maker] layers and notifies registered observers of every target it
// produces.
//
// The stack makes interception composable: a mocking layer, a
// path-prefixing layer, and the default can coexist, with the most
// recently pushed layer getting first refusal on each request. Position 0
// is permanently the default maker, so a factory can always make
// progress; [Factory.Pop] refuses to remove it.
//
// All methods are safe for concurrent use. Makers and observers are
// invoked outside the factory's lock, so they may call back into it.
type Factory struct {
	mu        sync.Mutex
	stack     []Maker
	observers []Observer
}

// NewFactory returns a factory whose stack holds only the default maker.
func NewFactory() *Factory {
	return &Factory{stack: []Maker{defaultMaker{}}}
}

// Make resolves req by walking the stack from the most recently pushed
// layer down and returning the first target produced.
//
// Every registered observer is notified of the produced target, in
// registration order, before Make returns. Observer failures do not
// suppress later observers and do not discard the target: Make then
// returns the target together with the combined observer errors.
func (f *Factory) Make(ctx context.Context, req Request) (Target, error) {
	f.mu.Lock()
	stack := make([]Maker, len(f.stack))
	copy(stack, f.stack)
	f.mu.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		target, err := stack[i].MakeTarget(ctx, req)
		if errors.Is(err, ErrUnhandled) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "making %s target", req.Kind)
		}
		if target == nil {
			return nil, fmt.Errorf("factory %T produced no target and no error for kind %s", stack[i], req.Kind)
		}
		return target, f.observe(ctx, target)
	}

	// Reachable only if the bottom-of-stack invariant was violated.
	return nil, errors.Wrapf(ErrUnhandled, "no factory produced a %s target", req.Kind)
}

// Push adds a maker to the top of the stack.
// It takes effect for all subsequent Make calls until popped.
// Intended use is scoped: push before a unit of work, pop after, so an
// override never outlives the code that installed it. See [Factory.With].
func (f *Factory) Push(m Maker) {
	f.mu.Lock()
	f.stack = append(f.stack, m)
	f.mu.Unlock()
}

// Pop removes the top entry of the stack.
// It fails, leaving the stack unchanged, if only the default maker
// remains: popping the stack empty would break the guarantee that Make
// can always make progress.
func (f *Factory) Pop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stack) < 2 {
		return errors.New("cannot pop the last entry off the factory stack")
	}
	f.stack = f.stack[:len(f.stack)-1]
	return nil
}

// Len is the current depth of the factory stack.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stack)
}

// With installs m for the duration of fn, popping it again on all paths
// out of fn. This is the safe way to scope an override to a unit of work.
func (f *Factory) With(m Maker, fn func() error) (err error) {
	f.Push(m)
	defer func() {
		if perr := f.Pop(); err == nil {
			err = perr
		}
	}()
	return fn()
}

// AddObserver registers o to be notified of every target the factory
// produces. Registrations are not deduplicated: registering the same
// observer twice means two notifications per target.
func (f *Factory) AddObserver(o Observer) {
	f.mu.Lock()
	f.observers = append(f.observers, o)
	f.mu.Unlock()
}

// RemoveObserver unregisters one registration of o, compared with ==
// (observers are expected to be pointer-shaped). It fails if o is not
// currently registered.
func (f *Factory) RemoveObserver(o Observer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.observers {
		if cur == o {
			f.observers = append(f.observers[:i], f.observers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("observer %T is not registered", o)
}

func (f *Factory) observe(ctx context.Context, target Target) error {
	f.mu.Lock()
	obs := make([]Observer, len(f.observers))
	copy(obs, f.observers)
	f.mu.Unlock()

	errs := make([]error, len(obs))
	for i, o := range obs {
		errs[i] = errors.Wrapf(o.ObserveTarget(ctx, target), "notifying observer %T", o)
	}
	return multierr.Combine(errs...)
}

// Default is the process-wide factory.
// The package-level Make, Push, Pop and observer functions operate on it
// (or on a factory injected via [WithFactory]).
var Default = NewFactory()

// Make resolves req on the context's factory (see [FactoryFrom]).
// This is the creation entry point pipeline code should use instead of
// constructing targets directly, so that interception works.
func Make(ctx context.Context, req Request) (Target, error) {
	return FactoryFrom(ctx).Make(ctx, req)
}

// Push adds a maker to the top of the Default factory's stack.
func Push(m Maker) { Default.Push(m) }

// Pop removes the top entry of the Default factory's stack.
func Pop() error { return Default.Pop() }

// AddObserver registers an observer with the Default factory.
func AddObserver(o Observer) { Default.AddObserver(o) }

// RemoveObserver unregisters an observer from the Default factory.
func RemoveObserver(o Observer) error { return Default.RemoveObserver(o) }
