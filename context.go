package gantry

import "context"

type factoryKeyType struct{}

// WithFactory decorates a context with a factory.
// Package-level [Make] resolves requests on the context's factory,
// letting a host scope overrides to one request tree
// (a test, one pipeline run) without touching [Default].
func WithFactory(ctx context.Context, f *Factory) context.Context {
	return context.WithValue(ctx, factoryKeyType{}, f)
}

// FactoryFrom returns the factory carried by ctx,
// or [Default] if ctx carries none.
func FactoryFrom(ctx context.Context) *Factory {
	if f, ok := ctx.Value(factoryKeyType{}).(*Factory); ok {
		return f
	}
	return Default
}
