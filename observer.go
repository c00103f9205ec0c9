package gantry

import (
	"context"
	"fmt"
	"log/slog"
)

// Observer is notified of every target a [Factory] produces,
// regardless of which layer of the stack produced it.
//
// Observers are passive: they run synchronously after construction and
// before the target is handed to the requesting caller, and they may
// inspect the target but must not change its externally observable
// identity. A failing observer does not prevent the remaining observers
// from being notified; see [Factory.Make].
type Observer interface {
	ObserveTarget(ctx context.Context, target Target) error
}

// LogObserver is an Observer that writes a structured log line per
// produced target. It never fails notification.
type LogObserver struct {
	Logger *slog.Logger
}

// ObserveTarget implements Observer.
func (o *LogObserver) ObserveTarget(ctx context.Context, target Target) error {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{slog.String("type", fmt.Sprintf("%T", target))}
	if ft, ok := target.(FileTarget); ok {
		attrs = append(attrs, slog.String("path", ft.Path()))
	}
	logger.DebugContext(ctx, "target created", attrs...)
	return nil
}
