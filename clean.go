package gantry

import (
	"context"

	"github.com/bobg/errors"
	"go.uber.org/multierr"
)

// Clean removes the outputs of the given targets.
// Targets whose output already doesn't exist are silently skipped, as
// are targets that don't implement [Remover]. Removal is attempted for
// every target even when earlier ones fail; the failures are combined in
// the returned error.
func Clean(ctx context.Context, targets ...Target) error {
	errs := make([]error, 0, len(targets))
	for _, t := range targets {
		r, ok := t.(Remover)
		if !ok {
			continue
		}
		ok, err := t.Exists(ctx)
		if err != nil {
			errs = append(errs, errors.Wrap(err, "checking existence"))
			continue
		}
		if !ok {
			continue
		}
		if err := r.Remove(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "removing target"))
		}
	}
	return multierr.Combine(errs...)
}
