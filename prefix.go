package gantry

import (
	"context"
	"path"
)

// PrefixMaker is a factory layer that rewrites the paths of matching
// requests before constructing through the kind registry.
//
// Pushed onto a factory it relocates outputs without the call sites
// knowing: a test run can prepend a scratch prefix, a staging deploy can
// redirect a pipeline's outputs, and non-matching kinds fall through to
// the rest of the stack untouched.
type PrefixMaker struct {
	// Prefix is joined in front of each matching request's path.
	Prefix string

	// Kinds restricts interception to the named target kinds.
	// Empty means every kind is intercepted.
	Kinds []string
}

// MakeTarget implements Maker.
func (p *PrefixMaker) MakeTarget(ctx context.Context, req Request) (Target, error) {
	if !p.matches(req.Kind) {
		return nil, ErrUnhandled
	}
	fn, ok := LookupKind(req.Kind)
	if !ok {
		return nil, &UnknownKindError{Kind: req.Kind}
	}
	req.Path = path.Join(p.Prefix, req.Path)
	return fn(ctx, req)
}

func (p *PrefixMaker) matches(kind string) bool {
	if len(p.Kinds) == 0 {
		return true
	}
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
