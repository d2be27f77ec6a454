package acceptance

import "context"

// Or accepts iff at least one condition does, short-circuiting on the
// first accepting predicate (spec.md invariant 8: predicate
// compositionality).
type Or struct {
	Conditions []Predicate
}

func (o Or) Accept(ctx context.Context, nc NoteContext, provider ContextProvider) (bool, error) {
	for _, c := range o.Conditions {
		accepted, err := c.Accept(ctx, nc, provider)
		if err != nil {
			return false, err
		}
		if accepted {
			return true, nil
		}
	}
	return false, nil
}
