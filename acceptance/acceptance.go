// Package acceptance implements the note-acceptance predicates a payee
// evaluates before treating an incoming note as good funds: whitelist and
// blacklist membership checks, disjunction, and issuer/signer
// collateralization ratios (spec.md §4.8).
package acceptance

import "context"

// NoteContext is the information a predicate sees about the note under
// evaluation. Pubkeys are hex-encoded compressed points, matching the form
// predicate config files list agents in.
type NoteContext struct {
	Nanoerg uint64
	Owner   string
	Issuer  string
	Signers []string
}

// ContextProvider answers the questions a predicate needs about agents other
// than the note directly under evaluation: what else an agent has issued,
// and how well reserved they currently are.
type ContextProvider interface {
	AgentIssuedNotes(ctx context.Context, agent string) ([]NoteContext, error)
	AgentReservesNanoerg(ctx context.Context, agent string) (uint64, error)
}

// Predicate decides whether a note is acceptable. Accept must be
// side-effect free: given the same NoteContext and provider state, it
// always returns the same verdict.
type Predicate interface {
	Accept(ctx context.Context, nc NoteContext, provider ContextProvider) (bool, error)
}

// WhitelistKind selects which role of a note a Whitelist/Blacklist checks.
type WhitelistKind string

const (
	KindIssuer     WhitelistKind = "issuer"
	KindOwner      WhitelistKind = "owner"
	KindHistorical WhitelistKind = "historical"
)

func containsAgent(agents []string, agent string) bool {
	for _, a := range agents {
		if a == agent {
			return true
		}
	}
	return false
}

func anySignerIn(signers []string, agents []string) bool {
	for _, s := range signers {
		if containsAgent(agents, s) {
			return true
		}
	}
	return false
}

func selectedRole(nc NoteContext, kind WhitelistKind) (string, bool) {
	switch kind {
	case KindIssuer:
		return nc.Issuer, true
	case KindOwner:
		return nc.Owner, true
	default:
		return "", false
	}
}
