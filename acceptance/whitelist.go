package acceptance

import "context"

// Whitelist accepts a note iff its selected role is listed in Agents —
// Issuer or Owner match a single hex pubkey, Historical matches against any
// signer in the note's ownership chain.
type Whitelist struct {
	Agents []string
	Kind   WhitelistKind
}

func (w Whitelist) Accept(_ context.Context, nc NoteContext, _ ContextProvider) (bool, error) {
	if w.Kind == KindHistorical {
		return anySignerIn(nc.Signers, w.Agents), nil
	}
	role, ok := selectedRole(nc, w.Kind)
	if !ok {
		return false, &ErrUnknownWhitelistKind{Kind: w.Kind}
	}
	return containsAgent(w.Agents, role), nil
}

// Blacklist is Whitelist negated: accept iff the selected role is NOT
// listed.
type Blacklist struct {
	Agents []string
	Kind   WhitelistKind
}

func (b Blacklist) Accept(ctx context.Context, nc NoteContext, provider ContextProvider) (bool, error) {
	accepted, err := (Whitelist{Agents: b.Agents, Kind: b.Kind}).Accept(ctx, nc, provider)
	if err != nil {
		return false, err
	}
	return !accepted, nil
}

// ErrUnknownWhitelistKind is returned when a Whitelist/Blacklist's Kind is
// none of issuer, owner, or historical.
type ErrUnknownWhitelistKind struct{ Kind WhitelistKind }

func (e *ErrUnknownWhitelistKind) Error() string {
	return "acceptance: unknown whitelist kind " + string(e.Kind)
}
