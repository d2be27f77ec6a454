package acceptance

import "context"

// Algorithm selects how Collateral computes an acceptable ratio. Initial is
// the only algorithm spec.md §4.8 defines.
type Algorithm string

const AlgorithmInitial Algorithm = "initial"

// Collateral accepts a note once some signer in its history is backed by
// reserves covering Percent of their riskiest outstanding issuance.
//
// The Initial algorithm first checks the note's issuer: ratio =
// reserves(issuer) / Σ(nanoerg of every note issuer has issued) · 100. If
// that clears Percent, accept immediately. Otherwise it walks the
// remaining signers in order (skipping the issuer, who already failed):
// for each, ratio = reserves(signer) / max(nanoerg of notes signer has
// issued) · 100, accepting at the first signer that clears Percent.
type Collateral struct {
	Percent   float64
	Algorithm Algorithm
}

func (c Collateral) Accept(ctx context.Context, nc NoteContext, provider ContextProvider) (bool, error) {
	issuerReserves, err := provider.AgentReservesNanoerg(ctx, nc.Issuer)
	if err != nil {
		return false, err
	}
	issuerIssued, err := provider.AgentIssuedNotes(ctx, nc.Issuer)
	if err != nil {
		return false, err
	}
	var issuerTotal uint64
	for _, n := range issuerIssued {
		issuerTotal += n.Nanoerg
	}
	if ratioMeets(issuerReserves, issuerTotal, c.Percent) {
		return true, nil
	}

	if len(nc.Signers) <= 1 {
		return false, nil
	}
	for _, signer := range nc.Signers[1:] {
		reserves, err := provider.AgentReservesNanoerg(ctx, signer)
		if err != nil {
			return false, err
		}
		issued, err := provider.AgentIssuedNotes(ctx, signer)
		if err != nil {
			return false, err
		}
		var maxNote uint64
		for _, n := range issued {
			if n.Nanoerg > maxNote {
				maxNote = n.Nanoerg
			}
		}
		if ratioMeets(reserves, maxNote, c.Percent) {
			return true, nil
		}
	}
	return false, nil
}

// ratioMeets reports whether reserves/denominator·100 ≥ percent. A zero
// denominator can't back any issuance at all, so it never meets a
// percent-based bar.
func ratioMeets(reserves, denominator uint64, percent float64) bool {
	if denominator == 0 {
		return false
	}
	return float64(reserves)/float64(denominator)*100 >= percent
}
