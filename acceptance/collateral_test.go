package acceptance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCollateralInitialIssuerRatio reproduces spec.md's S5 scenario:
// issuer I1 has issued one note worth 1000 nanoerg and holds 900 nanoerg of
// reserves, an issuer ratio of 90%.
func TestCollateralInitialIssuerRatio(t *testing.T) {
	nc := NoteContext{Issuer: "I1", Owner: "Q1", Signers: []string{"I1", "Q1"}, Nanoerg: 1000}
	provider := fakeProvider{
		issued:   map[string][]NoteContext{"I1": {nc}},
		reserves: map[string]uint64{"I1": 900},
	}

	accept86, err := (Collateral{Percent: 86, Algorithm: AlgorithmInitial}).Accept(context.Background(), nc, provider)
	require.NoError(t, err)
	require.True(t, accept86)

	accept100, err := (Collateral{Percent: 100, Algorithm: AlgorithmInitial}).Accept(context.Background(), nc, provider)
	require.NoError(t, err)
	require.False(t, accept100)
}

func TestCollateralFallsThroughToSignerChain(t *testing.T) {
	// Issuer I1 is under-collateralized (50%), but signer Q1 (who also
	// issued notes of their own) is comfortably covered for their riskiest
	// issuance (200%), so the note should still be accepted.
	nc := NoteContext{Issuer: "I1", Owner: "Q2", Signers: []string{"I1", "Q1", "Q2"}, Nanoerg: 1000}
	q1Note := NoteContext{Issuer: "Q1", Nanoerg: 500}
	provider := fakeProvider{
		issued: map[string][]NoteContext{
			"I1": {nc},
			"Q1": {q1Note},
		},
		reserves: map[string]uint64{
			"I1": 500,
			"Q1": 1000,
		},
	}

	ok, err := (Collateral{Percent: 90, Algorithm: AlgorithmInitial}).Accept(context.Background(), nc, provider)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCollateralRejectsWhenNoSignerQualifies(t *testing.T) {
	nc := NoteContext{Issuer: "I1", Owner: "Q1", Signers: []string{"I1", "Q1"}, Nanoerg: 1000}
	q1Note := NoteContext{Issuer: "Q1", Nanoerg: 500}
	provider := fakeProvider{
		issued: map[string][]NoteContext{
			"I1": {nc},
			"Q1": {q1Note},
		},
		reserves: map[string]uint64{
			"I1": 100,
			"Q1": 100,
		},
	}

	ok, err := (Collateral{Percent: 90, Algorithm: AlgorithmInitial}).Accept(context.Background(), nc, provider)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCollateralSingleSignerSkipsChain(t *testing.T) {
	nc := NoteContext{Issuer: "I1", Owner: "I1", Signers: []string{"I1"}, Nanoerg: 1000}
	provider := fakeProvider{
		issued:   map[string][]NoteContext{"I1": {nc}},
		reserves: map[string]uint64{"I1": 10},
	}
	ok, err := (Collateral{Percent: 50, Algorithm: AlgorithmInitial}).Accept(context.Background(), nc, provider)
	require.NoError(t, err)
	require.False(t, ok)
}
