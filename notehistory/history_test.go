package notehistory

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/chaincashlabs/chaincash/avltree"
	"github.com/chaincashlabs/chaincash/crypto/schnorr"
)

func randScalar(t *testing.T) *big.Int {
	t.Helper()
	x, err := rand.Int(rand.Reader, btcec.S256().N)
	require.NoError(t, err)
	if x.Sign() == 0 {
		x = big.NewInt(1)
	}
	return x
}

func TestEmptyHistoryDigestMatchesEmptyTree(t *testing.T) {
	h := New()
	d, err := h.Digest()
	require.NoError(t, err)
	require.Equal(t, avltree.New(32).Digest(), d)
}

func TestSignNoteRejectsWrongKey(t *testing.T) {
	x := randScalar(t)
	owner, err := schnorr.PrivToPub(x)
	require.NoError(t, err)

	wrongX := randScalar(t)
	var noteID, reserveID TokenID
	_, err = Sign(0, 100, noteID, reserveID, wrongX, owner)
	require.Error(t, err)
	var badKey *schnorr.ErrInvalidPrivateKey
	require.ErrorAs(t, err, &badKey)
}

func TestAddCommitmentAndDigestProgression(t *testing.T) {
	x := randScalar(t)
	owner, err := schnorr.PrivToPub(x)
	require.NoError(t, err)

	var noteID TokenID
	noteID[0] = 1
	var reserveID TokenID
	reserveID[0] = 2

	h := New()
	entry, err := Sign(0, 1000, noteID, reserveID, x, owner)
	require.NoError(t, err)

	preDigest, err := h.Digest()
	require.NoError(t, err)

	proofBytes, err := h.AddCommitment(entry)
	require.NoError(t, err)

	postDigest, err := h.Digest()
	require.NoError(t, err)
	require.NotEqual(t, preDigest, postDigest)

	proof, err := avltree.ParseInsertProof(proofBytes)
	require.NoError(t, err)
	verifiedPost, err := avltree.Verify(preDigest, proof)
	require.NoError(t, err)
	require.Equal(t, postDigest, verifiedPost)
}

func TestDuplicateReserveRejectedDigestUnchanged(t *testing.T) {
	x := randScalar(t)
	owner, err := schnorr.PrivToPub(x)
	require.NoError(t, err)

	var noteID, reserveID TokenID
	reserveID[0] = 9

	h := New()
	entry, err := Sign(0, 10, noteID, reserveID, x, owner)
	require.NoError(t, err)
	_, err = h.AddCommitment(entry)
	require.NoError(t, err)

	before, err := h.Digest()
	require.NoError(t, err)

	entry2, err := Sign(1, 5, noteID, reserveID, x, owner)
	require.NoError(t, err)
	_, err = h.AddCommitment(entry2)
	require.Error(t, err)
	var dup *ErrDuplicateReserveKey
	require.ErrorAs(t, err, &dup)

	after, err := h.Digest()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Len(t, h.OwnershipEntries(), 1)
}

func TestLookupProofForRedeem(t *testing.T) {
	x := randScalar(t)
	owner, err := schnorr.PrivToPub(x)
	require.NoError(t, err)

	var noteID TokenID
	h := New()

	var r1, r2 TokenID
	r1[0], r2[0] = 1, 2
	e1, err := Sign(0, 100, noteID, r1, x, owner)
	require.NoError(t, err)
	_, err = h.AddCommitment(e1)
	require.NoError(t, err)

	e2, err := Sign(1, 60, noteID, r2, x, owner)
	require.NoError(t, err)
	_, err = h.AddCommitment(e2)
	require.NoError(t, err)

	digest, err := h.Digest()
	require.NoError(t, err)

	proof, err := h.LookupProof(r2, 1)
	require.NoError(t, err)

	value, err := avltree.VerifyMembership(digest, proof)
	require.NoError(t, err)
	require.Equal(t, e2.Signature.Bytes(), value)
}

func TestFromEntriesRebuildsSameDigest(t *testing.T) {
	x := randScalar(t)
	owner, err := schnorr.PrivToPub(x)
	require.NoError(t, err)

	var noteID, r1 TokenID
	h := New()
	e1, err := Sign(0, 5, noteID, r1, x, owner)
	require.NoError(t, err)
	_, err = h.AddCommitment(e1)
	require.NoError(t, err)

	rebuilt := FromEntries(h.OwnershipEntries())
	d1, err := h.Digest()
	require.NoError(t, err)
	d2, err := rebuilt.Digest()
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}
