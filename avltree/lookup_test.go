package avltree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupMembershipProof(t *testing.T) {
	tr := New(32)
	for i := 0; i < 25; i++ {
		_, err := tr.Insert(key(i), []byte{byte(i)})
		require.NoError(t, err)
	}

	proof, err := tr.Lookup(key(13))
	require.NoError(t, err)

	value, err := VerifyMembership(tr.Digest(), proof)
	require.NoError(t, err)
	require.Equal(t, []byte{13}, value)
}

func TestLookupMissingKey(t *testing.T) {
	tr := New(32)
	_, err := tr.Insert(key(1), []byte("v"))
	require.NoError(t, err)

	_, err = tr.Lookup(key(2))
	require.Error(t, err)
	var notFound *ErrKeyNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestMembershipProofRoundTripsThroughWire(t *testing.T) {
	tr := New(32)
	for i := 0; i < 10; i++ {
		_, err := tr.Insert(key(i), []byte{byte(i)})
		require.NoError(t, err)
	}
	proof, err := tr.Lookup(key(4))
	require.NoError(t, err)

	decoded, err := ParseMembershipProof(proof.Bytes())
	require.NoError(t, err)

	value, err := VerifyMembership(tr.Digest(), decoded)
	require.NoError(t, err)
	require.Equal(t, []byte{4}, value)
}
