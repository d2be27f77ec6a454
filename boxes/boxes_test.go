package boxes

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/chaincashlabs/chaincash/notehistory"
)

func randPub(t *testing.T) *btcec.PublicKey {
	t.Helper()
	x, err := rand.Int(rand.Reader, btcec.S256().N)
	require.NoError(t, err)
	if x.Sign() == 0 {
		x = big.NewInt(1)
	}
	_, pub := btcec.PrivKeyFromBytes(x.FillBytes(make([]byte, 32)))
	return pub
}

func longReg(v int64) Register {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return Register{Kind: KindLong, Bytes: b[:]}
}

func intReg(v int32) Register {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return Register{Kind: KindInt, Bytes: b[:]}
}

func groupReg(pub *btcec.PublicKey) Register {
	return Register{Kind: KindGroupElement, Bytes: pub.SerializeCompressed()}
}

func TestNewNoteAcceptsValidBox(t *testing.T) {
	owner := randPub(t)
	history := notehistory.New()
	digest, err := history.Digest()
	require.NoError(t, err)

	var noteID TokenID
	noteID[0] = 7

	box := RawBox{
		ID: BoxID{1},
		Registers: map[RegisterID]Register{
			R4: {Kind: KindAvlTree, Bytes: NewInsertOnlyAvlTreeData(digest, 32).Bytes()},
			R5: groupReg(owner),
			R6: longReg(0),
		},
		Tokens: []TokenAmount{{ID: noteID, Amount: 1000}},
	}

	note, err := NewNote(box, history)
	require.NoError(t, err)
	require.Equal(t, uint64(0), note.Length)
	require.Equal(t, uint64(1000), note.Amount)
	require.Equal(t, noteID, note.NoteID)
	require.True(t, note.Owner.IsEqual(owner))
}

func TestNewNoteRejectsDigestMismatch(t *testing.T) {
	owner := randPub(t)
	history := notehistory.New()

	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: {Kind: KindAvlTree, Bytes: NewInsertOnlyAvlTreeData([33]byte{1, 2, 3}, 32).Bytes()},
			R5: groupReg(owner),
			R6: longReg(0),
		},
		Tokens: []TokenAmount{{ID: TokenID{9}, Amount: 1}},
	}

	_, err := NewNote(box, history)
	require.Error(t, err)
	var mismatch *ErrInvalidAVLDigest
	require.ErrorAs(t, err, &mismatch)
}

func TestNewNoteRejectsMissingToken(t *testing.T) {
	owner := randPub(t)
	history := notehistory.New()
	digest, err := history.Digest()
	require.NoError(t, err)

	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: {Kind: KindAvlTree, Bytes: NewInsertOnlyAvlTreeData(digest, 32).Bytes()},
			R5: groupReg(owner),
			R6: longReg(0),
		},
	}

	_, err = NewNote(box, history)
	require.Error(t, err)
	var notSet *ErrFieldNotSet
	require.ErrorAs(t, err, &notSet)
}

func TestNewNoteRejectsExtraTokens(t *testing.T) {
	owner := randPub(t)
	history := notehistory.New()
	digest, err := history.Digest()
	require.NoError(t, err)

	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: {Kind: KindAvlTree, Bytes: NewInsertOnlyAvlTreeData(digest, 32).Bytes()},
			R5: groupReg(owner),
			R6: longReg(0),
		},
		Tokens: []TokenAmount{{ID: TokenID{7}, Amount: 1000}, {ID: TokenID{8}, Amount: 1}},
	}

	_, err = NewNote(box, history)
	require.Error(t, err)
	var invalid *ErrInvalidField
	require.ErrorAs(t, err, &invalid)
}

func TestNewNoteRejectsWrongRegisterType(t *testing.T) {
	owner := randPub(t)
	history := notehistory.New()
	digest, err := history.Digest()
	require.NoError(t, err)

	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: {Kind: KindAvlTree, Bytes: NewInsertOnlyAvlTreeData(digest, 32).Bytes()},
			R5: longReg(1), // wrong type: should be a group element
			R6: longReg(0),
		},
		Tokens: []TokenAmount{{ID: TokenID{1}, Amount: 1}},
	}
	_ = owner

	_, err = NewNote(box, history)
	require.Error(t, err)
	var badType *ErrInvalidType
	require.ErrorAs(t, err, &badType)
}

func TestNewNoteRejectsNegativeLength(t *testing.T) {
	owner := randPub(t)
	history := notehistory.New()
	digest, err := history.Digest()
	require.NoError(t, err)

	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: {Kind: KindAvlTree, Bytes: NewInsertOnlyAvlTreeData(digest, 32).Bytes()},
			R5: groupReg(owner),
			R6: longReg(-1),
		},
		Tokens: []TokenAmount{{ID: TokenID{1}, Amount: 1}},
	}

	_, err = NewNote(box, history)
	require.Error(t, err)
	var invalid *ErrInvalidField
	require.ErrorAs(t, err, &invalid)
}

func TestNewReserveBoxSpecWithoutRefundHeight(t *testing.T) {
	owner := randPub(t)
	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: groupReg(owner),
		},
		Tokens: []TokenAmount{{ID: TokenID{3}, Amount: 1}},
	}

	reserve, err := NewReserveBoxSpec(box)
	require.NoError(t, err)
	require.Nil(t, reserve.RefundHeight)
	require.True(t, reserve.Owner.IsEqual(owner))
	require.Equal(t, TokenID{3}, reserve.Identifier)
}

func TestNewReserveBoxSpecWithRefundHeight(t *testing.T) {
	owner := randPub(t)
	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: groupReg(owner),
			R5: longReg(1234),
		},
		Tokens: []TokenAmount{{ID: TokenID{3}, Amount: 1}},
	}

	reserve, err := NewReserveBoxSpec(box)
	require.NoError(t, err)
	require.NotNil(t, reserve.RefundHeight)
	require.Equal(t, int64(1234), *reserve.RefundHeight)
}

func TestNewReceiptBoxSpec(t *testing.T) {
	owner := randPub(t)
	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: {Kind: KindAvlTree, Bytes: NewInsertOnlyAvlTreeData([33]byte{5}, 32).Bytes()},
			R5: longReg(2),
			R6: intReg(900),
			R7: groupReg(owner),
		},
		Tokens: []TokenAmount{{ID: TokenID{4}, Amount: 500}},
	}

	receipt, err := NewReceiptBoxSpec(box)
	require.NoError(t, err)
	require.Equal(t, int64(2), receipt.Position)
	require.Equal(t, int32(900), receipt.Height)
	require.True(t, receipt.ReserveOwner.IsEqual(owner))
	require.Equal(t, uint64(500), receipt.Amount)
}

func TestNewOracleBoxSpecDividesToMilligrams(t *testing.T) {
	box := RawBox{
		Registers: map[RegisterID]Register{
			R4: longReg(65_000_000_000), // per-kg price; 65_000 per mg
		},
	}
	oracle, err := NewOracleBoxSpec(box)
	require.NoError(t, err)
	require.Equal(t, int64(65_000), oracle.PricePerMilligram())
}
