package boxes

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/avltree"
)

// ReceiptBoxSpec is the projection of a ledger box at the receipt contract,
// produced by a redeem transaction as proof that a note's history entry at
// Position was settled against a reserve owned by ReserveOwner.
type ReceiptBoxSpec struct {
	NoteID       TokenID
	Amount       uint64
	HistoryAVL   AvlTreeData
	Position     int64
	Height       int32
	ReserveOwner *btcec.PublicKey
	Box          RawBox
}

// NewReceiptBoxSpec parses box as a receipt.
func NewReceiptBoxSpec(box RawBox) (*ReceiptBoxSpec, error) {
	tok, err := box.FirstToken()
	if err != nil {
		return nil, err
	}

	avl, err := AvlTree(box, R4)
	if err != nil {
		return nil, err
	}

	position, err := Long(box, R5)
	if err != nil {
		return nil, err
	}

	height, err := Int(box, R6)
	if err != nil {
		return nil, err
	}

	reserveOwner, err := GroupElement(box, R7)
	if err != nil {
		return nil, err
	}

	return &ReceiptBoxSpec{
		NoteID:       tok.ID,
		Amount:       tok.Amount,
		HistoryAVL:   avl,
		Position:     position,
		Height:       height,
		ReserveOwner: reserveOwner,
		Box:          box,
	}, nil
}

// NewReceiptAvlTreeData adapts a note history digest into the register value
// a receipt's R4 stores: same insert-only AVL tree shape a note's R4 uses.
func NewReceiptAvlTreeData(digest avltree.Digest) AvlTreeData {
	return NewInsertOnlyAvlTreeData(digest, reserveKeyLength)
}

// reserveKeyLength is the fixed AVL+ key length (a 32-byte reserve id) used
// throughout note histories and their receipt projections.
const reserveKeyLength = 32
