package boxes

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/notehistory"
)

// Note is the projection of a ledger box at the note contract: a claim on
// amount mg of gold backed by the reserve(s) recorded in its history.
type Note struct {
	Owner   *btcec.PublicKey
	Length  uint64
	NoteID  TokenID
	Amount  uint64
	History *notehistory.History
	Box     RawBox
}

// NewNote parses box as a note, validating it against history. Fails with
// ErrFieldNotSet/ErrInvalidType/ErrInvalidField for malformed registers or
// token lists, and ErrInvalidAVLDigest if box.R4 doesn't match
// history.Digest().
func NewNote(box RawBox, history *notehistory.History) (*Note, error) {
	tok, err := box.FirstToken()
	if err != nil {
		return nil, err
	}
	if len(box.Tokens) != 1 {
		return nil, &ErrInvalidField{Field: "tokens", Cause: fmt.Errorf("want exactly 1 token, got %d", len(box.Tokens))}
	}

	owner, err := GroupElement(box, R5)
	if err != nil {
		return nil, err
	}

	length, err := Long(box, R6)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, &ErrInvalidField{Field: "R6"}
	}

	avl, err := AvlTree(box, R4)
	if err != nil {
		return nil, err
	}
	historyDigest, err := history.Digest()
	if err != nil {
		return nil, err
	}
	if avl.Digest != historyDigest {
		return nil, &ErrInvalidAVLDigest{BoxDigest: avl.Digest, HistoryDigest: historyDigest}
	}

	return &Note{
		Owner:   owner,
		Length:  uint64(length),
		NoteID:  tok.ID,
		Amount:  tok.Amount,
		History: history,
		Box:     box,
	}, nil
}
