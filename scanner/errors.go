package scanner

import (
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
)

// ErrInvalidTransaction is returned when a transaction along the backward
// walk doesn't have the shape the note/reserve/receipt contracts guarantee
// (spec.md §4.6: "fail InvalidTransaction(tx.id)").
type ErrInvalidTransaction struct {
	TxID   boxes.TxID
	Detail string
}

func (e *ErrInvalidTransaction) Error() string {
	return fmt.Sprintf("scanner: invalid transaction %x: %s", e.TxID[:], e.Detail)
}

// ErrInvalidReserveBox is returned when a transaction's first data input
// doesn't carry the reserve contract's ErgoTree.
type ErrInvalidReserveBox struct {
	NoteID boxes.TokenID
	TxID   boxes.TxID
}

func (e *ErrInvalidReserveBox) Error() string {
	return fmt.Sprintf("scanner: invalid reserve box backing note %x in tx %x", e.NoteID[:], e.TxID[:])
}

// ErrInvalidContextExtension is returned when a spending proof's context
// extension is missing a key, or the key's value doesn't parse, that
// OwnershipEntry reconstruction requires.
type ErrInvalidContextExtension struct {
	Key    int
	Detail string
}

func (e *ErrInvalidContextExtension) Error() string {
	return fmt.Sprintf("scanner: invalid context extension key %d: %s", e.Key, e.Detail)
}
