package txbuilder

import (
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
)

// ErrChangeAddress signals the supplied change address could not be used
// (malformed, wrong network).
type ErrChangeAddress struct{ Address string }

func (e *ErrChangeAddress) Error() string {
	return fmt.Sprintf("txbuilder: invalid change address %q", e.Address)
}

// ErrBoxValue signals a box-value computation over/underflowed.
type ErrBoxValue struct{ Detail string }

func (e *ErrBoxValue) Error() string { return fmt.Sprintf("txbuilder: box value overflow: %s", e.Detail) }

// ErrTokenValue signals a malformed or non-conserving token amount.
type ErrTokenValue struct{ Detail string }

func (e *ErrTokenValue) Error() string { return fmt.Sprintf("txbuilder: token value error: %s", e.Detail) }

// ErrMissingBox signals a referenced box (data input, force-included input)
// could not be found.
type ErrMissingBox struct{ BoxID boxes.BoxID }

func (e *ErrMissingBox) Error() string { return fmt.Sprintf("txbuilder: missing box %x", e.BoxID[:]) }

// ErrBoxBuilder signals an output candidate failed its own internal
// invariants (e.g. zero value, nil ergo tree).
type ErrBoxBuilder struct{ Detail string }

func (e *ErrBoxBuilder) Error() string { return fmt.Sprintf("txbuilder: box builder: %s", e.Detail) }

// ErrBoxSelection signals the collector could not assemble enough input
// value/tokens.
type ErrBoxSelection struct {
	Target uint64
	Detail string
}

func (e *ErrBoxSelection) Error() string {
	return fmt.Sprintf("txbuilder: box selection for target %d failed: %s", e.Target, e.Detail)
}

// ErrTxBuilder is a catch-all for ledger-level build failures surfaced by
// the submitter.
type ErrTxBuilder struct{ Detail string }

func (e *ErrTxBuilder) Error() string { return fmt.Sprintf("txbuilder: %s", e.Detail) }

// ErrAddress signals a malformed network-encoded address.
type ErrAddress struct{ Address string }

func (e *ErrAddress) Error() string { return fmt.Sprintf("txbuilder: invalid address %q", e.Address) }

// ErrParsing is a catch-all for malformed input the builder could not
// interpret.
type ErrParsing struct{ Detail string }

func (e *ErrParsing) Error() string { return fmt.Sprintf("txbuilder: parse error: %s", e.Detail) }

// ErrNoteAmount is returned when a spend requests more than the input
// note carries.
type ErrNoteAmount struct{ InputAmount, OutputAmount uint64 }

func (e *ErrNoteAmount) Error() string {
	return fmt.Sprintf("txbuilder: spend amount %d exceeds note amount %d", e.OutputAmount, e.InputAmount)
}

// ErrTopUpAmount is returned when a top-up is below MinTopUp.
type ErrTopUpAmount struct{ TopUp uint64 }

func (e *ErrTopUpAmount) Error() string {
	return fmt.Sprintf("txbuilder: top-up amount %d below minimum %d", e.TopUp, MinTopUp)
}

// ErrReserveEntryNotFound is returned by redeem when the note's history has
// no entry backed by the given reserve identifier.
type ErrReserveEntryNotFound struct{ ReserveIdentifier boxes.BoxID }

func (e *ErrReserveEntryNotFound) Error() string {
	return fmt.Sprintf("txbuilder: no history entry backed by reserve %x", e.ReserveIdentifier[:])
}
