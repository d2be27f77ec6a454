// Package store specifies the persistence primitives the bank requires:
// idempotent upserts for notes and reserves, cascading deletes, and
// reconciliation against the live on-chain box-id set the scanner observes
// (spec.md §4.9). It is an interface-only package — sqlstore is the
// concrete relational backend.
package store

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/boxes"
)

// OwnershipEntryRow is the persisted form of one notehistory.OwnershipEntry,
// with Position made explicit (spec.md §9: position is derived from list
// order, but persisted explicitly so storage doesn't depend on row order
// being stable).
type OwnershipEntryRow struct {
	Position       int
	ReserveNftID   boxes.TokenID
	Amount         uint64
	SignatureBytes []byte
}

// NoteRow is the persisted projection of a note box plus its history.
type NoteRow struct {
	ID               int64
	BoxID            boxes.BoxID
	Identifier       boxes.TokenID
	Owner            *btcec.PublicKey
	Value            uint64
	Length           uint64
	Denomination     *string
	BoxBytes         []byte
	OwnershipEntries []OwnershipEntryRow
}

// ReserveRow is the persisted projection of a reserve box. A given
// Identifier has at most one live row at a time.
type ReserveRow struct {
	ID           int64
	BoxID        boxes.BoxID
	Identifier   boxes.TokenID
	Owner        *btcec.PublicKey
	Value        uint64
	RefundHeight *int64
	BoxBytes     []byte
}

// ScanType names which of the three tracked contracts a Scan watches.
type ScanType string

const (
	ScanTypeReserve ScanType = "reserve"
	ScanTypeNote    ScanType = "note"
	ScanTypeReceipt ScanType = "receipt"
)

// ScanRow is the persisted mirror of a ledger-registered scan.
type ScanRow struct {
	ScanID   int32
	ScanType ScanType
	ScanName string
}

// Store is the full persistence surface the bank depends on.
type Store interface {
	NoteStore
	ReserveStore
	ScanStore
}

// NoteStore covers notes plus their backing ergo_boxes/ownership_entries
// rows. AddNote is atomic across all three tables.
type NoteStore interface {
	AddNote(ctx context.Context, row NoteRow) error
	GetNoteByID(ctx context.Context, id int64) (*NoteRow, error)
	GetNoteByBoxID(ctx context.Context, boxID boxes.BoxID) (*NoteRow, error)
	GetNoteByIdentifier(ctx context.Context, identifier boxes.TokenID) (*NoteRow, error)
	DeleteNote(ctx context.Context, id int64) error
	ListNotesByPubkey(ctx context.Context, pub *btcec.PublicKey) ([]NoteRow, error)
	// DeleteNotesNotIn deletes every note whose box id is not in liveBoxIDs,
	// cascading to its ergo_boxes and ownership_entries rows.
	DeleteNotesNotIn(ctx context.Context, liveBoxIDs []boxes.BoxID) error
}

// ReserveStore covers reserves plus their backing ergo_boxes row.
// AddOrUpdateReserve atomically replaces any prior live box for the same
// Identifier.
type ReserveStore interface {
	AddOrUpdateReserve(ctx context.Context, row ReserveRow) error
	GetReserveByIdentifier(ctx context.Context, id boxes.TokenID) (*ReserveRow, error)
	ListReservesByPubkey(ctx context.Context, pub *btcec.PublicKey) ([]ReserveRow, error)
	DeleteReservesNotIn(ctx context.Context, liveBoxIDs []boxes.BoxID) error
}

// ScanStore covers the persisted mirror of ledger-registered scans.
type ScanStore interface {
	AddScan(ctx context.Context, row ScanRow) error
	DeleteScan(ctx context.Context, scanID int32) error
	ListScansByType(ctx context.Context, t ScanType) ([]ScanRow, error)
}
