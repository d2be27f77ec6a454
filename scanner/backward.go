package scanner

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/contracts"
	"github.com/chaincashlabs/chaincash/crypto/schnorr"
	"github.com/chaincashlabs/chaincash/internal/chainlog"
	"github.com/chaincashlabs/chaincash/notehistory"
	"github.com/chaincashlabs/chaincash/store"
)

// boxCacheSize bounds the backward walk's per-process box cache. A single
// walk rarely touches more than a handful of boxes per hop, but a box the
// walk's own scanner already fetched (e.g. a reserve reused as a data input
// across many transactions) is common enough to be worth not refetching.
const boxCacheSize = 256

// Ledger is the minimal read-only ledger surface the backward scanner
// needs: resolve a transaction's inputs/data-inputs/outputs, and fetch a
// box by id. The node-facing client implements this directly; tests use a
// fake.
type Ledger interface {
	GetTransaction(ctx context.Context, txID boxes.TxID) (*Transaction, error)
	GetBox(ctx context.Context, boxID boxes.BoxID) (boxes.RawBox, error)
}

// Backward reconstructs NoteHistory for freshly observed note boxes by
// walking the spend chain back to either a previously persisted note or the
// note's minting transaction.
type Backward struct {
	Ledger    Ledger
	Notes     store.NoteStore
	Contracts *contracts.Cache
	log       *chainlog.Logger
	boxCache  *lru.Cache[boxes.BoxID, boxes.RawBox]
}

// NewBackward builds a Backward scanner.
func NewBackward(ledger Ledger, notes store.NoteStore, contractCache *contracts.Cache) *Backward {
	cache, _ := lru.New[boxes.BoxID, boxes.RawBox](boxCacheSize)
	return &Backward{Ledger: ledger, Notes: notes, Contracts: contractCache, log: chainlog.New("scanner.backward"), boxCache: cache}
}

// getBox fetches a box through the walk's LRU cache, falling back to the
// ledger on a miss.
func (b *Backward) getBox(ctx context.Context, id boxes.BoxID) (boxes.RawBox, error) {
	if b.boxCache != nil {
		if box, ok := b.boxCache.Get(id); ok {
			return box, nil
		}
	}
	box, err := b.Ledger.GetBox(ctx, id)
	if err != nil {
		return boxes.RawBox{}, err
	}
	if b.boxCache != nil {
		b.boxCache.Add(id, box)
	}
	return box, nil
}

// Reconstruct walks noteBox's spend history backward — per store hit,
// reserve-contract mismatch, or the minting transaction — and returns a
// fully validated Note (digest-checked against the assembled history).
func (b *Backward) Reconstruct(ctx context.Context, noteBox boxes.RawBox) (*boxes.Note, error) {
	noteToken, err := noteBox.FirstToken()
	if err != nil {
		return nil, fmt.Errorf("scanner: note box %x has no token: %w", noteBox.ID[:], err)
	}

	noteContract, err := b.Contracts.Note(ctx)
	if err != nil {
		return nil, err
	}

	// collected accumulates entries newest-first as the walk moves
	// backward in time; it is reversed once, at the end, into
	// chronological (oldest-first) order for AddCommitment.
	var collected []notehistory.OwnershipEntry
	cur := noteBox

	// visited guards against the cycle risk spec.md §9 calls out: a store
	// entry sharing a box id with an unrelated transaction could otherwise
	// loop the walk forever despite the store-hit and mint-transaction
	// exits; this catches any cycle those two exits don't.
	visited := mapset.NewThreadUnsafeSet[boxes.BoxID]()

	for {
		if !visited.Add(cur.ID) {
			return nil, &ErrInvalidTransaction{TxID: cur.TransactionID, Detail: fmt.Sprintf("cycle detected at box %x", cur.ID[:])}
		}

		existing, err := b.Notes.GetNoteByBoxID(ctx, cur.ID)
		if err != nil {
			return nil, fmt.Errorf("scanner: store lookup for box %x: %w", cur.ID[:], err)
		}
		if existing != nil {
			for i := len(existing.OwnershipEntries) - 1; i >= 0; i-- {
				collected = append(collected, entryFromRow(existing.OwnershipEntries[i]))
			}
			if err := b.Notes.DeleteNote(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("scanner: delete superseded note %d: %w", existing.ID, err)
			}
			break
		}

		tx, err := b.Ledger.GetTransaction(ctx, cur.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("scanner: get transaction %x: %w", cur.TransactionID[:], err)
		}
		if len(tx.Inputs) == 0 {
			return nil, &ErrInvalidTransaction{TxID: tx.ID, Detail: "no inputs"}
		}

		if noteToken.ID == boxes.TokenID(tx.Inputs[0].BoxID) {
			if err := assertSingleNoteOutput(tx, noteToken.ID); err != nil {
				return nil, err
			}
			break
		}

		if len(tx.DataInputs) == 0 {
			return nil, &ErrInvalidTransaction{TxID: tx.ID, Detail: "no data inputs"}
		}
		reserveBox, err := b.getBox(ctx, tx.DataInputs[0])
		if err != nil {
			return nil, fmt.Errorf("scanner: get reserve box %x: %w", tx.DataInputs[0][:], err)
		}
		reserveContract, err := b.Contracts.Reserve(ctx)
		if err != nil {
			return nil, err
		}
		if !reserveBox.ErgoTree.Equal(reserveContract.ErgoTree) {
			return nil, &ErrInvalidReserveBox{NoteID: noteToken.ID, TxID: tx.ID}
		}
		reserveSpec, err := boxes.NewReserveBoxSpec(reserveBox)
		if err != nil {
			return nil, fmt.Errorf("scanner: parse reserve box %x: %w", reserveBox.ID[:], err)
		}

		entry, next, err := findSpendingInput(ctx, b, tx, noteContract.ErgoTree, noteToken.ID, reserveSpec.Identifier)
		if err != nil {
			return nil, err
		}
		collected = append(collected, entry)
		cur = next
	}

	history := notehistory.New()
	for i := len(collected) - 1; i >= 0; i-- {
		if _, err := history.AddCommitment(collected[i]); err != nil {
			return nil, fmt.Errorf("scanner: replay history for note %x: %w", noteBox.ID[:], err)
		}
	}
	b.log.Debug("reconstructed note history", "box_id", fmt.Sprintf("%x", noteBox.ID[:]), "entries", len(collected))
	return boxes.NewNote(noteBox, history)
}

func assertSingleNoteOutput(tx *Transaction, noteID boxes.TokenID) error {
	count := 0
	for _, o := range tx.Outputs {
		tok, err := o.FirstToken()
		if err == nil && tok.ID == noteID {
			count++
		}
	}
	if count != 1 {
		return &ErrInvalidTransaction{TxID: tx.ID, Detail: fmt.Sprintf("minting transaction carries %d note outputs, want 1", count)}
	}
	return nil
}

// findSpendingInput fetches every input box of tx concurrently (bounded by
// an errgroup, one goroutine per input) since a transaction can carry many
// inputs the walk otherwise has no other reason to serialize on, then scans
// the fetched boxes in input order for the one carrying the note token
// under the note contract.
func findSpendingInput(ctx context.Context, b *Backward, tx *Transaction, noteTree boxes.ErgoTree, noteID, reserveID boxes.TokenID) (notehistory.OwnershipEntry, boxes.RawBox, error) {
	fetched := make([]boxes.RawBox, len(tx.Inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range tx.Inputs {
		i, in := i, in
		g.Go(func() error {
			ib, err := b.getBox(gctx, in.BoxID)
			if err != nil {
				return fmt.Errorf("scanner: get input box %x: %w", in.BoxID[:], err)
			}
			fetched[i] = ib
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return notehistory.OwnershipEntry{}, boxes.RawBox{}, err
	}

	for i, ib := range fetched {
		tok, err := ib.FirstToken()
		if err != nil || tok.ID != noteID || !ib.ErgoTree.Equal(noteTree) {
			continue
		}
		entry, err := ownershipEntryFromContextExtension(tok.Amount, notehistory.TokenID(reserveID), tx.Inputs[i].Extension)
		if err != nil {
			return notehistory.OwnershipEntry{}, boxes.RawBox{}, err
		}
		return entry, ib, nil
	}
	return notehistory.OwnershipEntry{}, boxes.RawBox{}, &ErrInvalidTransaction{TxID: tx.ID, Detail: "no input carries the note token under the note contract"}
}

// ownershipEntryFromContextExtension reads context-extension keys 1 → a
// (compressed EcPoint) and 2 → z (big-endian scalar bytes), reconstructs
// the Schnorr signature, and pairs it with the caller-supplied amount and
// reserve id (spec.md §4.6).
func ownershipEntryFromContextExtension(amount uint64, reserveID notehistory.TokenID, ext Extension) (notehistory.OwnershipEntry, error) {
	aBytes, ok := ext[1]
	if !ok {
		return notehistory.OwnershipEntry{}, &ErrInvalidContextExtension{Key: 1, Detail: "missing"}
	}
	zBytes, ok := ext[2]
	if !ok {
		return notehistory.OwnershipEntry{}, &ErrInvalidContextExtension{Key: 2, Detail: "missing"}
	}
	aPub, err := btcec.ParsePubKey(aBytes)
	if err != nil {
		return notehistory.OwnershipEntry{}, &ErrInvalidContextExtension{Key: 1, Detail: err.Error()}
	}
	sig, err := schnorr.FromParts(aPub, zBytes)
	if err != nil {
		return notehistory.OwnershipEntry{}, &ErrInvalidContextExtension{Key: 2, Detail: err.Error()}
	}
	return notehistory.OwnershipEntry{ReserveID: reserveID, Amount: amount, Signature: sig}, nil
}

func entryFromRow(row store.OwnershipEntryRow) notehistory.OwnershipEntry {
	sig, err := schnorr.Parse(row.SignatureBytes)
	if err != nil {
		// A persisted row's signature was validated by the AVL+ tree at
		// insert time; a parse failure here means the stored bytes were
		// corrupted after the fact, which reconstruction cannot recover
		// from any more gracefully than propagating a zero signature that
		// fails the subsequent digest check.
		return notehistory.OwnershipEntry{ReserveID: notehistory.TokenID(row.ReserveNftID), Amount: row.Amount}
	}
	return notehistory.OwnershipEntry{ReserveID: notehistory.TokenID(row.ReserveNftID), Amount: row.Amount, Signature: sig}
}
