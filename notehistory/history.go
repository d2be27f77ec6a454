// Package notehistory implements a note's ordered ownership history: the
// list of signatures authorizing each transfer, plus the AVL+ commitment
// tree whose digest is stored on-chain in the note's R4 register.
package notehistory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/avltree"
	"github.com/chaincashlabs/chaincash/crypto/schnorr"
)

// TokenID identifies a reserve NFT (or note/receipt token): the 32-byte box
// id of the transaction input that minted it.
type TokenID [32]byte

func (t TokenID) Bytes() []byte { return t[:] }

// OwnershipEntry records that the owner of a note at one position in its
// history authorized a transfer of Amount units while backed by reserve
// ReserveID.
type OwnershipEntry struct {
	ReserveID TokenID
	Amount    uint64
	Signature schnorr.Signature
}

// SignMessage builds the 48-byte message a note transfer signs:
// BE64(length) || BE64(amount) || note_id.
func SignMessage(length, amount uint64, noteID TokenID) []byte {
	msg := make([]byte, 8+8+32)
	binary.BigEndian.PutUint64(msg[0:8], length)
	binary.BigEndian.PutUint64(msg[8:16], amount)
	copy(msg[16:], noteID[:])
	return msg
}

// Sign authorizes a transfer of amount units of the note at the given chain
// length and note id, backed by reserveID, using private key x. It fails
// with *schnorr.ErrInvalidPrivateKey if x does not derive owner.
func Sign(length, amount uint64, noteID TokenID, reserveID TokenID, x *big.Int, owner *btcec.PublicKey) (OwnershipEntry, error) {
	derived, err := schnorr.PrivToPub(x)
	if err != nil {
		return OwnershipEntry{}, err
	}
	if !derived.IsEqual(owner) {
		return OwnershipEntry{}, &schnorr.ErrInvalidPrivateKey{
			Expected: owner, Found: derived,
			ExpectedHex: fmt.Sprintf("%x", owner.SerializeCompressed()),
			FoundHex:    fmt.Sprintf("%x", derived.SerializeCompressed()),
		}
	}
	msg := SignMessage(length, amount, noteID)
	sig, err := schnorr.Sign(msg, x)
	if err != nil {
		return OwnershipEntry{}, err
	}
	return OwnershipEntry{ReserveID: reserveID, Amount: amount, Signature: sig}, nil
}

// ErrDuplicateReserveKey is returned by AddCommitment when reserve_id already
// appears in an earlier entry.
type ErrDuplicateReserveKey struct{ ReserveID TokenID }

func (e *ErrDuplicateReserveKey) Error() string {
	return fmt.Sprintf("notehistory: reserve %x already present in history", e.ReserveID[:])
}

// reserveKeyLen is the AVL+ tree's fixed key length: a 32-byte reserve id.
const reserveKeyLen = 32

// History is the ordered sequence of a note's ownership entries, plus the
// AVL+ tree committing to them. It is append-only between persisted
// snapshots: a spend replaces the whole note, it never rewrites history.
//
// Per the source design, History does not keep a live mutable prover
// shared across calls — AddCommitment rebuilds a fresh avltree.Tree from
// the stored ordered entries on every mutation, so a History is safe to
// reconstruct and mutate from any goroutine as long as the caller doesn't
// share one instance across concurrent mutations.
type History struct {
	entries []OwnershipEntry
}

// New returns an empty history. Its digest equals the digest of an empty
// AVL+ tree of key length 32.
func New() *History {
	return &History{}
}

// FromEntries rebuilds a History from a previously persisted ordered entry
// list (store.NoteRow.OwnershipEntries, or the reversed walk the backward
// scanner assembles).
func FromEntries(entries []OwnershipEntry) *History {
	cp := append([]OwnershipEntry(nil), entries...)
	return &History{entries: cp}
}

// OwnershipEntries returns the in-order entry list.
func (h *History) OwnershipEntries() []OwnershipEntry {
	return append([]OwnershipEntry(nil), h.entries...)
}

// rebuildTree replays every stored entry into a fresh AVL+ tree. Called
// before every mutation and every digest computation that isn't cached, per
// the "no shared mutable prover" design constraint (spec.md §9).
func (h *History) rebuildTree() (*avltree.Tree, error) {
	tree := avltree.New(reserveKeyLen)
	for _, e := range h.entries {
		if _, err := tree.Insert(e.ReserveID.Bytes(), e.Signature.Bytes()); err != nil {
			return nil, fmt.Errorf("notehistory: corrupt history replay: %w", err)
		}
	}
	return tree, nil
}

// Digest returns the AVL+ tree's 33-byte root digest — the value committed
// to in the note's R4 register.
func (h *History) Digest() (avltree.Digest, error) {
	tree, err := h.rebuildTree()
	if err != nil {
		return avltree.Digest{}, err
	}
	return tree.Digest(), nil
}

// AddCommitment rebuilds a prover from the existing entries, inserts the new
// entry keyed by its reserve id, and — only on success — appends it to the
// in-memory entry list. It returns the serialized AD insertion proof.
//
// Fails with *ErrDuplicateReserveKey if entry.ReserveID already appears in
// an earlier entry; the history is left unchanged.
func (h *History) AddCommitment(entry OwnershipEntry) ([]byte, error) {
	tree, err := h.rebuildTree()
	if err != nil {
		return nil, err
	}
	proof, err := tree.Insert(entry.ReserveID.Bytes(), entry.Signature.Bytes())
	if err != nil {
		var dup *avltree.ErrDuplicateKey
		if errors.As(err, &dup) {
			return nil, &ErrDuplicateReserveKey{ReserveID: entry.ReserveID}
		}
		return nil, fmt.Errorf("notehistory: insert: %w", err)
	}
	h.entries = append(h.entries, entry)
	return proof.Bytes(), nil
}

// LookupProof returns a membership proof for the entry backed by reserveID,
// used by the redeem transaction to prove a signature is present in the
// note's committed history. position must match the entry's index in
// OwnershipEntries (position is derived from list order — spec.md §9).
func (h *History) LookupProof(reserveID TokenID, position int) (avltree.MembershipProof, error) {
	if position < 0 || position >= len(h.entries) {
		return avltree.MembershipProof{}, fmt.Errorf("notehistory: position %d out of range", position)
	}
	if h.entries[position].ReserveID != reserveID {
		return avltree.MembershipProof{}, fmt.Errorf("notehistory: entry at position %d is not backed by reserve %x", position, reserveID[:])
	}
	tree, err := h.rebuildTree()
	if err != nil {
		return avltree.MembershipProof{}, err
	}
	return tree.Lookup(reserveID.Bytes())
}
