// Package boxes projects raw ledger UTxOs at the note/reserve/receipt/oracle
// contracts into typed, validated structures. Parsers are pure functions:
// no I/O, strict about missing registers, wrong types, and malformed token
// lists (spec.md §4.4).
package boxes

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/avltree"
)

// BoxID is a ledger box identifier — for NFTs, the box id of the first
// input of the transaction that minted the NFT becomes the token id.
type BoxID [32]byte

func (b BoxID) Bytes() []byte { return b[:] }

// TokenID identifies a token series (reserve NFT, note/receipt asset id).
type TokenID = BoxID

// TxID is a ledger transaction identifier.
type TxID [32]byte

// ErgoTree is the opaque compiled script attached to a box. Its contents are
// never interpreted by this module — only compared for equality against
// compiled contracts from the contracts package.
type ErgoTree []byte

func (t ErgoTree) Equal(other ErgoTree) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// RegisterID names one of a box's additional registers, R4 through R9.
type RegisterID int

const (
	R4 RegisterID = 4
	R5 RegisterID = 5
	R6 RegisterID = 6
	R7 RegisterID = 7
	R8 RegisterID = 8
	R9 RegisterID = 9
)

func (r RegisterID) String() string { return fmt.Sprintf("R%d", int(r)) }

// RegisterKind tags the Sigma type a register's bytes should be read as.
type RegisterKind byte

const (
	KindGroupElement RegisterKind = iota
	KindLong
	KindInt
	KindAvlTree
	KindByteArray
)

// Register is one typed register value attached to a box.
type Register struct {
	Kind  RegisterKind
	Bytes []byte
}

// TokenAmount is one entry of a box's token list.
type TokenAmount struct {
	ID     TokenID
	Amount uint64
}

// RawBox is the typed projection of a ledger node's box JSON: what
// nodeclient decodes a `/blockchain/box/byId/{id}` (or scan/collect)
// response into before the boxes package narrows it further into a Note,
// ReserveBoxSpec, ReceiptBoxSpec, or OracleBoxSpec.
type RawBox struct {
	ID             BoxID
	Value          uint64
	ErgoTree       ErgoTree
	CreationHeight int32
	Tokens         []TokenAmount
	Registers      map[RegisterID]Register
	TransactionID  TxID
	Index          uint16
}

// FirstToken returns the box's first token, or ErrFieldNotSet("tokens") if
// none is present.
func (b RawBox) FirstToken() (TokenAmount, error) {
	if len(b.Tokens) == 0 {
		return TokenAmount{}, &ErrFieldNotSet{Field: "tokens"}
	}
	return b.Tokens[0], nil
}

// ErrFieldNotSet is returned when a required register or token is absent.
type ErrFieldNotSet struct{ Field string }

func (e *ErrFieldNotSet) Error() string { return fmt.Sprintf("boxes: field not set: %s", e.Field) }

// ErrInvalidType is returned when a register holds the wrong Sigma type.
type ErrInvalidType struct {
	Field string
	Kind  RegisterKind
}

func (e *ErrInvalidType) Error() string {
	return fmt.Sprintf("boxes: field %s has unexpected type %d", e.Field, e.Kind)
}

// ErrInvalidField is returned when a register's bytes don't decode into a
// value that satisfies the field's invariant (wrong length, negative where
// non-negative is required, malformed token list, ...).
type ErrInvalidField struct {
	Field string
	Cause error
}

func (e *ErrInvalidField) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("boxes: invalid field %s: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("boxes: invalid field %s", e.Field)
}

func (e *ErrInvalidField) Unwrap() error { return e.Cause }

// ErrInvalidAVLDigest is returned by Note construction when the box's R4
// AVL+ digest does not equal the supplied history's digest.
type ErrInvalidAVLDigest struct {
	BoxDigest     avltree.Digest
	HistoryDigest avltree.Digest
}

func (e *ErrInvalidAVLDigest) Error() string {
	return fmt.Sprintf("boxes: box R4 digest %x does not match history digest %x", e.BoxDigest, e.HistoryDigest)
}

func register(b RawBox, id RegisterID) (Register, error) {
	r, ok := b.Registers[id]
	if !ok {
		return Register{}, &ErrFieldNotSet{Field: id.String()}
	}
	return r, nil
}

// GroupElement reads a register as a compressed secp256k1 public key.
func GroupElement(b RawBox, id RegisterID) (*btcec.PublicKey, error) {
	r, err := register(b, id)
	if err != nil {
		return nil, err
	}
	if r.Kind != KindGroupElement {
		return nil, &ErrInvalidType{Field: id.String(), Kind: r.Kind}
	}
	pub, err := btcec.ParsePubKey(r.Bytes)
	if err != nil {
		return nil, &ErrInvalidField{Field: id.String(), Cause: err}
	}
	return pub, nil
}

// Long reads a register as a signed 64-bit integer.
func Long(b RawBox, id RegisterID) (int64, error) {
	r, err := register(b, id)
	if err != nil {
		return 0, err
	}
	if r.Kind != KindLong {
		return 0, &ErrInvalidType{Field: id.String(), Kind: r.Kind}
	}
	if len(r.Bytes) != 8 {
		return 0, &ErrInvalidField{Field: id.String(), Cause: fmt.Errorf("want 8 bytes, got %d", len(r.Bytes))}
	}
	return int64(binary.BigEndian.Uint64(r.Bytes)), nil
}

// OptionalLong reads an optional Long register: returns (nil, nil) if unset.
func OptionalLong(b RawBox, id RegisterID) (*int64, error) {
	if _, ok := b.Registers[id]; !ok {
		return nil, nil
	}
	v, err := Long(b, id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Int reads a register as a signed 32-bit integer.
func Int(b RawBox, id RegisterID) (int32, error) {
	r, err := register(b, id)
	if err != nil {
		return 0, err
	}
	if r.Kind != KindInt {
		return 0, &ErrInvalidType{Field: id.String(), Kind: r.Kind}
	}
	if len(r.Bytes) != 4 {
		return 0, &ErrInvalidField{Field: id.String(), Cause: fmt.Errorf("want 4 bytes, got %d", len(r.Bytes))}
	}
	return int32(binary.BigEndian.Uint32(r.Bytes)), nil
}

// AvlTreeFlags mirrors the on-chain AvlTreeFlags bitmask; this system only
// ever produces InsertOnly trees.
type AvlTreeFlags byte

const (
	FlagsInsertOnly AvlTreeFlags = 1 << 2
)

// AvlTreeData is the decoded form of an AvlTree register: a 33-byte digest
// plus the flags and key length the on-chain contract enforces.
type AvlTreeData struct {
	Digest    avltree.Digest
	Flags     AvlTreeFlags
	KeyLength int32
}

// Bytes serializes an AvlTreeData register value: digest(33) || flags(1) ||
// keyLength(4, BE).
func (d AvlTreeData) Bytes() []byte {
	out := make([]byte, 0, 33+1+4)
	out = append(out, d.Digest[:]...)
	out = append(out, byte(d.Flags))
	var kl [4]byte
	binary.BigEndian.PutUint32(kl[:], uint32(d.KeyLength))
	out = append(out, kl[:]...)
	return out
}

// NewInsertOnlyAvlTreeData builds the register value for a fresh, insert-only
// tree at the given digest and key length (always 32 for this system).
func NewInsertOnlyAvlTreeData(digest avltree.Digest, keyLength int32) AvlTreeData {
	return AvlTreeData{Digest: digest, Flags: FlagsInsertOnly, KeyLength: keyLength}
}

// GroupElementRegister builds the register value for a compressed
// secp256k1 public key, the inverse of GroupElement.
func GroupElementRegister(pub *btcec.PublicKey) Register {
	return Register{Kind: KindGroupElement, Bytes: pub.SerializeCompressed()}
}

// LongRegister builds the register value for a signed 64-bit integer, the
// inverse of Long.
func LongRegister(v int64) Register {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return Register{Kind: KindLong, Bytes: b[:]}
}

// IntRegister builds the register value for a signed 32-bit integer, the
// inverse of Int.
func IntRegister(v int32) Register {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return Register{Kind: KindInt, Bytes: b[:]}
}

// AvlTreeRegister builds the register value for AvlTreeData, the inverse of
// AvlTree.
func AvlTreeRegister(d AvlTreeData) Register {
	return Register{Kind: KindAvlTree, Bytes: d.Bytes()}
}

// AvlTree reads a register as AvlTreeData.
func AvlTree(b RawBox, id RegisterID) (AvlTreeData, error) {
	r, err := register(b, id)
	if err != nil {
		return AvlTreeData{}, err
	}
	if r.Kind != KindAvlTree {
		return AvlTreeData{}, &ErrInvalidType{Field: id.String(), Kind: r.Kind}
	}
	if len(r.Bytes) != 33+1+4 {
		return AvlTreeData{}, &ErrInvalidField{Field: id.String(), Cause: fmt.Errorf("want %d bytes, got %d", 33+1+4, len(r.Bytes))}
	}
	var d AvlTreeData
	copy(d.Digest[:], r.Bytes[:33])
	d.Flags = AvlTreeFlags(r.Bytes[33])
	d.KeyLength = int32(binary.BigEndian.Uint32(r.Bytes[34:38]))
	return d, nil
}
