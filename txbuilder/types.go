// Package txbuilder assembles the five ledger transactions ChainCash issues:
// mint reserve, top-up reserve, mint note, spend note, and redeem note
// (spec.md §4.5). Every builder is a pure function of its inputs plus the
// collaborators passed to Builder — no global state, no retry logic; the
// caller decides whether a failed build is worth retrying.
package txbuilder

import (
	"context"
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
)

// SafeUserMin is the ledger's minimum box value in its base currency unit,
// below which a box is not ledger-relayable.
const SafeUserMin uint64 = 1_000_000

// MinTopUp is the smallest top-up amount the reserve contract accepts,
// "1 ERG" in base units (spec.md §4.5.2).
const MinTopUp uint64 = 1_000_000_000

// TxContext carries the per-build parameters every composition needs.
type TxContext struct {
	CurrentHeight uint32
	ChangeAddress string
	Fee           uint64
}

// ExtKind tags the Sigma type of one context-extension entry.
type ExtKind byte

const (
	ExtKindInt ExtKind = iota
	ExtKindLong
	ExtKindBool
	ExtKindBytes
)

// ExtValue is one value attached under a context-extension key on a
// transaction input.
type ExtValue struct {
	Kind  ExtKind
	Int   int32
	Long  int64
	Bool  bool
	Bytes []byte
}

func ExtInt(v int32) ExtValue     { return ExtValue{Kind: ExtKindInt, Int: v} }
func ExtLong(v int64) ExtValue    { return ExtValue{Kind: ExtKindLong, Long: v} }
func ExtBool(v bool) ExtValue     { return ExtValue{Kind: ExtKindBool, Bool: v} }
func ExtBytes(v []byte) ExtValue  { return ExtValue{Kind: ExtKindBytes, Bytes: v} }

// ContextExtension maps small integer keys to typed values, per spec.md
// §4.5's per-input extension tables.
type ContextExtension map[int]ExtValue

// Input is one transaction input: the box being spent plus its context
// extension.
type Input struct {
	Box       boxes.RawBox
	Extension ContextExtension
}

// OutputCandidate is one not-yet-built transaction output.
type OutputCandidate struct {
	Value          uint64
	ErgoTree       boxes.ErgoTree
	CreationHeight int32
	Tokens         []boxes.TokenAmount
	Registers      map[boxes.RegisterID]boxes.Register
}

// UnsignedTx is a fully assembled, not-yet-signed transaction ready for the
// ledger node's sign-and-send pipeline.
type UnsignedTx struct {
	Inputs        []Input
	DataInputs    []boxes.RawBox
	Outputs       []OutputCandidate
	Fee           uint64
	ChangeAddress string
}

// BoxCollector selects wallet UTxOs summing to at least target, optionally
// requiring tokensRequired to be present among the selected boxes and
// include to be force-included (e.g. an existing reserve box). Mirrors the
// ledger node's `/wallet/boxes/collect` endpoint.
type BoxCollector interface {
	CollectBoxes(ctx context.Context, target uint64, tokensRequired []boxes.TokenID, include []boxes.BoxID) ([]boxes.RawBox, error)
}

// Submitted is the result of building, signing, and sending a transaction.
type Submitted struct {
	TxID boxes.TxID
}

// TxSubmitter signs and sends an assembled transaction via the ledger
// node's wallet sign/send endpoints.
type TxSubmitter interface {
	SignAndSend(ctx context.Context, tx UnsignedTx) (Submitted, error)
}

// OracleLookup retrieves the current gold-price oracle box, used as a data
// input to the redeem transaction.
type OracleLookup func(ctx context.Context) (*boxes.OracleBoxSpec, error)

func firstInputBoxID(boxes_ []boxes.RawBox) (boxes.BoxID, error) {
	if len(boxes_) == 0 {
		return boxes.BoxID{}, fmt.Errorf("txbuilder: no input boxes selected")
	}
	return boxes_[0].ID, nil
}
