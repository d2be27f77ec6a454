// Package scanner implements the two ledger-facing reconstruction jobs the
// bank depends on: the backward history walk that turns a freshly observed
// note box into a full NoteHistory (spec.md §4.6), and the scan lifecycle
// that keeps the node's registered box scans in sync with the wallet's
// pubkey set (spec.md §4.7).
package scanner

import "github.com/chaincashlabs/chaincash/boxes"

// Extension is a parsed spending-proof context extension: the small
// key→value map a transaction input attaches to prove its right to spend,
// keyed the way the ledger node reports it over its REST surface.
type Extension map[int][]byte

// TxInput is one input of a Transaction, carrying the context extension the
// backward scanner needs to reconstruct signatures from.
type TxInput struct {
	BoxID     boxes.BoxID
	Extension Extension
}

// Transaction is the minimal ledger transaction shape the backward scanner
// walks: inputs (with their spending proofs), the first data input (the
// reserve box bound at spend time), and outputs.
type Transaction struct {
	ID         boxes.TxID
	Inputs     []TxInput
	DataInputs []boxes.BoxID
	Outputs    []boxes.RawBox
}
