package txbuilder

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/notehistory"
)

// SpendResult is the outcome of a note spend: the recipient's new note and,
// if the input wasn't spent in full, the sender's change note.
type SpendResult struct {
	Recipient *boxes.Note
	Change    *boxes.Note
}

// SpendNote composes a note-transfer transaction. sk must derive note.Owner.
// amount must not exceed note.Amount (spec.md §4.5.4).
func (b *Builder) SpendNote(ctx context.Context, note *boxes.Note, reserve *boxes.ReserveBoxSpec, recipient *btcec.PublicKey, amount uint64, sk *big.Int, txctx TxContext) (*SpendResult, Submitted, error) {
	defer b.observe("txbuilder.spend_note", time.Now())

	if amount > note.Amount {
		return nil, Submitted{}, &ErrNoteAmount{InputAmount: note.Amount, OutputAmount: amount}
	}
	change := note.Amount - amount

	entry, err := notehistory.Sign(note.Length, note.Amount, toHistoryTokenID(note.NoteID), toHistoryTokenID(reserve.Identifier), sk, note.Owner)
	if err != nil {
		return nil, Submitted{}, err
	}

	clonedEntries := note.History.OwnershipEntries()
	clonedHistory := notehistory.FromEntries(clonedEntries)
	proofBytes, err := clonedHistory.AddCommitment(entry)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: spend note: %w", err)
	}
	newDigest, err := clonedHistory.Digest()
	if err != nil {
		return nil, Submitted{}, err
	}

	ergNeeded := txctx.Fee
	if change > 0 {
		ergNeeded += note.Box.Value
	}
	selected, err := b.Collector.CollectBoxes(ctx, ergNeeded, nil, []boxes.BoxID{note.Box.ID})
	if err != nil {
		return nil, Submitted{}, &ErrBoxSelection{Target: ergNeeded, Detail: err.Error()}
	}

	recipientOutput := OutputCandidate{
		Value:          note.Box.Value,
		ErgoTree:       note.Box.ErgoTree,
		CreationHeight: int32(txctx.CurrentHeight),
		Tokens:         []boxes.TokenAmount{{ID: note.NoteID, Amount: amount}},
		Registers: map[boxes.RegisterID]boxes.Register{
			boxes.R4: boxes.AvlTreeRegister(boxes.NewInsertOnlyAvlTreeData(newDigest, 32)),
			boxes.R5: boxes.GroupElementRegister(recipient),
			boxes.R6: boxes.LongRegister(int64(note.Length + 1)),
		},
	}

	outputs := []OutputCandidate{recipientOutput}
	extension := ContextExtension{
		0: ExtInt(0),
		1: ExtBytes(entry.Signature.ABytes()),
		2: ExtBytes(entry.Signature.ZBytes()),
		3: ExtBytes(proofBytes),
	}
	if change > 0 {
		changeOutput := OutputCandidate{
			Value:          note.Box.Value,
			ErgoTree:       note.Box.ErgoTree,
			CreationHeight: int32(txctx.CurrentHeight),
			Tokens:         []boxes.TokenAmount{{ID: note.NoteID, Amount: change}},
			Registers: map[boxes.RegisterID]boxes.Register{
				boxes.R4: boxes.AvlTreeRegister(boxes.NewInsertOnlyAvlTreeData(newDigest, 32)),
				boxes.R5: boxes.GroupElementRegister(note.Owner),
				boxes.R6: boxes.LongRegister(int64(note.Length + 1)),
			},
		}
		outputs = append(outputs, changeOutput)
		extension[4] = ExtInt(1)
	}

	inputs := wrapInputs(selected)
	markReserveExtension(inputs, note.Box.ID, extension)

	unsigned := UnsignedTx{
		Inputs:        inputs,
		DataInputs:    []boxes.RawBox{reserve.Box},
		Outputs:       outputs,
		Fee:           txctx.Fee,
		ChangeAddress: txctx.ChangeAddress,
	}

	submitted, err := b.Submitter.SignAndSend(ctx, unsigned)
	if err != nil {
		return nil, Submitted{}, &ErrTxBuilder{Detail: err.Error()}
	}

	recipientNote, err := boxes.NewNote(readBack(recipientOutput, submitted.TxID, 0), clonedHistory)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: spend note: read back recipient: %w", err)
	}
	result := &SpendResult{Recipient: recipientNote}
	if change > 0 {
		changeNote, err := boxes.NewNote(readBack(outputs[1], submitted.TxID, 1), clonedHistory)
		if err != nil {
			return nil, Submitted{}, fmt.Errorf("txbuilder: spend note: read back change: %w", err)
		}
		result.Change = changeNote
	}
	return result, submitted, nil
}

func toHistoryTokenID(id boxes.TokenID) notehistory.TokenID {
	return notehistory.TokenID(id)
}
