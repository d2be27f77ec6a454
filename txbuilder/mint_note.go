package txbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/notehistory"
)

// MintNote composes a note-minting transaction: a SafeUserMin-value note box
// with an empty history digest, owned by owner, carrying goldAmountMg units
// of the newly minted note token (spec.md §4.5.3).
func (b *Builder) MintNote(ctx context.Context, owner *btcec.PublicKey, goldAmountMg uint64, txctx TxContext) (*boxes.Note, Submitted, error) {
	defer b.observe("txbuilder.mint_note", time.Now())

	noteContract, err := b.Contracts.Note(ctx)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: mint note: %w", err)
	}

	selected, err := b.Collector.CollectBoxes(ctx, SafeUserMin+txctx.Fee, nil, nil)
	if err != nil {
		return nil, Submitted{}, &ErrBoxSelection{Target: SafeUserMin + txctx.Fee, Detail: err.Error()}
	}
	noteID, err := firstInputBoxID(selected)
	if err != nil {
		return nil, Submitted{}, err
	}

	emptyHistory := notehistory.New()
	emptyDigest, err := emptyHistory.Digest()
	if err != nil {
		return nil, Submitted{}, err
	}

	output := OutputCandidate{
		Value:          SafeUserMin,
		ErgoTree:       noteContract.ErgoTree,
		CreationHeight: int32(txctx.CurrentHeight),
		Tokens:         []boxes.TokenAmount{{ID: noteID, Amount: goldAmountMg}},
		Registers: map[boxes.RegisterID]boxes.Register{
			boxes.R4: boxes.AvlTreeRegister(boxes.NewInsertOnlyAvlTreeData(emptyDigest, 32)),
			boxes.R5: boxes.GroupElementRegister(owner),
			boxes.R6: boxes.LongRegister(0),
		},
	}

	unsigned := UnsignedTx{
		Inputs:        wrapInputs(selected),
		Outputs:       []OutputCandidate{output},
		Fee:           txctx.Fee,
		ChangeAddress: txctx.ChangeAddress,
	}

	submitted, err := b.Submitter.SignAndSend(ctx, unsigned)
	if err != nil {
		return nil, Submitted{}, &ErrTxBuilder{Detail: err.Error()}
	}

	note, err := boxes.NewNote(readBack(output, submitted.TxID, 0), emptyHistory)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: mint note: read back: %w", err)
	}
	return note, submitted, nil
}
