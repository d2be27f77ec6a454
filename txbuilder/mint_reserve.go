package txbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/boxes"
)

// MintReserve composes a reserve-minting transaction: inputs selected to
// cover amount+fee, one reserve output of value amount whose NFT id is the
// box id of the first selected input (spec.md §4.5.1).
func (b *Builder) MintReserve(ctx context.Context, issuer *btcec.PublicKey, amount uint64, txctx TxContext) (*boxes.ReserveBoxSpec, Submitted, error) {
	defer b.observe("txbuilder.mint_reserve", time.Now())

	reserveContract, err := b.Contracts.Reserve(ctx)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: mint reserve: %w", err)
	}

	selected, err := b.Collector.CollectBoxes(ctx, amount+txctx.Fee, nil, nil)
	if err != nil {
		return nil, Submitted{}, &ErrBoxSelection{Target: amount + txctx.Fee, Detail: err.Error()}
	}
	nftID, err := firstInputBoxID(selected)
	if err != nil {
		return nil, Submitted{}, err
	}

	output := OutputCandidate{
		Value:          amount,
		ErgoTree:       reserveContract.ErgoTree,
		CreationHeight: int32(txctx.CurrentHeight),
		Tokens:         []boxes.TokenAmount{{ID: nftID, Amount: 1}},
		Registers: map[boxes.RegisterID]boxes.Register{
			boxes.R4: boxes.GroupElementRegister(issuer),
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

	reserve := &boxes.ReserveBoxSpec{
		Owner:      issuer,
		Identifier: nftID,
		Box:        readBack(output, submitted.TxID, 0),
	}
	return reserve, submitted, nil
}

// wrapInputs attaches an empty context extension to each selected box,
// preserving ledger iteration order.
func wrapInputs(selected []boxes.RawBox) []Input {
	inputs := make([]Input, len(selected))
	for i, box := range selected {
		inputs[i] = Input{Box: box, Extension: ContextExtension{}}
	}
	return inputs
}

// readBack builds the RawBox projection of an output this Builder just
// assembled, for callers that want the typed spec without a round trip to
// the ledger. The resulting box id is not yet known (it's a hash the
// ledger computes over the full signed transaction) and is left zero.
func readBack(output OutputCandidate, txID boxes.TxID, index uint16) boxes.RawBox {
	return boxes.RawBox{
		Value:          output.Value,
		ErgoTree:       output.ErgoTree,
		CreationHeight: output.CreationHeight,
		Tokens:         output.Tokens,
		Registers:      output.Registers,
		TransactionID:  txID,
		Index:          index,
	}
}
