package txbuilder

import (
	"context"
	"time"

	"github.com/chaincashlabs/chaincash/boxes"
)

// Context-extension keys for the reserve input of a top-up transaction.
// spec.md §4.5.2 lists three values under what reads as two duplicated
// key-0 entries; read as the on-chain contract's three-slot convention
// (action tag, sub-action, output index) — see DESIGN.md.
const (
	extActionTag   = 0
	extSubAction   = 1
	extOutputIndex = 2
)

const (
	actionTagTopUp     int32 = 10
	subActionTopUpOnly int32 = 1
)

// TopUpReserve composes a reserve top-up transaction: the existing reserve
// box plus wallet UTxOs selected to cover reserve.value+topUp+fee, emitting
// the same reserve box shape with value increased by topUp (spec.md
// §4.5.2).
func (b *Builder) TopUpReserve(ctx context.Context, reserve *boxes.ReserveBoxSpec, topUp uint64, txctx TxContext) (*boxes.ReserveBoxSpec, Submitted, error) {
	defer b.observe("txbuilder.topup_reserve", time.Now())

	if topUp < MinTopUp {
		return nil, Submitted{}, &ErrTopUpAmount{TopUp: topUp}
	}

	target := reserve.Box.Value + topUp + txctx.Fee
	selected, err := b.Collector.CollectBoxes(ctx, target, []boxes.TokenID{reserve.Identifier}, []boxes.BoxID{reserve.Box.ID})
	if err != nil {
		return nil, Submitted{}, &ErrBoxSelection{Target: target, Detail: err.Error()}
	}

	output := OutputCandidate{
		Value:          reserve.Box.Value + topUp,
		ErgoTree:       reserve.Box.ErgoTree,
		CreationHeight: int32(txctx.CurrentHeight),
		Tokens:         []boxes.TokenAmount{{ID: reserve.Identifier, Amount: 1}},
		Registers:      reserveRegisters(reserve),
	}

	inputs := wrapInputs(selected)
	markReserveExtension(inputs, reserve.Box.ID, ContextExtension{
		extActionTag:   ExtInt(actionTagTopUp),
		extSubAction:   ExtInt(subActionTopUpOnly),
		extOutputIndex: ExtInt(0),
	})

	unsigned := UnsignedTx{
		Inputs:        inputs,
		Outputs:       []OutputCandidate{output},
		Fee:           txctx.Fee,
		ChangeAddress: txctx.ChangeAddress,
	}

	submitted, err := b.Submitter.SignAndSend(ctx, unsigned)
	if err != nil {
		return nil, Submitted{}, &ErrTxBuilder{Detail: err.Error()}
	}

	updated := &boxes.ReserveBoxSpec{
		Owner:        reserve.Owner,
		RefundHeight: reserve.RefundHeight,
		Identifier:   reserve.Identifier,
		Box:          readBack(output, submitted.TxID, 0),
	}
	return updated, submitted, nil
}

func reserveRegisters(reserve *boxes.ReserveBoxSpec) map[boxes.RegisterID]boxes.Register {
	regs := map[boxes.RegisterID]boxes.Register{
		boxes.R4: boxes.GroupElementRegister(reserve.Owner),
	}
	if reserve.RefundHeight != nil {
		regs[boxes.R5] = boxes.LongRegister(*reserve.RefundHeight)
	}
	return regs
}

// markReserveExtension attaches ext to the input matching boxID, leaving
// every other input's extension untouched.
func markReserveExtension(inputs []Input, boxID boxes.BoxID, ext ContextExtension) {
	for i := range inputs {
		if inputs[i].Box.ID == boxID {
			inputs[i].Extension = ext
			return
		}
	}
}
