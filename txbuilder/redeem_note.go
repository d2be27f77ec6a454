package txbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/chaincashlabs/chaincash/boxes"
)

// RedeemOptions carries preconditions a caller may opt into. The source
// implementation hard-codes the buyback box's NFT per network; whether to
// cross-check it at redeem time was left undecided (spec.md §9 "Open
// question"). ExpectedBuybackNFT makes the check optional: when non-empty,
// RedeemNote verifies buyback carries that token before building anything.
type RedeemOptions struct {
	ExpectedBuybackNFT boxes.TokenID
}

// RedeemResult is the outcome of a redeem: the updated reserve and the new
// receipt proving the redeemed history entry was settled.
type RedeemResult struct {
	Reserve *boxes.ReserveBoxSpec
	Receipt *boxes.ReceiptBoxSpec
}

// mulDivFloor computes floor(a*b*c / divisor) without uint64 overflow,
// failing with ErrBoxValue if the result doesn't fit back into uint64.
func mulDivFloor(a, b, c, divisor uint64) (uint64, error) {
	x := new(uint256.Int).SetUint64(a)
	x.Mul(x, new(uint256.Int).SetUint64(b))
	if c != 1 {
		x.Mul(x, new(uint256.Int).SetUint64(c))
	}
	x.Div(x, new(uint256.Int).SetUint64(divisor))
	if !x.IsUint64() {
		return 0, &ErrBoxValue{Detail: "redeem computation overflows uint64"}
	}
	return x.Uint64(), nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, &ErrBoxValue{Detail: fmt.Sprintf("%d - %d underflows", a, b)}
	}
	return a - b, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func sumValues(boxes_ []boxes.RawBox) uint64 {
	var total uint64
	for _, b := range boxes_ {
		total += b.Value
	}
	return total
}

// RedeemNote composes a redeem transaction: the note and the backing
// reserve's highest-index matching history entry are consumed, the reserve
// pays out redeemable (split 0.2% to the buyback output, the rest to
// change), and a receipt proves the settlement (spec.md §4.5.5).
//
// Input order is [note, reserve, buyback, ...wallet_boxes]; the collector
// is called with those three as forced includes and is expected to return
// them first, in that order, followed by any additional wallet boxes it
// selected to cover the fee.
func (b *Builder) RedeemNote(ctx context.Context, note *boxes.Note, reserve *boxes.ReserveBoxSpec, buyback boxes.RawBox, opts RedeemOptions, txctx TxContext) (*RedeemResult, Submitted, error) {
	defer b.observe("txbuilder.redeem_note", time.Now())

	var zeroToken boxes.TokenID
	if opts.ExpectedBuybackNFT != zeroToken {
		tok, err := buyback.FirstToken()
		if err != nil {
			return nil, Submitted{}, err
		}
		if tok.ID != opts.ExpectedBuybackNFT {
			return nil, Submitted{}, fmt.Errorf("txbuilder: redeem: buyback box carries unexpected NFT %x", tok.ID[:])
		}
	}

	receiptContract, err := b.Contracts.Receipt(ctx)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: redeem note: %w", err)
	}

	oracle, err := b.Oracle(ctx)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: redeem note: oracle lookup: %w", err)
	}
	price := oracle.PricePerMilligram()
	if price < 0 {
		return nil, Submitted{}, &ErrBoxValue{Detail: "oracle price is negative"}
	}

	byFormula, err := mulDivFloor(note.Amount, uint64(price), 98, 100)
	if err != nil {
		return nil, Submitted{}, err
	}
	capacity, err := checkedSub(reserve.Box.Value, SafeUserMin)
	if err != nil {
		return nil, Submitted{}, err
	}
	redeemable := minUint64(capacity, byFormula)

	toOracle, err := mulDivFloor(redeemable, 2, 1, 1000)
	if err != nil {
		return nil, Submitted{}, err
	}
	toChange, err := checkedSub(redeemable, toOracle)
	if err != nil {
		return nil, Submitted{}, err
	}

	position := -1
	var matchedAmount uint64
	entries := note.History.OwnershipEntries()
	for i, e := range entries {
		if e.ReserveID == toHistoryTokenID(reserve.Identifier) {
			position = i
			matchedAmount = e.Amount
		}
	}
	if position < 0 {
		return nil, Submitted{}, &ErrReserveEntryNotFound{ReserveIdentifier: reserve.Identifier}
	}

	lookupProof, err := note.History.LookupProof(toHistoryTokenID(reserve.Identifier), position)
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: redeem note: %w", err)
	}

	selected, err := b.Collector.CollectBoxes(ctx, txctx.Fee, nil, []boxes.BoxID{note.Box.ID, reserve.Box.ID, buyback.ID})
	if err != nil {
		return nil, Submitted{}, &ErrBoxSelection{Target: txctx.Fee, Detail: err.Error()}
	}
	if len(selected) < 3 {
		return nil, Submitted{}, &ErrBoxSelection{Target: txctx.Fee, Detail: "collector dropped a forced-included box"}
	}
	extraWallet := selected[3:]

	reserveOutput := OutputCandidate{
		Value:          reserve.Box.Value - redeemable,
		ErgoTree:       reserve.Box.ErgoTree,
		CreationHeight: int32(txctx.CurrentHeight),
		Tokens:         []boxes.TokenAmount{{ID: reserve.Identifier, Amount: 1}},
		Registers:      reserveRegisters(reserve),
	}

	historyDigest, err := note.History.Digest()
	if err != nil {
		return nil, Submitted{}, err
	}
	receiptOutput := OutputCandidate{
		Value:          note.Box.Value,
		ErgoTree:       receiptContract.ErgoTree,
		CreationHeight: int32(txctx.CurrentHeight),
		Tokens:         []boxes.TokenAmount{{ID: note.NoteID, Amount: note.Amount}},
		Registers: map[boxes.RegisterID]boxes.Register{
			boxes.R4: boxes.AvlTreeRegister(boxes.NewReceiptAvlTreeData(historyDigest)),
			boxes.R5: boxes.LongRegister(int64(position)),
			boxes.R6: boxes.IntRegister(int32(txctx.CurrentHeight)),
			boxes.R7: boxes.GroupElementRegister(reserve.Owner),
		},
	}

	buybackOutput := OutputCandidate{
		Value:          buyback.Value + toOracle,
		ErgoTree:       buyback.ErgoTree,
		CreationHeight: int32(txctx.CurrentHeight),
		Tokens:         buyback.Tokens,
		Registers:      buyback.Registers,
	}

	changeValue, err := checkedSub(toChange+sumValues(extraWallet), txctx.Fee)
	if err != nil {
		return nil, Submitted{}, err
	}
	// ErgoTree is left nil: the submitter resolves txctx.ChangeAddress to a
	// P2PK tree when it builds the final signed transaction.
	changeOutput := OutputCandidate{
		Value:          changeValue,
		CreationHeight: int32(txctx.CurrentHeight),
	}

	inputs := wrapInputs(selected)
	markReserveExtension(inputs, reserve.Box.ID, ContextExtension{
		0: ExtInt(0),
		1: ExtBytes(lookupProof.Bytes()),
		2: ExtLong(int64(matchedAmount)),
		3: ExtInt(int32(position)),
		4: ExtBool(false),
	})
	markReserveExtension(inputs, note.Box.ID, ContextExtension{0: ExtInt(-1)})
	markReserveExtension(inputs, buyback.ID, ContextExtension{0: ExtInt(1)})

	unsigned := UnsignedTx{
		Inputs:        inputs,
		DataInputs:    []boxes.RawBox{oracle.Box},
		Outputs:       []OutputCandidate{reserveOutput, receiptOutput, buybackOutput, changeOutput},
		Fee:           txctx.Fee,
		ChangeAddress: txctx.ChangeAddress,
	}

	submitted, err := b.Submitter.SignAndSend(ctx, unsigned)
	if err != nil {
		return nil, Submitted{}, &ErrTxBuilder{Detail: err.Error()}
	}

	updatedReserve := &boxes.ReserveBoxSpec{
		Owner:        reserve.Owner,
		RefundHeight: reserve.RefundHeight,
		Identifier:   reserve.Identifier,
		Box:          readBack(reserveOutput, submitted.TxID, 0),
	}
	receiptSpec, err := boxes.NewReceiptBoxSpec(readBack(receiptOutput, submitted.TxID, 1))
	if err != nil {
		return nil, Submitted{}, fmt.Errorf("txbuilder: redeem note: read back receipt: %w", err)
	}

	return &RedeemResult{Reserve: updatedReserve, Receipt: receiptSpec}, submitted, nil
}
