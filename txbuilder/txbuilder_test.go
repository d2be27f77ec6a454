package txbuilder

import (
	"context"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/contracts"
)

type fakeCompiler struct{}

func (fakeCompiler) Compile(ctx context.Context, source string) (boxes.ErgoTree, error) {
	tree := make(boxes.ErgoTree, 0, len(source)+1)
	tree = append(tree, 0x00)
	tree = append(tree, []byte(source)...)
	return tree, nil
}

func testContracts() *contracts.Cache {
	return contracts.NewCache(fakeCompiler{}, contracts.Sources{
		Reserve: "RESERVE",
		Receipt: "RECEIPT($reserveContractHash)",
		Note:    "NOTE($reserveContractHash,$receiptContractHash)",
	})
}

// fakeCollector returns exactly the boxes the test configures, ignoring the
// target/token parameters beyond basic bookkeeping.
type fakeCollector struct {
	boxes []boxes.RawBox
}

func (f *fakeCollector) CollectBoxes(ctx context.Context, target uint64, tokensRequired []boxes.TokenID, include []boxes.BoxID) ([]boxes.RawBox, error) {
	return f.boxes, nil
}

type fakeSubmitter struct {
	lastTx UnsignedTx
	txID   boxes.TxID
}

func (f *fakeSubmitter) SignAndSend(ctx context.Context, tx UnsignedTx) (Submitted, error) {
	f.lastTx = tx
	return Submitted{TxID: f.txID}, nil
}

func randKey(t *testing.T) (*big.Int, *btcec.PublicKey) {
	t.Helper()
	x, err := rand.Int(rand.Reader, btcec.S256().N)
	require.NoError(t, err)
	if x.Sign() == 0 {
		x = big.NewInt(1)
	}
	_, pub := btcec.PrivKeyFromBytes(x.FillBytes(make([]byte, 32)))
	return x, pub
}

func TestMintReserveComposesReserveOutput(t *testing.T) {
	_, issuer := randKey(t)
	collector := &fakeCollector{boxes: []boxes.RawBox{{ID: boxes.BoxID{1}, Value: 2_000_000_000}}}
	submitter := &fakeSubmitter{txID: boxes.TxID{9}}
	builder := New(testContracts(), collector, submitter, nil)

	reserve, submitted, err := builder.MintReserve(context.Background(), issuer, 1_500_000_000, TxContext{CurrentHeight: 100, Fee: 1_000_000})
	require.NoError(t, err)
	require.Equal(t, boxes.TxID{9}, submitted.TxID)
	require.Equal(t, boxes.BoxID{1}, reserve.Identifier)
	require.True(t, reserve.Owner.IsEqual(issuer))
	require.Equal(t, uint64(1_500_000_000), reserve.Box.Value)
	require.Len(t, submitter.lastTx.Outputs, 1)
}

func TestMintNoteComposesEmptyHistoryNote(t *testing.T) {
	_, owner := randKey(t)
	collector := &fakeCollector{boxes: []boxes.RawBox{{ID: boxes.BoxID{2}, Value: SafeUserMin + 1_000_000}}}
	submitter := &fakeSubmitter{txID: boxes.TxID{7}}
	builder := New(testContracts(), collector, submitter, nil)

	note, _, err := builder.MintNote(context.Background(), owner, 1000, TxContext{CurrentHeight: 10, Fee: 1_000_000})
	require.NoError(t, err)
	require.Equal(t, uint64(0), note.Length)
	require.Equal(t, uint64(1000), note.Amount)
	require.Equal(t, boxes.BoxID{2}, note.NoteID)
}

func TestTopUpReserveRejectsBelowMinimum(t *testing.T) {
	_, owner := randKey(t)
	reserve := &boxes.ReserveBoxSpec{Owner: owner, Identifier: boxes.BoxID{3}, Box: boxes.RawBox{ID: boxes.BoxID{3}, Value: 1_000_000_000}}
	builder := New(testContracts(), &fakeCollector{}, &fakeSubmitter{}, nil)

	_, _, err := builder.TopUpReserve(context.Background(), reserve, 1, TxContext{})
	require.Error(t, err)
	var tooSmall *ErrTopUpAmount
	require.ErrorAs(t, err, &tooSmall)
}

func TestTopUpReserveComposesIncreasedValue(t *testing.T) {
	_, owner := randKey(t)
	reserveBox := boxes.RawBox{ID: boxes.BoxID{3}, ErgoTree: boxes.ErgoTree{0x00}, Value: 1_000_000_000}
	reserve := &boxes.ReserveBoxSpec{Owner: owner, Identifier: boxes.BoxID{3}, Box: reserveBox}

	collector := &fakeCollector{boxes: []boxes.RawBox{reserveBox}}
	submitter := &fakeSubmitter{txID: boxes.TxID{1}}
	builder := New(testContracts(), collector, submitter, nil)

	updated, _, err := builder.TopUpReserve(context.Background(), reserve, MinTopUp, TxContext{Fee: 1_000_000})
	require.NoError(t, err)
	require.Equal(t, reserveBox.Value+MinTopUp, updated.Box.Value)
	require.Len(t, submitter.lastTx.Inputs, 1)
	require.Contains(t, submitter.lastTx.Inputs[0].Extension, extActionTag)
}

func mintedNote(t *testing.T, owner *btcec.PublicKey, amount uint64) *boxes.Note {
	t.Helper()
	collector := &fakeCollector{boxes: []boxes.RawBox{{ID: boxes.BoxID{4}, Value: SafeUserMin + 1_000_000}}}
	submitter := &fakeSubmitter{txID: boxes.TxID{4}}
	builder := New(testContracts(), collector, submitter, nil)
	note, _, err := builder.MintNote(context.Background(), owner, amount, TxContext{CurrentHeight: 1, Fee: 1_000_000})
	require.NoError(t, err)
	note.Box.ErgoTree = boxes.ErgoTree{0x00, 'N'}
	return note
}

func TestSpendNoteRejectsOverspend(t *testing.T) {
	sk, owner := randKey(t)
	_, recipient := randKey(t)
	note := mintedNote(t, owner, 10)

	builder := New(testContracts(), &fakeCollector{}, &fakeSubmitter{}, nil)
	reserve := &boxes.ReserveBoxSpec{Owner: owner, Identifier: boxes.BoxID{5}, Box: boxes.RawBox{ID: boxes.BoxID{5}}}

	_, _, err := builder.SpendNote(context.Background(), note, reserve, recipient, 11, sk, TxContext{})
	require.Error(t, err)
	var overspend *ErrNoteAmount
	require.ErrorAs(t, err, &overspend)
}

func TestSpendNoteProducesRecipientAndChange(t *testing.T) {
	sk, owner := randKey(t)
	_, recipient := randKey(t)
	note := mintedNote(t, owner, 10)

	reserveBox := boxes.RawBox{ID: boxes.BoxID{5}, Value: 1_000_000_000}
	reserve := &boxes.ReserveBoxSpec{Owner: owner, Identifier: boxes.BoxID{5}, Box: reserveBox}

	collector := &fakeCollector{boxes: []boxes.RawBox{{ID: boxes.BoxID{6}, Value: note.Box.Value + 1_000_000}}}
	submitter := &fakeSubmitter{txID: boxes.TxID{8}}
	builder := New(testContracts(), collector, submitter, nil)

	result, _, err := builder.SpendNote(context.Background(), note, reserve, recipient, 6, sk, TxContext{CurrentHeight: 2, Fee: 1_000_000})
	require.NoError(t, err)
	require.NotNil(t, result.Recipient)
	require.NotNil(t, result.Change)
	require.Equal(t, uint64(6), result.Recipient.Amount)
	require.Equal(t, uint64(4), result.Change.Amount)
	require.Equal(t, uint64(1), result.Recipient.Length)
	require.True(t, result.Recipient.Owner.IsEqual(recipient))
	require.True(t, result.Change.Owner.IsEqual(owner))
}

func TestRedeemNoteComputesSplitPerSpec(t *testing.T) {
	sk, owner := randKey(t)
	_, recipient := randKey(t)
	note := mintedNote(t, owner, 10)
	// Spend once so the history has an entry backed by reserve id {5}.
	reserveBox := boxes.RawBox{ID: boxes.BoxID{5}, Value: 1_000_000_000}
	reserve := &boxes.ReserveBoxSpec{Owner: owner, Identifier: boxes.BoxID{5}, Box: reserveBox}

	spendCollector := &fakeCollector{boxes: []boxes.RawBox{{ID: boxes.BoxID{6}, Value: note.Box.Value + 1_000_000}}}
	spendBuilder := New(testContracts(), spendCollector, &fakeSubmitter{txID: boxes.TxID{8}}, nil)
	spendResult, _, err := spendBuilder.SpendNote(context.Background(), note, reserve, recipient, 10, sk, TxContext{CurrentHeight: 2, Fee: 1_000_000})
	require.NoError(t, err)
	spent := spendResult.Recipient
	spent.Box.ID = boxes.BoxID{10}

	buyback := boxes.RawBox{ID: boxes.BoxID{11}, Value: 5_000_000, ErgoTree: boxes.ErgoTree{0x00, 'B'}}
	oracle := &boxes.OracleBoxSpec{PricePerKg: 1_000_000_000, Box: boxes.RawBox{ID: boxes.BoxID{12}}}

	redeemCollector := &fakeCollector{boxes: []boxes.RawBox{spent.Box, reserve.Box, buyback}}
	submitter := &fakeSubmitter{txID: boxes.TxID{13}}
	builder := New(testContracts(), redeemCollector, submitter, func(ctx context.Context) (*boxes.OracleBoxSpec, error) {
		return oracle, nil
	})

	result, _, err := builder.RedeemNote(context.Background(), spent, reserve, buyback, RedeemOptions{}, TxContext{CurrentHeight: 3, Fee: 0})
	require.NoError(t, err)
	// price = 1000 nanoerg/mg, amount=10 -> byFormula = 10*1000*98/100 = 9800
	// capacity = reserve.value - SafeUserMin = 1_000_000_000 - 1_000_000 = 999_000_000
	// redeemable = min(999_000_000, 9800) = 9800; to_oracle = 19; to_change = 9781
	require.Equal(t, reserveBox.Value-9800, result.Reserve.Box.Value)
	require.Equal(t, int64(0), result.Receipt.Position)
}
