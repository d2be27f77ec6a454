package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/chaincashlabs/chaincash/acceptance"
	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/contracts"
	"github.com/chaincashlabs/chaincash/store"
	"github.com/chaincashlabs/chaincash/txbuilder"
)

// --- txbuilder collaborator fakes, same shape as txbuilder_test.go's ---

type fakeCompiler struct{}

func (fakeCompiler) Compile(ctx context.Context, source string) (boxes.ErgoTree, error) {
	tree := make(boxes.ErgoTree, 0, len(source)+1)
	tree = append(tree, 0x00)
	tree = append(tree, []byte(source)...)
	return tree, nil
}

type fakeCollector struct{ boxes []boxes.RawBox }

func (f *fakeCollector) CollectBoxes(ctx context.Context, target uint64, tokensRequired []boxes.TokenID, include []boxes.BoxID) ([]boxes.RawBox, error) {
	return f.boxes, nil
}

type fakeSubmitter struct{ txID boxes.TxID }

func (f *fakeSubmitter) SignAndSend(ctx context.Context, tx txbuilder.UnsignedTx) (txbuilder.Submitted, error) {
	return txbuilder.Submitted{TxID: f.txID}, nil
}

// --- api collaborator fakes ---

type fakeBoxSource struct{ boxes map[boxes.BoxID]boxes.RawBox }

func (f *fakeBoxSource) GetBox(ctx context.Context, id boxes.BoxID) (boxes.RawBox, error) {
	b, ok := f.boxes[id]
	if !ok {
		return boxes.RawBox{}, badRequest("box not found")
	}
	return b, nil
}

type fakeHeightSource struct{ height int32 }

func (f *fakeHeightSource) IndexedHeight(ctx context.Context) (int32, error) { return f.height, nil }

type fakeKeySource struct{ keys map[string]*big.Int }

func (f *fakeKeySource) GetPrivateKey(ctx context.Context, pub string) (*big.Int, error) {
	k, ok := f.keys[pub]
	if !ok {
		return nil, badRequest("no such key")
	}
	return k, nil
}

type fakeWalletPubkeys struct{ pubkeys []*btcec.PublicKey }

func (f *fakeWalletPubkeys) WalletPubkeys(ctx context.Context) ([]*btcec.PublicKey, error) {
	return f.pubkeys, nil
}

// --- minimal in-memory store.Store fake ---

type memStore struct {
	notes    map[int64]store.NoteRow
	reserves map[boxes.TokenID]store.ReserveRow
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{notes: map[int64]store.NoteRow{}, reserves: map[boxes.TokenID]store.ReserveRow{}}
}

func (m *memStore) AddNote(ctx context.Context, row store.NoteRow) error {
	m.nextID++
	row.ID = m.nextID
	m.notes[row.ID] = row
	return nil
}
func (m *memStore) GetNoteByID(ctx context.Context, id int64) (*store.NoteRow, error) {
	row, ok := m.notes[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}
func (m *memStore) GetNoteByBoxID(ctx context.Context, boxID boxes.BoxID) (*store.NoteRow, error) {
	for _, row := range m.notes {
		if row.BoxID == boxID {
			return &row, nil
		}
	}
	return nil, nil
}
func (m *memStore) GetNoteByIdentifier(ctx context.Context, identifier boxes.TokenID) (*store.NoteRow, error) {
	for _, row := range m.notes {
		if row.Identifier == identifier {
			return &row, nil
		}
	}
	return nil, nil
}
func (m *memStore) DeleteNote(ctx context.Context, id int64) error { delete(m.notes, id); return nil }
func (m *memStore) ListNotesByPubkey(ctx context.Context, pub *btcec.PublicKey) ([]store.NoteRow, error) {
	var out []store.NoteRow
	for _, row := range m.notes {
		if row.Owner != nil && row.Owner.IsEqual(pub) {
			out = append(out, row)
		}
	}
	return out, nil
}
func (m *memStore) DeleteNotesNotIn(ctx context.Context, liveBoxIDs []boxes.BoxID) error { return nil }

func (m *memStore) AddOrUpdateReserve(ctx context.Context, row store.ReserveRow) error {
	m.reserves[row.Identifier] = row
	return nil
}
func (m *memStore) GetReserveByIdentifier(ctx context.Context, id boxes.TokenID) (*store.ReserveRow, error) {
	row, ok := m.reserves[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}
func (m *memStore) ListReservesByPubkey(ctx context.Context, pub *btcec.PublicKey) ([]store.ReserveRow, error) {
	var out []store.ReserveRow
	for _, row := range m.reserves {
		if row.Owner != nil && row.Owner.IsEqual(pub) {
			out = append(out, row)
		}
	}
	return out, nil
}
func (m *memStore) DeleteReservesNotIn(ctx context.Context, liveBoxIDs []boxes.BoxID) error { return nil }

func (m *memStore) AddScan(ctx context.Context, row store.ScanRow) error           { return nil }
func (m *memStore) DeleteScan(ctx context.Context, scanID int32) error             { return nil }
func (m *memStore) ListScansByType(ctx context.Context, t store.ScanType) ([]store.ScanRow, error) {
	return nil, nil
}

var _ store.Store = (*memStore)(nil)

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

func testServer(t *testing.T, db *memStore, boxSrc *fakeBoxSource, collector *fakeCollector, submitter *fakeSubmitter, keys *fakeKeySource, wallet *fakeWalletPubkeys, predicates []PredicateEntry) *Server {
	t.Helper()
	cache := contracts.NewCache(fakeCompiler{}, contracts.Sources{
		Reserve: "RESERVE",
		Receipt: "RECEIPT($reserveContractHash)",
		Note:    "NOTE($reserveContractHash,$receiptContractHash)",
	})
	builder := txbuilder.New(cache, collector, submitter, nil)
	return New(builder, db, boxSrc, &fakeHeightSource{height: 100}, keys, wallet, predicates, Config{ChangeAddress: "addr", Fee: 1_000_000})
}

func TestHealthcheck(t *testing.T) {
	srv := testServer(t, newMemStore(), &fakeBoxSource{boxes: map[boxes.BoxID]boxes.RawBox{}}, &fakeCollector{}, &fakeSubmitter{}, &fakeKeySource{}, &fakeWalletPubkeys{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestMintReserveHandlerSuccess(t *testing.T) {
	_, issuer := randKey(t)
	collector := &fakeCollector{boxes: []boxes.RawBox{{ID: boxes.BoxID{1}, Value: 2_000_000_000}}}
	submitter := &fakeSubmitter{txID: boxes.TxID{9}}
	srv := testServer(t, newMemStore(), &fakeBoxSource{boxes: map[boxes.BoxID]boxes.RawBox{}}, collector, submitter, &fakeKeySource{}, &fakeWalletPubkeys{}, nil)

	body := strings.NewReader(`{"public_key_hex":"` + hex.EncodeToString(issuer.SerializeCompressed()) + `","amount":1500000000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reserves/mint", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp mintReserveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	wantTxID := boxes.TxID{9}
	require.Equal(t, hex.EncodeToString(wantTxID[:]), resp.TxID)
	require.Equal(t, hex.EncodeToString(boxes.BoxID{1}[:]), resp.ReserveNftID)
}

func TestMintReserveHandlerBadPubkeyIs400(t *testing.T) {
	srv := testServer(t, newMemStore(), &fakeBoxSource{boxes: map[boxes.BoxID]boxes.RawBox{}}, &fakeCollector{}, &fakeSubmitter{}, &fakeKeySource{}, &fakeWalletPubkeys{}, nil)

	body := strings.NewReader(`{"public_key_hex":"not-hex","amount":100}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reserves/mint", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Error.Detail)
}

func TestListReservesFiltersByWalletPubkeys(t *testing.T) {
	_, owner := randKey(t)
	db := newMemStore()
	var identifier boxes.TokenID
	identifier[0] = 0xAB
	require.NoError(t, db.AddOrUpdateReserve(context.Background(), store.ReserveRow{
		Identifier: identifier, Owner: owner, Value: 500_000_000,
	}))
	wallet := &fakeWalletPubkeys{pubkeys: []*btcec.PublicKey{owner}}
	srv := testServer(t, db, &fakeBoxSource{boxes: map[boxes.BoxID]boxes.RawBox{}}, &fakeCollector{}, &fakeSubmitter{}, &fakeKeySource{}, wallet, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reserves", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []reserveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	require.Equal(t, hex.EncodeToString(identifier[:]), resp[0].ReserveID)
}

func TestListAcceptanceDescribesLoadedPredicates(t *testing.T) {
	predicates := []PredicateEntry{
		{Name: "issuers", Predicate: acceptance.Whitelist{Kind: acceptance.KindIssuer}},
		{Name: "collateralized", Predicate: acceptance.Collateral{Percent: 90, Algorithm: acceptance.AlgorithmInitial}},
	}
	srv := testServer(t, newMemStore(), &fakeBoxSource{boxes: map[boxes.BoxID]boxes.RawBox{}}, &fakeCollector{}, &fakeSubmitter{}, &fakeKeySource{}, &fakeWalletPubkeys{}, predicates)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/acceptance", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []acceptancePredicateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	require.Equal(t, "whitelist", resp[0].Type)
	require.Equal(t, "collateral", resp[1].Type)
}

func TestTopUpReserveUnknownReserveIs400(t *testing.T) {
	srv := testServer(t, newMemStore(), &fakeBoxSource{boxes: map[boxes.BoxID]boxes.RawBox{}}, &fakeCollector{}, &fakeSubmitter{}, &fakeKeySource{}, &fakeWalletPubkeys{}, nil)

	body := strings.NewReader(`{"reserve_id":"` + hex.EncodeToString(make([]byte, 32)) + `","top_up_amount":2000000000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reserves/topup", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
