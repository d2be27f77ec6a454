package nodeclient

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/txbuilder"
)

func randHex(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func TestGetBoxDecodesWireShape(t *testing.T) {
	boxID := randHex(t, 32)
	tokenID := randHex(t, 32)
	txID := randHex(t, 32)
	_, pub := btcKeyPair(t)
	pubHex := hex.EncodeToString(pub.SerializeCompressed())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/blockchain/box/byId/"+boxID, r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("api_key"))
		resp := wireBox{
			BoxID:          boxID,
			Value:          1_000_000_000,
			ErgoTree:       "00aa",
			CreationHeight: 100,
			Assets:         []wireToken{{TokenID: tokenID, Amount: 1}},
			AdditionalRegisters: map[string]string{
				"R4": registerToWire(boxes.GroupElementRegister(pub)),
			},
			TransactionID: txID,
			Index:         0,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", nil)
	var id boxes.BoxID
	idBytes, _ := hex.DecodeString(boxID)
	copy(id[:], idBytes)

	box, err := c.GetBox(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), box.Value)
	require.Len(t, box.Tokens, 1)
	reg, ok := box.Registers[boxes.R4]
	require.True(t, ok)
	require.Equal(t, boxes.KindGroupElement, reg.Kind)
	require.Equal(t, pubHex, hex.EncodeToString(reg.Bytes))
}

func TestGetBoxPropagatesNodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("box not found"))
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	_, err := c.GetBox(context.Background(), boxes.BoxID{})
	require.Error(t, err)
	var nodeErr *ErrNodeRequest
	require.ErrorAs(t, err, &nodeErr)
	require.Equal(t, http.StatusNotFound, nodeErr.StatusCode)
}

func TestGetTransactionDecodesInputsAndExtensions(t *testing.T) {
	txID := randHex(t, 32)
	inputBoxID := randHex(t, 32)
	dataInputBoxID := randHex(t, 32)
	outBoxID := randHex(t, 32)
	outTokenID := randHex(t, 32)
	outTxID := randHex(t, 32)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := wireTransaction{
			ID: txID,
			Inputs: []wireTxInput{
				{BoxID: inputBoxID, Extension: map[string]string{"1": "aabbcc"}},
			},
			DataInputs: []wireDataInput{{BoxID: dataInputBoxID}},
			Outputs: []wireBox{
				{
					BoxID:          outBoxID,
					Value:          500,
					ErgoTree:       "01",
					CreationHeight: 1,
					Assets:         []wireToken{{TokenID: outTokenID, Amount: 1}},
					TransactionID:  outTxID,
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	var id boxes.TxID
	idBytes, _ := hex.DecodeString(txID)
	copy(id[:], idBytes)

	tx, err := c.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, tx.Inputs, 1)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc}, tx.Inputs[0].Extension[1])
	require.Len(t, tx.DataInputs, 1)
	require.Len(t, tx.Outputs, 1)
}

func TestListScansAndRegisterScanRoundTrip(t *testing.T) {
	_, pub := btcKeyPair(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/scan/listAll", func(w http.ResponseWriter, r *http.Request) {
		resp := []wireScan{{
			ScanID: 7,
			Name:   "chaincash-reserve-scan",
			Rule: wireTrackingRule{
				ErgoTree:       "00aa",
				PubkeyRegister: "R4",
				Pubkeys:        []string{hex.EncodeToString(pub.SerializeCompressed())},
			},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	mux.HandleFunc("/scan/register", func(w http.ResponseWriter, r *http.Request) {
		var req wireScanRegistration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "chaincash-note-scan", req.ScanName)
		require.NoError(t, json.NewEncoder(w).Encode(struct {
			ScanID int32 `json:"scanId"`
		}{ScanID: 9}))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "", nil)
	scans, err := c.ListScans(context.Background())
	require.NoError(t, err)
	require.Len(t, scans, 1)
	require.Equal(t, int32(7), scans[0].ScanID)
	require.Equal(t, boxes.R4, scans[0].Rule.PubkeyRegister)
	require.Len(t, scans[0].Rule.Pubkeys, 1)

	id, err := c.RegisterScan(context.Background(), "chaincash-note-scan", scans[0].Rule)
	require.NoError(t, err)
	require.Equal(t, int32(9), id)
}

func TestCollectBoxesSendsTargetAndConstraints(t *testing.T) {
	var captured wireCollectRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		require.NoError(t, json.NewEncoder(w).Encode([]wireBox{}))
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	var tokenID boxes.TokenID
	_, err := c.CollectBoxes(context.Background(), 1_000_000_000, []boxes.TokenID{tokenID}, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), captured.TargetBalance)
	require.Len(t, captured.TokensRequired, 1)
}

func TestSignAndSendChainsSignThenSend(t *testing.T) {
	sentTxID := randHex(t, 32)
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet/transaction/sign", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(struct {
			SignedTx map[string]interface{} `json:"signedTransaction"`
		}{SignedTx: map[string]interface{}{"stub": true}}))
	})
	mux.HandleFunc("/wallet/transaction/send", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(struct {
			TxID string `json:"txId"`
		}{TxID: sentTxID}))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "", nil)
	submitted, err := c.SignAndSend(context.Background(), txbuilder.UnsignedTx{Fee: 1000})
	require.NoError(t, err)
	want, _ := hex.DecodeString(sentTxID)
	require.Equal(t, want, submitted.TxID[:])
}

func TestCompileDecodesErgoTree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(struct {
			ErgoTreeHex string `json:"ergoTree"`
		}{ErgoTreeHex: "00aabb"}))
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	tree, err := c.Compile(context.Background(), "{ sigmaProp(true) }")
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0xaa, 0xbb}, []byte(tree))
}

func btcKeyPair(t *testing.T) (*btcec.PrivateKey, *btcec.PublicKey) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv, priv.PubKey()
}
