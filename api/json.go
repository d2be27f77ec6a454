package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/boxes"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := Translate(err)
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("malformed request body: " + err.Error())
	}
	return nil
}

func parsePubkeyHex(field, s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, badRequest(field + ": invalid hex")
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, badRequest(field + ": invalid public key: " + err.Error())
	}
	return pub, nil
}

func parseTokenIDHex(field, s string) (boxes.TokenID, error) {
	var id boxes.TokenID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, badRequest(field + ": must be 32 bytes of hex")
	}
	copy(id[:], raw)
	return id, nil
}
