package nodeclient

import (
	"encoding/hex"
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
)

// wireToken is the JSON shape of one box asset entry.
type wireToken struct {
	TokenID string `json:"tokenId"`
	Amount  uint64 `json:"amount"`
}

// wireBox is the JSON shape of one ledger box. Each AdditionalRegisters
// value is a single byte tagging its RegisterKind, followed by the
// kind-specific payload, both hex-encoded together. This is this system's own register wire format —
// a deliberately simpler stand-in for on-chain Sigma-typed serialization,
// which this module never needs to interpret beyond the four kinds boxes
// already models (spec.md §1 treats contract bytes as opaque).
type wireBox struct {
	BoxID               string            `json:"boxId"`
	Value               uint64            `json:"value"`
	ErgoTree            string            `json:"ergoTree"`
	CreationHeight      int32             `json:"creationHeight"`
	Assets              []wireToken       `json:"assets"`
	AdditionalRegisters map[string]string `json:"additionalRegisters"`
	TransactionID       string            `json:"transactionId"`
	Index               uint16            `json:"index"`
}

func decodeHexFixed(field, s string, n int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("nodeclient: field %s: invalid hex: %w", field, err)
	}
	if n > 0 && len(b) != n {
		return nil, fmt.Errorf("nodeclient: field %s: want %d bytes, got %d", field, n, len(b))
	}
	return b, nil
}

func boxIDFromHex(field, s string) (boxes.BoxID, error) {
	b, err := decodeHexFixed(field, s, 32)
	if err != nil {
		return boxes.BoxID{}, err
	}
	var id boxes.BoxID
	copy(id[:], b)
	return id, nil
}

func txIDFromHex(field, s string) (boxes.TxID, error) {
	b, err := decodeHexFixed(field, s, 32)
	if err != nil {
		return boxes.TxID{}, err
	}
	var id boxes.TxID
	copy(id[:], b)
	return id, nil
}

// rawBoxFromWire translates the node's JSON box representation into the
// domain's RawBox.
func rawBoxFromWire(w wireBox) (boxes.RawBox, error) {
	id, err := boxIDFromHex("boxId", w.BoxID)
	if err != nil {
		return boxes.RawBox{}, err
	}
	tree, err := hex.DecodeString(w.ErgoTree)
	if err != nil {
		return boxes.RawBox{}, fmt.Errorf("nodeclient: field ergoTree: invalid hex: %w", err)
	}
	txID, err := txIDFromHex("transactionId", w.TransactionID)
	if err != nil {
		return boxes.RawBox{}, err
	}

	tokens := make([]boxes.TokenAmount, 0, len(w.Assets))
	for i, a := range w.Assets {
		tokID, err := boxIDFromHex(fmt.Sprintf("assets[%d].tokenId", i), a.TokenID)
		if err != nil {
			return boxes.RawBox{}, err
		}
		tokens = append(tokens, boxes.TokenAmount{ID: tokID, Amount: a.Amount})
	}

	registers := make(map[boxes.RegisterID]boxes.Register, len(w.AdditionalRegisters))
	for key, encoded := range w.AdditionalRegisters {
		id, err := registerIDFromWireKey(key)
		if err != nil {
			return boxes.RawBox{}, err
		}
		reg, err := registerFromWire(key, encoded)
		if err != nil {
			return boxes.RawBox{}, err
		}
		registers[id] = reg
	}

	return boxes.RawBox{
		ID:             id,
		Value:          w.Value,
		ErgoTree:       tree,
		CreationHeight: w.CreationHeight,
		Tokens:         tokens,
		Registers:      registers,
		TransactionID:  txID,
		Index:          w.Index,
	}, nil
}

func registerIDFromWireKey(key string) (boxes.RegisterID, error) {
	var n int
	if _, err := fmt.Sscanf(key, "R%d", &n); err != nil {
		return 0, fmt.Errorf("nodeclient: malformed register key %q: %w", key, err)
	}
	return boxes.RegisterID(n), nil
}

func registerFromWire(field, encoded string) (boxes.Register, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return boxes.Register{}, fmt.Errorf("nodeclient: register %s: invalid hex: %w", field, err)
	}
	if len(raw) < 1 {
		return boxes.Register{}, fmt.Errorf("nodeclient: register %s: empty", field)
	}
	return boxes.Register{Kind: boxes.RegisterKind(raw[0]), Bytes: raw[1:]}, nil
}

func registerToWire(r boxes.Register) string {
	return hex.EncodeToString(append([]byte{byte(r.Kind)}, r.Bytes...))
}

// wireTransaction is the JSON shape of `/blockchain/transaction/byId/{id}`.
type wireTransaction struct {
	ID         string          `json:"id"`
	Inputs     []wireTxInput   `json:"inputs"`
	DataInputs []wireDataInput `json:"dataInputs"`
	Outputs    []wireBox       `json:"outputs"`
}

type wireTxInput struct {
	BoxID     string            `json:"boxId"`
	Extension map[string]string `json:"extension"`
}

type wireDataInput struct {
	BoxID string `json:"boxId"`
}
