package nodeclient

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/txbuilder"
)

// wireCollectRequest is the request body for `/wallet/boxes/collect`.
type wireCollectRequest struct {
	TargetBalance  uint64   `json:"targetBalance"`
	TokensRequired []string `json:"tokensRequired,omitempty"`
	Include        []string `json:"include,omitempty"`
}

// CollectBoxes calls `/wallet/boxes/collect`, implementing
// txbuilder.BoxCollector.
func (c *Client) CollectBoxes(ctx context.Context, target uint64, tokensRequired []boxes.TokenID, include []boxes.BoxID) ([]boxes.RawBox, error) {
	req := wireCollectRequest{TargetBalance: target}
	for _, t := range tokensRequired {
		req.TokensRequired = append(req.TokensRequired, hex.EncodeToString(t[:]))
	}
	for _, id := range include {
		req.Include = append(req.Include, hex.EncodeToString(id[:]))
	}

	var wireBoxes []wireBox
	if err := c.do(ctx, "POST", "/wallet/boxes/collect", req, &wireBoxes); err != nil {
		return nil, err
	}
	out := make([]boxes.RawBox, 0, len(wireBoxes))
	for _, w := range wireBoxes {
		rb, err := rawBoxFromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, rb)
	}
	return out, nil
}

// extValueToWire encodes one context-extension value the same
// kind-byte-prefixed way registerToWire encodes a register: a single byte
// tagging txbuilder.ExtKind, followed by the kind's fixed-width or raw
// payload, hex-encoded together.
func extValueToWire(v txbuilder.ExtValue) string {
	var payload []byte
	switch v.Kind {
	case txbuilder.ExtKindInt:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, uint32(v.Int))
	case txbuilder.ExtKindLong:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(v.Long))
	case txbuilder.ExtKindBool:
		if v.Bool {
			payload = []byte{1}
		} else {
			payload = []byte{0}
		}
	case txbuilder.ExtKindBytes:
		payload = v.Bytes
	}
	return hex.EncodeToString(append([]byte{byte(v.Kind)}, payload...))
}

type wireInput struct {
	BoxID     string            `json:"boxId"`
	Extension map[string]string `json:"extension,omitempty"`
}

type wireOutputCandidate struct {
	Value               uint64            `json:"value"`
	ErgoTree            string            `json:"ergoTree"`
	CreationHeight      int32             `json:"creationHeight"`
	Assets              []wireToken       `json:"assets,omitempty"`
	AdditionalRegisters map[string]string `json:"additionalRegisters,omitempty"`
}

type wireUnsignedTx struct {
	Inputs        []wireInput           `json:"inputs"`
	DataInputs    []string              `json:"dataInputs,omitempty"`
	Outputs       []wireOutputCandidate `json:"outputs"`
	Fee           uint64                `json:"fee"`
	ChangeAddress string                `json:"changeAddress,omitempty"`
}

func unsignedTxToWire(tx txbuilder.UnsignedTx) wireUnsignedTx {
	w := wireUnsignedTx{Fee: tx.Fee, ChangeAddress: tx.ChangeAddress}

	for _, in := range tx.Inputs {
		wi := wireInput{BoxID: hex.EncodeToString(in.Box.ID[:])}
		if len(in.Extension) > 0 {
			wi.Extension = make(map[string]string, len(in.Extension))
			for key, v := range in.Extension {
				wi.Extension[fmt.Sprintf("%d", key)] = extValueToWire(v)
			}
		}
		w.Inputs = append(w.Inputs, wi)
	}

	for _, di := range tx.DataInputs {
		w.DataInputs = append(w.DataInputs, hex.EncodeToString(di.ID[:]))
	}

	for _, o := range tx.Outputs {
		wo := wireOutputCandidate{
			Value:          o.Value,
			ErgoTree:       hex.EncodeToString(o.ErgoTree),
			CreationHeight: o.CreationHeight,
		}
		for _, t := range o.Tokens {
			wo.Assets = append(wo.Assets, wireToken{TokenID: hex.EncodeToString(t.ID[:]), Amount: t.Amount})
		}
		if len(o.Registers) > 0 {
			wo.AdditionalRegisters = make(map[string]string, len(o.Registers))
			for regID, reg := range o.Registers {
				wo.AdditionalRegisters[regID.String()] = registerToWire(reg)
			}
		}
		w.Outputs = append(w.Outputs, wo)
	}

	return w
}

// SignAndSend calls `/wallet/transaction/sign` followed by
// `/wallet/transaction/send`, implementing txbuilder.TxSubmitter.
func (c *Client) SignAndSend(ctx context.Context, tx txbuilder.UnsignedTx) (txbuilder.Submitted, error) {
	wire := unsignedTxToWire(tx)

	var signed struct {
		SignedTx interface{} `json:"signedTransaction"`
	}
	if err := c.do(ctx, "POST", "/wallet/transaction/sign", wire, &signed); err != nil {
		return txbuilder.Submitted{}, fmt.Errorf("nodeclient: sign transaction: %w", err)
	}

	var sent struct {
		TxID string `json:"txId"`
	}
	if err := c.do(ctx, "POST", "/wallet/transaction/send", signed.SignedTx, &sent); err != nil {
		return txbuilder.Submitted{}, fmt.Errorf("nodeclient: send transaction: %w", err)
	}

	txID, err := txIDFromHex("txId", sent.TxID)
	if err != nil {
		return txbuilder.Submitted{}, err
	}
	return txbuilder.Submitted{TxID: txID}, nil
}
