package nodeclient

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/scanner"
)

// IndexedHeight calls `/blockchain/indexedHeight`.
func (c *Client) IndexedHeight(ctx context.Context) (int32, error) {
	var out struct {
		IndexedHeight int32 `json:"indexedHeight"`
	}
	if err := c.do(ctx, "GET", "/blockchain/indexedHeight", nil, &out); err != nil {
		return 0, err
	}
	return out.IndexedHeight, nil
}

// GetBox calls `/blockchain/box/byId/{id}`, implementing scanner.Ledger.
func (c *Client) GetBox(ctx context.Context, boxID boxes.BoxID) (boxes.RawBox, error) {
	var w wireBox
	path := fmt.Sprintf("/blockchain/box/byId/%s", hex.EncodeToString(boxID[:]))
	if err := c.do(ctx, "GET", path, nil, &w); err != nil {
		return boxes.RawBox{}, err
	}
	return rawBoxFromWire(w)
}

// GetTransaction calls `/blockchain/transaction/byId/{id}`, implementing
// scanner.Ledger.
func (c *Client) GetTransaction(ctx context.Context, txID boxes.TxID) (*scanner.Transaction, error) {
	var w wireTransaction
	path := fmt.Sprintf("/blockchain/transaction/byId/%s", hex.EncodeToString(txID[:]))
	if err := c.do(ctx, "GET", path, nil, &w); err != nil {
		return nil, err
	}
	return transactionFromWire(w)
}

// BlockTransactions calls `/blocks/{id}/transactions` to list a block's
// transactions. Neither `cmd/chaincash console` nor the scanner calls it;
// the scanner follows individual transactions via GetTransaction during
// the backward walk.
func (c *Client) BlockTransactions(ctx context.Context, blockID string) ([]*scanner.Transaction, error) {
	var wireTxs []wireTransaction
	path := fmt.Sprintf("/blocks/%s/transactions", blockID)
	if err := c.do(ctx, "GET", path, nil, &wireTxs); err != nil {
		return nil, err
	}
	out := make([]*scanner.Transaction, 0, len(wireTxs))
	for _, w := range wireTxs {
		tx, err := transactionFromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func transactionFromWire(w wireTransaction) (*scanner.Transaction, error) {
	id, err := txIDFromHex("id", w.ID)
	if err != nil {
		return nil, err
	}

	inputs := make([]scanner.TxInput, 0, len(w.Inputs))
	for i, in := range w.Inputs {
		boxID, err := boxIDFromHex(fmt.Sprintf("inputs[%d].boxId", i), in.BoxID)
		if err != nil {
			return nil, err
		}
		ext := make(scanner.Extension, len(in.Extension))
		for key, encoded := range in.Extension {
			var k int
			if _, err := fmt.Sscanf(key, "%d", &k); err != nil {
				return nil, fmt.Errorf("nodeclient: malformed extension key %q: %w", key, err)
			}
			raw, err := hex.DecodeString(encoded)
			if err != nil {
				return nil, fmt.Errorf("nodeclient: extension key %s: invalid hex: %w", key, err)
			}
			ext[k] = raw
		}
		inputs = append(inputs, scanner.TxInput{BoxID: boxID, Extension: ext})
	}

	dataInputs := make([]boxes.BoxID, 0, len(w.DataInputs))
	for i, di := range w.DataInputs {
		boxID, err := boxIDFromHex(fmt.Sprintf("dataInputs[%d].boxId", i), di.BoxID)
		if err != nil {
			return nil, err
		}
		dataInputs = append(dataInputs, boxID)
	}

	outputs := make([]boxes.RawBox, 0, len(w.Outputs))
	for _, o := range w.Outputs {
		rb, err := rawBoxFromWire(o)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, rb)
	}

	return &scanner.Transaction{ID: id, Inputs: inputs, DataInputs: dataInputs, Outputs: outputs}, nil
}
