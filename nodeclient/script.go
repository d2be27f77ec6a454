package nodeclient

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
)

// Compile calls `/script/p2sAddress`, implementing contracts.Compiler. The
// node compiles ErgoScript source into a P2S address; this wrapper decodes
// the address's embedded tree bytes back into an ErgoTree, since that's
// the only form the rest of this module ever compares or hashes.
func (c *Client) Compile(ctx context.Context, source string) (boxes.ErgoTree, error) {
	req := struct {
		Source string `json:"source"`
	}{Source: source}
	var out struct {
		ErgoTreeHex string `json:"ergoTree"`
	}
	if err := c.do(ctx, "POST", "/script/p2sAddress", req, &out); err != nil {
		return nil, err
	}
	tree, err := hex.DecodeString(out.ErgoTreeHex)
	if err != nil {
		return nil, fmt.Errorf("nodeclient: decode compiled ergoTree: %w", err)
	}
	return tree, nil
}
