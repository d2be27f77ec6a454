package nodeclient

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/chaincashlabs/chaincash/boxes"
)

// OracleBox resolves the gold price oracle's current data-input box via the
// node's oracle-pool search endpoint, rather than a fixed box id — the
// oracle box id changes every epoch (SPEC_FULL.md §3 "Oracle box
// discovery"). OracleBoxContract is the oracle pool's well-known
// ErgoTree, configured once at startup since (unlike the bank's own
// contracts) it isn't compiled by this process.
type OracleBoxContract = boxes.ErgoTree

func (c *Client) OracleBox(ctx context.Context, contract OracleBoxContract) (*boxes.OracleBoxSpec, error) {
	var results []wireBox
	body := struct {
		ErgoTree string `json:"ergoTree"`
		Limit    int    `json:"limit"`
	}{ErgoTree: hex.EncodeToString(contract), Limit: 1}
	if err := c.do(ctx, "POST", "/blockchain/box/unspent/byErgoTree", body, &results); err != nil {
		return nil, fmt.Errorf("nodeclient: oracle box search: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("nodeclient: no live oracle box found")
	}
	box, err := rawBoxFromWire(results[0])
	if err != nil {
		return nil, err
	}
	return boxes.NewOracleBoxSpec(box)
}

// AsOracleLookup adapts OracleBox into the txbuilder.OracleLookup function
// signature the redeem composer depends on.
func (c *Client) AsOracleLookup(contract OracleBoxContract) func(ctx context.Context) (*boxes.OracleBoxSpec, error) {
	return func(ctx context.Context) (*boxes.OracleBoxSpec, error) {
		return c.OracleBox(ctx, contract)
	}
}
