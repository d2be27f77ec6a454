package nodeclient

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/scanner"
)

// wireTrackingRule is the node's scan-registration predicate: match boxes
// at ergoTree whose pubkeyRegister decodes to one of pubkeys.
type wireTrackingRule struct {
	ErgoTree       string   `json:"ergoTree"`
	PubkeyRegister string   `json:"pubkeyRegister"`
	Pubkeys        []string `json:"pubkeys"`
}

type wireScanRegistration struct {
	ScanName string           `json:"scanName"`
	Rule     wireTrackingRule `json:"trackingRule"`
}

type wireScan struct {
	ScanID int32            `json:"scanId"`
	Name   string           `json:"scanName"`
	Rule   wireTrackingRule `json:"trackingRule"`
}

func trackingRuleToWire(r scanner.TrackingRule) wireTrackingRule {
	pubkeys := make([]string, len(r.Pubkeys))
	for i, pub := range r.Pubkeys {
		pubkeys[i] = hex.EncodeToString(pub.SerializeCompressed())
	}
	return wireTrackingRule{
		ErgoTree:       hex.EncodeToString(r.Contract),
		PubkeyRegister: r.PubkeyRegister.String(),
		Pubkeys:        pubkeys,
	}
}

func trackingRuleFromWire(w wireTrackingRule) (scanner.TrackingRule, error) {
	tree, err := hex.DecodeString(w.ErgoTree)
	if err != nil {
		return scanner.TrackingRule{}, fmt.Errorf("nodeclient: scan ergoTree: invalid hex: %w", err)
	}
	var regID int
	if _, err := fmt.Sscanf(w.PubkeyRegister, "R%d", &regID); err != nil {
		return scanner.TrackingRule{}, fmt.Errorf("nodeclient: scan pubkeyRegister %q: %w", w.PubkeyRegister, err)
	}
	pubkeys := make([]*btcec.PublicKey, 0, len(w.Pubkeys))
	for i, encoded := range w.Pubkeys {
		raw, err := hex.DecodeString(encoded)
		if err != nil {
			return scanner.TrackingRule{}, fmt.Errorf("nodeclient: scan pubkeys[%d]: invalid hex: %w", i, err)
		}
		pub, err := btcec.ParsePubKey(raw)
		if err != nil {
			return scanner.TrackingRule{}, fmt.Errorf("nodeclient: scan pubkeys[%d]: %w", i, err)
		}
		pubkeys = append(pubkeys, pub)
	}
	return scanner.TrackingRule{
		Contract:       boxes.ErgoTree(tree),
		PubkeyRegister: boxes.RegisterID(regID),
		Pubkeys:        pubkeys,
	}, nil
}

// ListScans calls `/scan/listAll`, implementing scanner.ScanRegistry.
func (c *Client) ListScans(ctx context.Context) ([]scanner.RegisteredScan, error) {
	var wireScans []wireScan
	if err := c.do(ctx, "GET", "/scan/listAll", nil, &wireScans); err != nil {
		return nil, err
	}
	out := make([]scanner.RegisteredScan, 0, len(wireScans))
	for _, w := range wireScans {
		rule, err := trackingRuleFromWire(w.Rule)
		if err != nil {
			return nil, err
		}
		out = append(out, scanner.RegisteredScan{ScanID: w.ScanID, Name: w.Name, Rule: rule})
	}
	return out, nil
}

// RegisterScan calls `/scan/register`, implementing scanner.ScanRegistry.
func (c *Client) RegisterScan(ctx context.Context, name string, rule scanner.TrackingRule) (int32, error) {
	req := wireScanRegistration{ScanName: name, Rule: trackingRuleToWire(rule)}
	var out struct {
		ScanID int32 `json:"scanId"`
	}
	if err := c.do(ctx, "POST", "/scan/register", req, &out); err != nil {
		return 0, err
	}
	return out.ScanID, nil
}

// UnspentBoxes calls `/scan/unspentBoxes/{id}`, implementing
// scanner.ScanBoxes.
func (c *Client) UnspentBoxes(ctx context.Context, scanID int32) ([]boxes.RawBox, error) {
	var wireBoxes []wireBox
	path := fmt.Sprintf("/scan/unspentBoxes/%d", scanID)
	if err := c.do(ctx, "GET", path, nil, &wireBoxes); err != nil {
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
