package nodeclient

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/scanner"
)

// WalletStatus calls `/wallet/status`, implementing scanner.StatusSource.
func (c *Client) WalletStatus(ctx context.Context) (scanner.WalletStatus, error) {
	var out struct {
		WalletHeight int32 `json:"walletHeight"`
	}
	if err := c.do(ctx, "GET", "/wallet/status", nil, &out); err != nil {
		return scanner.WalletStatus{}, err
	}
	return scanner.WalletStatus{WalletHeight: out.WalletHeight}, nil
}

// Addresses calls `/wallet/addresses`, returning the bank's own wallet
// addresses — used at startup to determine which pubkeys the scan
// lifecycle's tracking rules must cover.
func (c *Client) Addresses(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, "GET", "/wallet/addresses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rescan calls `/wallet/rescan/{height}`, implementing the rescan half of
// scanner.ScanRegistry.
func (c *Client) Rescan(ctx context.Context, fromHeight int32) error {
	path := fmt.Sprintf("/wallet/rescan/%d", fromHeight)
	return c.do(ctx, "POST", path, nil, nil)
}

// RequestRescan implements scanner.ScanRegistry.
func (c *Client) RequestRescan(ctx context.Context, fromHeight int32) error {
	return c.Rescan(ctx, fromHeight)
}

// WalletPubkeys resolves the bank's wallet addresses to their pubkeys, for
// the scan lifecycle's tracking rules and the HTTP surface's "filtered by
// wallet pubkeys" listings (spec.md §4.7, §6). This node's wallet addresses
// are hex-encoded compressed secp256k1 points rather than a real Ergo P2PK
// address encoding (see DESIGN.md) — that's a simplification of the "opaque
// contract bytes" kind this package already takes for registers, not a real
// address codec any pack repo demonstrates.
func (c *Client) WalletPubkeys(ctx context.Context) ([]*btcec.PublicKey, error) {
	addrs, err := c.Addresses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*btcec.PublicKey, 0, len(addrs))
	for i, a := range addrs {
		raw, err := hex.DecodeString(a)
		if err != nil {
			return nil, fmt.Errorf("nodeclient: wallet address %d: invalid hex: %w", i, err)
		}
		pub, err := btcec.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("nodeclient: wallet address %d: %w", i, err)
		}
		out = append(out, pub)
	}
	return out, nil
}

// GetPrivateKey calls `/wallet/getPrivateKey` for the scalar backing pub
// (hex-encoded compressed point). Wallet key storage is delegated to the
// node (spec.md §1 Non-goals: "wallet key storage") — this bank process
// never persists a private key itself, it asks the node for one exactly
// when a transfer signature needs to be produced.
func (c *Client) GetPrivateKey(ctx context.Context, pub string) (*big.Int, error) {
	var out struct {
		PrivateKey string `json:"privateKey"`
	}
	path := fmt.Sprintf("/wallet/getPrivateKey?pubkey=%s", pub)
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(out.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("nodeclient: decode private key: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}
