package scanner

import (
	"context"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/internal/chainlog"
	"github.com/chaincashlabs/chaincash/store"
)

// TrackingRule is the node-side scan predicate this package derives and
// compares — AND(CONTAINS(R1, script_bytes), OR(EQUALS(r_pk, pubkey_i)...))
// per spec.md §4.7. It's opaque to this package beyond its pubkey set and
// the contract it targets; registration/serialization to the node's scan
// JSON shape is the node client's concern.
type TrackingRule struct {
	ScanType store.ScanType
	Contract boxes.ErgoTree
	PubkeyRegister boxes.RegisterID
	Pubkeys  []*btcec.PublicKey
}

// PubkeySet returns the rule's pubkeys as a sorted set of compressed
// encodings, for order-independent comparison.
func (r TrackingRule) PubkeySet() []string {
	out := make([]string, len(r.Pubkeys))
	for i, p := range r.Pubkeys {
		out[i] = fmt.Sprintf("%x", p.SerializeCompressed())
	}
	sort.Strings(out)
	return out
}

// Covers reports whether r's pubkey set is a superset of want — i.e. an
// existing registered scan can be reused because it already watches every
// pubkey the wallet currently holds.
func (r TrackingRule) Covers(want []*btcec.PublicKey) bool {
	have := make(map[string]struct{}, len(r.Pubkeys))
	for _, p := range r.Pubkeys {
		have[fmt.Sprintf("%x", p.SerializeCompressed())] = struct{}{}
	}
	for _, p := range want {
		if _, ok := have[fmt.Sprintf("%x", p.SerializeCompressed())]; !ok {
			return false
		}
	}
	return true
}

// pubkeyRegisterFor returns the register a tracking rule compares against
// for each scan type (spec.md §4.7: R4 reserve, R5 note, R7 receipt).
func pubkeyRegisterFor(t store.ScanType) boxes.RegisterID {
	switch t {
	case store.ScanTypeReserve:
		return boxes.R4
	case store.ScanTypeNote:
		return boxes.R5
	case store.ScanTypeReceipt:
		return boxes.R7
	default:
		return 0
	}
}

// RegisteredScan is a scan as currently known to the ledger node (spec.md
// §4.7's "list ledger scans").
type RegisteredScan struct {
	ScanID int32
	Name   string
	Rule   TrackingRule
}

// ScanRegistry is the node-facing surface for listing and registering
// scans, and requesting a wallet rescan.
type ScanRegistry interface {
	ListScans(ctx context.Context) ([]RegisteredScan, error)
	RegisterScan(ctx context.Context, name string, rule TrackingRule) (int32, error)
	RequestRescan(ctx context.Context, fromHeight int32) error
}

// GenesisRescanHeight is the fixed safe height a full rescan starts from
// when any scan type needs re-registration.
const GenesisRescanHeight int32 = 0

// scanNameFor derives the persisted scan's canonical name, matched against
// the node's registered scan list at startup.
func scanNameFor(t store.ScanType) string {
	return fmt.Sprintf("chaincash-%s-scan", t)
}

// Lifecycle reconciles the bank's persisted scan records against the
// ledger node's live scan registry and the wallet's current pubkey set.
type Lifecycle struct {
	Registry ScanRegistry
	Scans    store.ScanStore
	log      *chainlog.Logger
}

// NewLifecycle builds a Lifecycle manager.
func NewLifecycle(registry ScanRegistry, scans store.ScanStore) *Lifecycle {
	return &Lifecycle{Registry: registry, Scans: scans, log: chainlog.New("scanner.lifecycle")}
}

// Reconcile runs the startup algorithm from spec.md §4.7 for one scan type:
// find a ledger-registered scan whose name matches the persisted record; if
// its pubkey set covers the wallet's current pubkeys, reuse it; otherwise
// register a new scan and report that a rescan is needed.
func (l *Lifecycle) Reconcile(ctx context.Context, t store.ScanType, contract boxes.ErgoTree, wallet []*btcec.PublicKey) (scanID int32, needsRescan bool, err error) {
	registered, err := l.Registry.ListScans(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("scanner: list scans: %w", err)
	}

	name := scanNameFor(t)
	var match *RegisteredScan
	for i := range registered {
		if registered[i].Name == name {
			match = &registered[i]
			break
		}
	}

	if match != nil && match.Rule.Covers(wallet) {
		if err := l.persist(ctx, t, match.ScanID, name); err != nil {
			return 0, false, err
		}
		l.log.Info("reusing existing scan", "type", t, "scan_id", match.ScanID)
		return match.ScanID, false, nil
	}

	if match != nil {
		l.log.Warn("registered scan no longer covers wallet pubkeys, re-registering", "type", t, "scan_id", match.ScanID)
	}

	rule := TrackingRule{ScanType: t, Contract: contract, PubkeyRegister: pubkeyRegisterFor(t), Pubkeys: wallet}
	newID, err := l.Registry.RegisterScan(ctx, name, rule)
	if err != nil {
		return 0, false, fmt.Errorf("scanner: register scan %s: %w", name, err)
	}
	if err := l.persist(ctx, t, newID, name); err != nil {
		return 0, false, err
	}
	l.log.Info("registered new scan", "type", t, "scan_id", newID)
	return newID, true, nil
}

func (l *Lifecycle) persist(ctx context.Context, t store.ScanType, scanID int32, name string) error {
	existing, err := l.Scans.ListScansByType(ctx, t)
	if err != nil {
		return fmt.Errorf("scanner: list persisted scans: %w", err)
	}
	for _, e := range existing {
		if e.ScanID != scanID {
			if err := l.Scans.DeleteScan(ctx, e.ScanID); err != nil {
				return fmt.Errorf("scanner: delete stale scan %d: %w", e.ScanID, err)
			}
		}
	}
	for _, e := range existing {
		if e.ScanID == scanID {
			return nil
		}
	}
	return l.Scans.AddScan(ctx, store.ScanRow{ScanID: scanID, ScanType: t, ScanName: name})
}

// ReconcileAll runs Reconcile for reserve, note, and receipt scans, and
// reports whether any of them required re-registration — triggering the
// full rescan from GenesisRescanHeight that spec.md §4.7 requires.
func (l *Lifecycle) ReconcileAll(ctx context.Context, reserveTree, noteTree, receiptTree boxes.ErgoTree, wallet []*btcec.PublicKey) (needsRescan bool, err error) {
	types := []struct {
		kind    store.ScanType
		contract boxes.ErgoTree
	}{
		{store.ScanTypeReserve, reserveTree},
		{store.ScanTypeNote, noteTree},
		{store.ScanTypeReceipt, receiptTree},
	}
	for _, tc := range types {
		_, rescan, err := l.Reconcile(ctx, tc.kind, tc.contract, wallet)
		if err != nil {
			return false, err
		}
		if rescan {
			needsRescan = true
		}
	}
	if needsRescan {
		if err := l.Registry.RequestRescan(ctx, GenesisRescanHeight); err != nil {
			return true, fmt.Errorf("scanner: request rescan: %w", err)
		}
		l.log.Warn("requested full wallet rescan", "from_height", GenesisRescanHeight)
	}
	return needsRescan, nil
}
