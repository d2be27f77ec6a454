package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/internal/chainlog"
	"github.com/chaincashlabs/chaincash/internal/metrics"
	"github.com/chaincashlabs/chaincash/store"
)

// WalletStatus is the subset of `/wallet/status` the poller needs to decide
// whether a new tick's work is due (spec.md §5: "advancing only when
// wallet.status.wallet_height changes").
type WalletStatus struct {
	WalletHeight int32
}

// StatusSource reports the wallet's current indexed height.
type StatusSource interface {
	WalletStatus(ctx context.Context) (WalletStatus, error)
}

// ScanBoxes fetches the live unspent box set for a registered scan.
type ScanBoxes interface {
	UnspentBoxes(ctx context.Context, scanID int32) ([]boxes.RawBox, error)
}

// Poller is the scanner's top-level background task: a one-second ticker
// (the spec's fixed backoff) that, only on a wallet-height change,
// reconciles the reserve and note stores against the live scan results and
// hands freshly observed note boxes to Backward for history reconstruction.
//
// It holds no mutable reference across a suspension point — each tick reads
// fresh scan results and writes them through the atomic store methods, so a
// cancelled tick leaves the store consistent (spec.md §5).
type Poller struct {
	Status   StatusSource
	Scans    ScanBoxes
	Backward *Backward
	Notes    store.NoteStore
	Reserves store.ReserveStore
	Interval time.Duration

	// Metrics records the indexed wallet height and per-tick duration, for
	// the "scan lag" gauge SPEC_FULL.md's domain-stack table names.
	// Defaults to metrics.Noop when left unset.
	Metrics metrics.Sink

	ReserveScanID int32
	NoteScanID    int32

	quit       chan struct{}
	log        *chainlog.Logger
	haveHeight bool
	lastHeight int32
}

// NewPoller builds a Poller. Interval defaults to one second if zero.
func NewPoller(status StatusSource, scans ScanBoxes, backward *Backward, notes store.NoteStore, reserves store.ReserveStore) *Poller {
	return &Poller{
		Status:   status,
		Scans:    scans,
		Backward: backward,
		Notes:    notes,
		Reserves: reserves,
		Interval: time.Second,
		Metrics:  metrics.Noop,
		quit:     make(chan struct{}),
		log:      chainlog.New("scanner.poller"),
	}
}

// SetScanIDs records the ledger scan ids ReconcileAll assigned, so each tick
// knows which scans to pull unspent boxes from.
func (p *Poller) SetScanIDs(reserveScanID, noteScanID int32) {
	p.ReserveScanID = reserveScanID
	p.NoteScanID = noteScanID
}

// Start begins polling in a background goroutine.
func (p *Poller) Start() {
	go p.loop()
}

// Stop shuts the poller down.
func (p *Poller) Stop() {
	close(p.quit)
}

func (p *Poller) loop() {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick(context.Background())
		case <-p.quit:
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	start := time.Now()
	defer func() { p.metricsSink().Observe("scanner.tick", time.Since(start)) }()

	status, err := p.Status.WalletStatus(ctx)
	if err != nil {
		p.log.Warn("wallet status check failed, will retry next tick", "err", err)
		return
	}
	if p.haveHeight && status.WalletHeight == p.lastHeight {
		return
	}
	p.haveHeight = true
	p.lastHeight = status.WalletHeight
	p.metricsSink().SetGauge("scanner.indexed_height", float64(status.WalletHeight))

	if err := p.reconcileReserves(ctx); err != nil {
		p.log.Warn("reserve reconciliation failed", "err", err)
	}
	if err := p.reconcileNotes(ctx); err != nil {
		p.log.Warn("note reconciliation failed", "err", err)
	}
}

// metricsSink returns p.Metrics, or metrics.Noop when a Poller was built
// with a struct literal rather than NewPoller and never had one assigned.
func (p *Poller) metricsSink() metrics.Sink {
	if p.Metrics == nil {
		return metrics.Noop
	}
	return p.Metrics
}

func (p *Poller) reconcileReserves(ctx context.Context) error {
	live, err := p.Scans.UnspentBoxes(ctx, p.ReserveScanID)
	if err != nil {
		return fmt.Errorf("scanner: unspent reserve boxes: %w", err)
	}

	liveIDs := make([]boxes.BoxID, 0, len(live))
	for _, b := range live {
		liveIDs = append(liveIDs, b.ID)

		spec, err := boxes.NewReserveBoxSpec(b)
		if err != nil {
			p.log.Warn("skipping malformed reserve box", "box_id", fmt.Sprintf("%x", b.ID[:]), "err", err)
			continue
		}
		row := store.ReserveRow{
			BoxID:        b.ID,
			Identifier:   spec.Identifier,
			Owner:        spec.Owner,
			Value:        b.Value,
			RefundHeight: spec.RefundHeight,
		}
		if err := p.Reserves.AddOrUpdateReserve(ctx, row); err != nil {
			p.log.Warn("persisting reserve box failed, skipped", "box_id", fmt.Sprintf("%x", b.ID[:]), "err", err)
		}
	}
	return p.Reserves.DeleteReservesNotIn(ctx, liveIDs)
}

func (p *Poller) reconcileNotes(ctx context.Context) error {
	live, err := p.Scans.UnspentBoxes(ctx, p.NoteScanID)
	if err != nil {
		return fmt.Errorf("scanner: unspent note boxes: %w", err)
	}

	liveIDs := make([]boxes.BoxID, 0, len(live))
	for _, b := range live {
		liveIDs = append(liveIDs, b.ID)

		existing, err := p.Notes.GetNoteByBoxID(ctx, b.ID)
		if err != nil {
			p.log.Warn("note lookup failed, skipped", "box_id", fmt.Sprintf("%x", b.ID[:]), "err", err)
			continue
		}
		if existing != nil {
			continue
		}

		note, err := p.Backward.Reconstruct(ctx, b)
		if err != nil {
			// Per spec.md §7: scanner errors are logged and skipped per
			// box — one malformed note never halts the poll loop.
			p.log.Warn("history reconstruction failed, skipped", "box_id", fmt.Sprintf("%x", b.ID[:]), "err", err)
			continue
		}

		row := noteRowFromNote(note, b)
		if err := p.Notes.AddNote(ctx, row); err != nil {
			p.log.Warn("persisting note failed, skipped", "box_id", fmt.Sprintf("%x", b.ID[:]), "err", err)
		}
	}
	return p.Notes.DeleteNotesNotIn(ctx, liveIDs)
}

func noteRowFromNote(note *boxes.Note, box boxes.RawBox) store.NoteRow {
	entries := note.History.OwnershipEntries()
	rows := make([]store.OwnershipEntryRow, len(entries))
	for i, e := range entries {
		rows[i] = store.OwnershipEntryRow{
			Position:       i,
			ReserveNftID:   boxes.TokenID(e.ReserveID),
			Amount:         e.Amount,
			SignatureBytes: e.Signature.Bytes(),
		}
	}
	return store.NoteRow{
		BoxID:            box.ID,
		Identifier:       note.NoteID,
		Owner:            note.Owner,
		Value:            box.Value,
		Length:           note.Length,
		OwnershipEntries: rows,
	}
}
