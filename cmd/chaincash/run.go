package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/chaincashlabs/chaincash/acceptance"
	"github.com/chaincashlabs/chaincash/api"
	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/config"
	"github.com/chaincashlabs/chaincash/contracts"
	"github.com/chaincashlabs/chaincash/internal/chainlog"
	"github.com/chaincashlabs/chaincash/internal/metrics"
	"github.com/chaincashlabs/chaincash/nodeclient"
	"github.com/chaincashlabs/chaincash/scanner"
	"github.com/chaincashlabs/chaincash/store"
	"github.com/chaincashlabs/chaincash/store/sqlstore"
	"github.com/chaincashlabs/chaincash/txbuilder"
)

var log = chainlog.New("cmd")

// commandRun starts the bank process: it loads config, reconciles the scan
// lifecycle against the ledger node, starts the poller in the background,
// and serves the HTTP API until interrupted (spec.md §5, §6).
var commandRun = &cli.Command{
	Name:   "run",
	Usage:  "start the bank server",
	Flags:  appFlags,
	Action: runBank,
}

func runBank(cliCtx *cli.Context) error {
	if cliCtx.Bool(jsonLogsFlag.Name) {
		chainlog.SetOutput(os.Stderr, slog.LevelInfo, true)
	}

	cfg, err := resolveConfig(cliCtx)
	if err != nil {
		return fmt.Errorf("chaincash: resolve config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	node := nodeclient.New(cfg.Node.URL, cfg.Node.APIKey, http.DefaultClient)

	sources, err := loadContractSources(cliCtx)
	if err != nil {
		return err
	}
	contractCache := contracts.NewCache(node, sources)

	db, err := sqlstore.Open(ctx, cfg.Store.URL)
	if err != nil {
		return fmt.Errorf("chaincash: open store: %w", err)
	}
	defer db.Close()

	registry := metrics.NewRegistry()
	if err := startMetrics(ctx, cliCtx, registry); err != nil {
		return err
	}

	if err := reconcileScans(ctx, node, db, contractCache); err != nil {
		return err
	}

	predicates, err := loadPredicates(cfg.Acceptance.Predicates)
	if err != nil {
		return err
	}

	oracleTree, err := hex.DecodeString(cliCtx.String(oracleErgoTreeHexFlag.Name))
	if err != nil {
		return fmt.Errorf("chaincash: decode oracle ergo tree: %w", err)
	}
	builder := txbuilder.New(contractCache, node, node, node.AsOracleLookup(boxes.ErgoTree(oracleTree)))
	builder.Metrics = registry

	poller := startPoller(ctx, node, db, contractCache, registry)
	defer poller.Stop()

	server := api.New(builder, db, node, node, node, node, predicates, api.Config{
		ChangeAddress: cliCtx.String(serverChangeAddressFlag.Name),
		Fee:           cliCtx.Uint64(serverFeeFlag.Name),
	})

	addr := net.JoinHostPort(cfg.Server.URL, strconv.Itoa(cfg.Server.Port))
	log.Info("bank server starting", "addr", addr)
	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("chaincash: serve: %w", err)
	}
	log.Info("bank server stopped")
	return nil
}

func loadContractSources(cliCtx *cli.Context) (contracts.Sources, error) {
	reserve, err := os.ReadFile(cliCtx.String(contractReserveFlag.Name))
	if err != nil {
		return contracts.Sources{}, fmt.Errorf("chaincash: read reserve contract source: %w", err)
	}
	note, err := os.ReadFile(cliCtx.String(contractNoteFlag.Name))
	if err != nil {
		return contracts.Sources{}, fmt.Errorf("chaincash: read note contract source: %w", err)
	}
	receipt, err := os.ReadFile(cliCtx.String(contractReceiptFlag.Name))
	if err != nil {
		return contracts.Sources{}, fmt.Errorf("chaincash: read receipt contract source: %w", err)
	}
	return contracts.Sources{Reserve: string(reserve), Note: string(note), Receipt: string(receipt)}, nil
}

func loadPredicates(paths []string) ([]api.PredicateEntry, error) {
	out := make([]api.PredicateEntry, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("chaincash: open predicate %s: %w", path, err)
		}
		predicate, err := acceptance.LoadPredicate(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("chaincash: load predicate %s: %w", path, err)
		}
		out = append(out, api.PredicateEntry{Name: path, Predicate: predicate})
	}
	return out, nil
}

// reconcileScans runs the scan lifecycle's startup algorithm for all three
// contracts against the wallet's current pubkeys (spec.md §4.7).
func reconcileScans(ctx context.Context, node *nodeclient.Client, db store.Store, contractCache *contracts.Cache) error {
	wallet, err := node.WalletPubkeys(ctx)
	if err != nil {
		return fmt.Errorf("chaincash: wallet pubkeys: %w", err)
	}
	reserve, err := contractCache.Reserve(ctx)
	if err != nil {
		return fmt.Errorf("chaincash: compile reserve contract: %w", err)
	}
	note, err := contractCache.Note(ctx)
	if err != nil {
		return fmt.Errorf("chaincash: compile note contract: %w", err)
	}
	receipt, err := contractCache.Receipt(ctx)
	if err != nil {
		return fmt.Errorf("chaincash: compile receipt contract: %w", err)
	}

	lifecycle := scanner.NewLifecycle(node, db)
	if _, err := lifecycle.ReconcileAll(ctx, reserve.ErgoTree, note.ErgoTree, receipt.ErgoTree, wallet); err != nil {
		return fmt.Errorf("chaincash: reconcile scans: %w", err)
	}
	return nil
}

func startPoller(ctx context.Context, node *nodeclient.Client, db store.Store, contractCache *contracts.Cache, registry *metrics.Registry) *scanner.Poller {
	backward := scanner.NewBackward(node, db, contractCache)
	poller := scanner.NewPoller(node, node, backward, db, db)
	poller.Metrics = registry

	reserveScans, _ := db.ListScansByType(ctx, store.ScanTypeReserve)
	noteScans, _ := db.ListScansByType(ctx, store.ScanTypeNote)
	var reserveScanID, noteScanID int32
	if len(reserveScans) > 0 {
		reserveScanID = reserveScans[0].ScanID
	}
	if len(noteScans) > 0 {
		noteScanID = noteScans[0].ScanID
	}
	poller.SetScanIDs(reserveScanID, noteScanID)

	poller.Start()
	return poller
}

func startMetrics(ctx context.Context, cliCtx *cli.Context, registry *metrics.Registry) error {
	if !cliCtx.Bool(metricsEnabledFlag.Name) {
		return nil
	}
	cfg := metrics.DefaultConfig
	cfg.Enabled = true
	if v := cliCtx.String(metricsEndpointFlag.Name); v != "" {
		cfg.InfluxDBEndpoint = v
	}
	if v := cliCtx.String(metricsTokenFlag.Name); v != "" {
		cfg.InfluxDBToken = v
	}
	bucket := cfg.InfluxDBBucket
	if v := cliCtx.String(metricsBucketFlag.Name); v != "" {
		bucket = v
	}
	org := cfg.InfluxDBOrganization
	if v := cliCtx.String(metricsOrgFlag.Name); v != "" {
		org = v
	}
	reporter := metrics.NewReporter(cfg, registry)
	reporter.Start(ctx, org, bucket)
	log.Info("metrics reporter started", "endpoint", cfg.InfluxDBEndpoint, "bucket", bucket)
	return nil
}
