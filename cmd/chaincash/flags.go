package main

import (
	"github.com/urfave/cli/v2"

	"github.com/chaincashlabs/chaincash/internal/flags"
)

// Flags mirror cmd/utils/flags.go's convention: one cli flag per config
// knob, grouped under an internal/flags category, with the config file's
// own value as the ultimate fallback (config.Load already layers
// default/local/env; these flags are a fourth, highest-priority layer
// applied directly onto the loaded config in config.go's resolveConfig).
var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "path to the default config TOML file",
		Value:    "config/default.toml",
		Category: flags.MiscCategory,
	}
	configLocalFlag = &cli.StringFlag{
		Name:     "config.local",
		Usage:    "path to an optional local config TOML file, overlaid on --config",
		Category: flags.MiscCategory,
	}

	serverURLFlag = &cli.StringFlag{
		Name:     "server.url",
		Usage:    "address this bank's HTTP API listens on",
		Category: flags.ServerCategory,
	}
	serverPortFlag = &cli.IntFlag{
		Name:     "server.port",
		Usage:    "port this bank's HTTP API listens on",
		Category: flags.ServerCategory,
	}
	serverChangeAddressFlag = &cli.StringFlag{
		Name:     "server.change-address",
		Usage:    "change address used when composing transactions",
		Category: flags.ServerCategory,
	}
	serverFeeFlag = &cli.Uint64Flag{
		Name:     "server.fee",
		Usage:    "fixed ledger relay fee, in nanoerg, applied to every composed transaction",
		Category: flags.ServerCategory,
	}

	storeURLFlag = &cli.StringFlag{
		Name:     "store.url",
		Usage:    "DSN for the relational store (store/sqlstore)",
		Category: flags.StoreCategory,
	}

	nodeURLFlag = &cli.StringFlag{
		Name:     "node.url",
		Usage:    "base URL of the ledger node this bank indexes and submits through",
		Category: flags.NodeCategory,
	}
	nodeAPIKeyFlag = &cli.StringFlag{
		Name:     "node.api-key",
		Usage:    "API key for the ledger node, if it requires one",
		Category: flags.NodeCategory,
	}

	acceptancePredicatesFlag = &cli.StringSliceFlag{
		Name:     "acceptance.predicate",
		Usage:    "path to a TOML acceptance predicate file (repeatable)",
		Category: flags.AcceptanceCategory,
	}

	contractReserveFlag = &cli.StringFlag{
		Name:     "contracts.reserve",
		Usage:    "path to the reserve contract's ErgoScript source",
		Required: true,
		Category: flags.MiscCategory,
	}
	contractNoteFlag = &cli.StringFlag{
		Name:     "contracts.note",
		Usage:    "path to the note contract's ErgoScript source (with $reserveContractHash/$receiptContractHash placeholders)",
		Required: true,
		Category: flags.MiscCategory,
	}
	contractReceiptFlag = &cli.StringFlag{
		Name:     "contracts.receipt",
		Usage:    "path to the receipt contract's ErgoScript source (with $reserveContractHash placeholder)",
		Required: true,
		Category: flags.MiscCategory,
	}
	oracleErgoTreeHexFlag = &cli.StringFlag{
		Name:     "oracle.ergo-tree",
		Usage:    "hex-encoded ErgoTree of the gold price oracle pool's box, looked up fresh each redeem",
		Required: true,
		Category: flags.MiscCategory,
	}

	metricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "push scan-lag and tx-build-latency gauges to InfluxDB",
		Category: flags.MetricsCategory,
	}
	metricsEndpointFlag = &cli.StringFlag{
		Name:     "metrics.influxdb.endpoint",
		Category: flags.MetricsCategory,
	}
	metricsTokenFlag = &cli.StringFlag{
		Name:     "metrics.influxdb.token",
		Category: flags.MetricsCategory,
	}
	metricsBucketFlag = &cli.StringFlag{
		Name:     "metrics.influxdb.bucket",
		Category: flags.MetricsCategory,
	}
	metricsOrgFlag = &cli.StringFlag{
		Name:     "metrics.influxdb.org",
		Category: flags.MetricsCategory,
	}

	jsonLogsFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "emit structured logs as JSON instead of the default text format",
		Category: flags.LoggingCategory,
	}
)

var appFlags = []cli.Flag{
	configFlag, configLocalFlag,
	serverURLFlag, serverPortFlag, serverChangeAddressFlag, serverFeeFlag,
	storeURLFlag,
	nodeURLFlag, nodeAPIKeyFlag,
	acceptancePredicatesFlag,
	contractReserveFlag, contractNoteFlag, contractReceiptFlag, oracleErgoTreeHexFlag,
	metricsEnabledFlag, metricsEndpointFlag, metricsTokenFlag, metricsBucketFlag, metricsOrgFlag,
	jsonLogsFlag,
}
