// Package flags holds the cmd/chaincash CLI's flag category names and its
// cli.App constructor, the same division of labor the teacher's own
// internal/flags package has (flag categories plus NewApp), adapted to
// this bank process's own flag set.
package flags

import "github.com/urfave/cli/v2"

const (
	ServerCategory     = "SERVER"
	NodeCategory       = "LEDGER NODE"
	StoreCategory      = "STORE"
	AcceptanceCategory = "ACCEPTANCE"
	LoggingCategory    = "LOGGING AND DEBUGGING"
	MetricsCategory    = "METRICS AND STATS"
	MiscCategory       = "MISC"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
