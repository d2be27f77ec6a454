package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// newTestContext applies appFlags to a fresh FlagSet and parses args,
// mirroring cmd/utils/flags_test.go's cli.NewContext fixture pattern.
func newTestContext(t *testing.T, args []string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = appFlags

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range appFlags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(app, set, nil)
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chaincash.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestResolveConfigUsesFileWhenNoFlagsSet(t *testing.T) {
	path := writeConfigFile(t, `
[server]
url = "0.0.0.0"
port = 9090

[store]
url = "file-configured.db"
`)
	ctx := newTestContext(t, []string{
		"--config", path,
		"--contracts.reserve", "r.es", "--contracts.note", "n.es", "--contracts.receipt", "rc.es",
		"--oracle.ergo-tree", "00",
	})

	cfg, err := resolveConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.URL)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "file-configured.db", cfg.Store.URL)
}

func TestResolveConfigCLIFlagOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
[server]
url = "0.0.0.0"
port = 9090
`)
	ctx := newTestContext(t, []string{
		"--config", path,
		"--server.port", "7000",
		"--contracts.reserve", "r.es", "--contracts.note", "n.es", "--contracts.receipt", "rc.es",
		"--oracle.ergo-tree", "00",
	})

	cfg, err := resolveConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.URL, "unset flag should keep the file's value")
	require.Equal(t, 7000, cfg.Server.Port, "explicitly set flag should win over the file")
}

func TestResolveConfigAcceptancePredicatesFlagIsRepeatable(t *testing.T) {
	ctx := newTestContext(t, []string{
		"--contracts.reserve", "r.es", "--contracts.note", "n.es", "--contracts.receipt", "rc.es",
		"--oracle.ergo-tree", "00",
		"--acceptance.predicate", "a.toml",
		"--acceptance.predicate", "b.toml",
	})

	cfg, err := resolveConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.toml", "b.toml"}, cfg.Acceptance.Predicates)
}

func TestLoadContractSourcesReadsAllThreeFiles(t *testing.T) {
	dir := t.TempDir()
	reservePath := filepath.Join(dir, "reserve.es")
	notePath := filepath.Join(dir, "note.es")
	receiptPath := filepath.Join(dir, "receipt.es")
	require.NoError(t, os.WriteFile(reservePath, []byte("reserve-src"), 0o600))
	require.NoError(t, os.WriteFile(notePath, []byte("note-src"), 0o600))
	require.NoError(t, os.WriteFile(receiptPath, []byte("receipt-src"), 0o600))

	ctx := newTestContext(t, []string{
		"--contracts.reserve", reservePath,
		"--contracts.note", notePath,
		"--contracts.receipt", receiptPath,
		"--oracle.ergo-tree", "00",
	})

	sources, err := loadContractSources(ctx)
	require.NoError(t, err)
	require.Equal(t, "reserve-src", sources.Reserve)
	require.Equal(t, "note-src", sources.Note)
	require.Equal(t, "receipt-src", sources.Receipt)
}

func TestLoadContractSourcesMissingFileErrors(t *testing.T) {
	ctx := newTestContext(t, []string{
		"--contracts.reserve", "/nonexistent/reserve.es",
		"--contracts.note", "/nonexistent/note.es",
		"--contracts.receipt", "/nonexistent/receipt.es",
		"--oracle.ergo-tree", "00",
	})

	_, err := loadContractSources(ctx)
	require.Error(t, err)
}

func TestLoadPredicatesLoadsEachPathInOrder(t *testing.T) {
	dir := t.TempDir()
	whitelistPath := filepath.Join(dir, "whitelist.toml")
	require.NoError(t, os.WriteFile(whitelistPath, []byte(`
type = "whitelist"
kind = "issuer"
agents = ["abc"]
`), 0o600))

	entries, err := loadPredicates([]string{whitelistPath})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, whitelistPath, entries[0].Name)
	require.NotNil(t, entries[0].Predicate)
}

func TestLoadPredicatesEmptyListReturnsEmptySlice(t *testing.T) {
	entries, err := loadPredicates(nil)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLoadPredicatesMissingFileErrors(t *testing.T) {
	_, err := loadPredicates([]string{"/nonexistent/predicate.toml"})
	require.Error(t, err)
}
