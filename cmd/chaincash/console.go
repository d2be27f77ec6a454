package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	"github.com/chaincashlabs/chaincash/nodeclient"
	"github.com/chaincashlabs/chaincash/scanner"
	"github.com/chaincashlabs/chaincash/store"
	"github.com/chaincashlabs/chaincash/store/sqlstore"
)

// commandConsole opens an admin REPL against the store directly, for
// operators to inspect notes/reserves and kick a rescan without going
// through the HTTP API (SPEC_FULL.md §2's "cmd/chaincash console").
var commandConsole = &cli.Command{
	Name:   "console",
	Usage:  "interactive admin console: list notes/reserves, trigger a rescan",
	Flags:  appFlags,
	Action: runConsole,
}

func runConsole(cliCtx *cli.Context) error {
	cfg, err := resolveConfig(cliCtx)
	if err != nil {
		return fmt.Errorf("chaincash: resolve config: %w", err)
	}

	ctx := context.Background()
	db, err := sqlstore.Open(ctx, cfg.Store.URL)
	if err != nil {
		return fmt.Errorf("chaincash: open store: %w", err)
	}
	defer db.Close()

	node := nodeclient.New(cfg.Node.URL, cfg.Node.APIKey, http.DefaultClient)

	printWelcome(os.Stdout)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	console := &adminConsole{db: db, node: node, out: os.Stdout}
	for {
		input, err := line.Prompt("chaincash> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Fprintln(os.Stdout, "\nexiting")
			return nil
		}
		if err != nil {
			return fmt.Errorf("chaincash: console read: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == "exit" || input == "quit" {
			return nil
		}
		if err := console.dispatch(ctx, input); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		}
	}
}

// rescanRequester is the narrow slice of scanner.ScanRegistry the console's
// rescan command needs.
type rescanRequester interface {
	RequestRescan(ctx context.Context, fromHeight int32) error
}

type adminConsole struct {
	db   store.Store
	node rescanRequester
	out  io.Writer
}

func (c *adminConsole) dispatch(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		c.printHelp()
		return nil
	case "scans":
		if len(args) != 1 {
			return fmt.Errorf("usage: scans <reserve|note|receipt>")
		}
		return c.listScans(ctx, store.ScanType(args[0]))
	case "notes":
		if len(args) != 1 {
			return fmt.Errorf("usage: notes <pubkey-hex>")
		}
		return c.listNotes(ctx, args[0])
	case "reserves":
		if len(args) != 1 {
			return fmt.Errorf("usage: reserves <pubkey-hex>")
		}
		return c.listReserves(ctx, args[0])
	case "rescan":
		if len(args) != 1 {
			return fmt.Errorf("usage: rescan <from-height>")
		}
		return c.rescan(ctx, args[0])
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (c *adminConsole) printHelp() {
	fmt.Fprintln(c.out, "commands:")
	fmt.Fprintln(c.out, "  scans <reserve|note|receipt>   list registered scans of a type")
	fmt.Fprintln(c.out, "  notes <pubkey-hex>             list notes owned by a pubkey")
	fmt.Fprintln(c.out, "  reserves <pubkey-hex>          list reserves owned by a pubkey")
	fmt.Fprintln(c.out, "  rescan <from-height>           ask the ledger node to rescan for registered scans from a height")
	fmt.Fprintln(c.out, "  exit, quit                     leave the console")
}

func (c *adminConsole) rescan(ctx context.Context, heightArg string) error {
	var height int32
	if heightArg == "genesis" {
		height = scanner.GenesisRescanHeight
	} else {
		n, err := fmt.Sscanf(heightArg, "%d", &height)
		if err != nil || n != 1 {
			return fmt.Errorf("invalid height %q, want an integer or \"genesis\"", heightArg)
		}
	}
	if err := c.node.RequestRescan(ctx, height); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "rescan requested from height %d\n", height)
	return nil
}

func (c *adminConsole) listScans(ctx context.Context, t store.ScanType) error {
	scans, err := c.db.ListScansByType(ctx, t)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		fmt.Fprintln(c.out, "no scans registered")
		return nil
	}
	for _, s := range scans {
		fmt.Fprintf(c.out, "  scan %d  %s  %q\n", s.ScanID, s.ScanType, s.ScanName)
	}
	return nil
}

func (c *adminConsole) listNotes(ctx context.Context, pubkeyHex string) error {
	pub, err := parsePubkeyHex(pubkeyHex)
	if err != nil {
		return err
	}
	notes, err := c.db.ListNotesByPubkey(ctx, pub)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Fprintln(c.out, "no notes")
		return nil
	}
	for _, n := range notes {
		fmt.Fprintf(c.out, "  note %d  box %s  identifier %s  value %d  length %d\n",
			n.ID, hex.EncodeToString(n.BoxID[:]), hex.EncodeToString(n.Identifier[:]), n.Value, n.Length)
	}
	return nil
}

func (c *adminConsole) listReserves(ctx context.Context, pubkeyHex string) error {
	pub, err := parsePubkeyHex(pubkeyHex)
	if err != nil {
		return err
	}
	reserves, err := c.db.ListReservesByPubkey(ctx, pub)
	if err != nil {
		return err
	}
	if len(reserves) == 0 {
		fmt.Fprintln(c.out, "no reserves")
		return nil
	}
	for _, r := range reserves {
		fmt.Fprintf(c.out, "  reserve %d  box %s  identifier %s  value %d\n",
			r.ID, hex.EncodeToString(r.BoxID[:]), hex.EncodeToString(r.Identifier[:]), r.Value)
	}
	return nil
}

func parsePubkeyHex(s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey hex: %w", err)
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey: %w", err)
	}
	return pub, nil
}

// printWelcome prints a short banner, colorized when stdout is a real
// terminal (mirrors the teacher's own TTY-aware console convention).
func printWelcome(w io.Writer) {
	bold := color.New(color.Bold)
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		bold.DisableColor()
	}
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	bold.Fprintln(bw, "Welcome to the ChainCash admin console!")
	fmt.Fprintf(bw, "instance: chaincash/%s-%s/%s-%s/%s\n", "0.1.0", gitCommit, runtime.GOOS, runtime.GOARCH, runtime.Version())
	fmt.Fprintln(bw, "type 'help' for a list of commands, 'exit' to quit")
	fmt.Fprintln(bw)
}
