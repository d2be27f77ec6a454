package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/chaincashlabs/chaincash/internal/flags"
)

// Git SHA1 commit hash and build date of the release (set via linker flags).
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "the ChainCash bank server and admin console")
	app.Commands = []*cli.Command{
		commandRun,
		commandConsole,
	}
	app.Flags = appFlags
	app.Action = runBank
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
