package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// NewApp creates an app with sane defaults, the same shape the teacher's
// own internal/flags.NewApp builds (gitCommit/gitDate baked into the
// version string via linker flags, HideVersion left false so `--version`
// still works, Action left nil for the caller's own default command).
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = versionString(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright " + "2026 The ChainCash Authors"
	app.Before = func(ctx *cli.Context) error { return nil }
	return app
}

func versionString(gitCommit, gitDate string) string {
	v := "0.1.0"
	if gitCommit != "" {
		if len(gitCommit) > 8 {
			gitCommit = gitCommit[:8]
		}
		v = fmt.Sprintf("%s-%s", v, gitCommit)
	}
	if gitDate != "" {
		v = fmt.Sprintf("%s-%s", v, gitDate)
	}
	return v
}
