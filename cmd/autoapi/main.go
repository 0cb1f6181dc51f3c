package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/autoapi/cmd/autoapi/commands"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("autoapi"),
		kong.Description("Generate API reference pages from a package hierarchy."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := parser.Run(global, cli); err != nil {
		adapter := errs.NewCLIErrorAdapter(cli.Verbose, global.Logger)
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		os.Exit(adapter.ExitCodeFor(err))
	}
}
