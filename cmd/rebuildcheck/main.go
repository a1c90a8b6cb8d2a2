package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/rebuildcheck/cmd/rebuildcheck/commands"
	"git.home.luguber.info/inful/rebuildcheck/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("rebuildcheck"),
		kong.Description("Verify that packages of a Build Service project still rebuild from scratch."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := parser.Run(&commands.Global{Logger: slog.Default()})
	os.Exit(commands.ExitCode(os.Stderr, err, cli.Debug))
}
