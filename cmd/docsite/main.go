package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsite/cmd/docsite/commands"
)

var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("docsite"),
		kong.Description("Static documentation site generator"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
