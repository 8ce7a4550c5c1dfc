package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/setsim/cmd/setsim/commands"
	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}

	ctx := kong.Parse(&cli,
		kong.Name("setsim"),
		kong.Description("Monte Carlo simulator for the card game Set"),
		kong.UsageOnError(),
		kong.Vars{
			"version":        version.String(),
			"default_config": commands.DefaultConfigFile,
		},
		kong.Bind(global),
	)

	if err := ctx.Run(global, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
