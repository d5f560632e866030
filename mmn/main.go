package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/aarnott/moneyman/cmd"
)

// completion describes the command tree for shell completion. Running the
// binary under COMP_LINE makes Complete print candidates and exit.
func completion() *complete.Command {
	sub := map[string]*complete.Command{}
	for _, name := range []string{
		"add-asset", "price", "import-prices",
		"add-account", "add-category", "close-account",
		"deposit", "withdraw", "transfer", "buy", "sell",
		"dividend", "interest", "exchange",
		"balances", "register", "networth", "gains", "check",
		"topic", "help", "flags", "commands",
	} {
		sub[name] = &complete.Command{}
	}
	return &complete.Command{
		Sub: sub,
		Flags: map[string]complete.Predictor{
			"ledger": predict.Files("*"),
		},
	}
}

func main() {
	completion().Complete("mmn")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
