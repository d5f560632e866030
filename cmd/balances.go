package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aarnott/moneyman/date"
	"github.com/aarnott/moneyman/renderer"
)

type balancesCmd struct {
	account string
	date    string
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "show the per-asset balances of an account" }
func (*balancesCmd) Usage() string {
	return `balances -a <account> [-d <date>]

  Shows the account's balance per asset, computed from its entries. With -d,
  only transactions on or before that date count.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account name")
	f.StringVar(&c.date, "d", "", "Cutoff date (YYYY-MM-DD). Defaults to the full history")
}

func (c *balancesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	var cutoff date.Date
	if c.date != "" {
		var err error
		cutoff, err = date.Parse(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	account, err := findAccount(engine, c.account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	balances, err := engine.BalancesAsOf(account.ID, cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing balances: %v\n", err)
		return subcommands.ExitFailure
	}

	assets, err := engine.Store().Assets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	var rows []renderer.BalanceRow
	for _, asset := range assets {
		quantity, ok := balances[asset.ID]
		if !ok || quantity.IsZero() {
			continue
		}
		rows = append(rows, renderer.BalanceRow{Asset: asset, Quantity: quantity})
	}

	printMarkdown(renderer.Balances(account, rows))
	return subcommands.ExitSuccess
}
