package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aarnott/moneyman"
	"github.com/aarnott/moneyman/date"
	"github.com/aarnott/moneyman/renderer"
)

type networthCmd struct {
	date   string
	closed bool
}

func (*networthCmd) Name() string     { return "networth" }
func (*networthCmd) Synopsis() string { return "value every account in the preferred currency" }
func (*networthCmd) Usage() string {
	return `networth [-d <date>] [-closed]

  Values every open account in the preferred currency and sums the result.
  Securities use their latest price at or before the date; assets with no
  usable price count as zero.
`
}

func (c *networthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Valuation date (YYYY-MM-DD). Defaults to today")
	f.BoolVar(&c.closed, "closed", false, "Include closed accounts")
}

func (c *networthCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var asOf date.Date
	if c.date != "" {
		var err error
		asOf, err = date.Parse(c.date)
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

	total, rows, err := engine.NetWorth(moneyman.NetWorthOptions{
		AsOf:                  asOf,
		IncludeClosedAccounts: c.closed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing net worth: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.NetWorth(total, rows))
	return subcommands.ExitSuccess
}
