package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aarnott/moneyman/renderer"
)

type gainsCmd struct {
	security string
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "report realized gains per lot assignment" }
func (*gainsCmd) Usage() string {
	return `gains [-s <security>]

  Reports realized gains, one line per lot assignment: the disposal's
  proceeds per share against the lot's unit cost, times the quantity drawn
  from that lot.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.security, "s", "", "Only report gains for this security ticker")
}

func (c *gainsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	store := engine.Store()
	assignments, err := store.Assignments()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var rows []renderer.GainRow
	for _, assignment := range assignments {
		entry, err := store.Entry(assignment.ConsumingEntryID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		security, err := store.Asset(entry.AssetID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if c.security != "" && security.Ticker != c.security {
			continue
		}
		lot, err := store.TaxLot(assignment.TaxLotID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		tx, err := store.Transaction(entry.TransactionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		gain, err := engine.AssignmentGainLoss(assignment.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		rows = append(rows, renderer.GainRow{
			Security: security,
			Acquired: lot.AcquiredDate.String(),
			Disposed: tx.When.String(),
			Quantity: assignment.Amount,
			Gain:     gain,
		})
	}

	printMarkdown(renderer.Gains(rows))
	return subcommands.ExitSuccess
}
