package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aarnott/moneyman"
	"github.com/aarnott/moneyman/renderer"
)

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "scan the ledger for inconsistencies" }
func (*checkCmd) Usage() string {
	return `check

  Scans the whole ledger for split total mismatches, orphaned tax lot
  assignments, and overdrawn lots. Exits non-zero when issues are found.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	issues, err := moneyman.CheckIntegrity(engine.Store())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error checking ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Issues(issues))
	if len(issues) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
