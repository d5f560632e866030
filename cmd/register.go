package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aarnott/moneyman/renderer"
)

type registerCmd struct {
	account string
	head    int
	tail    int
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "list the transactions of an account" }
func (*registerCmd) Usage() string {
	return `register -a <account> [-head <n>] [-tail <n>]

  Lists the account's transactions in date order, one line per transaction,
  including mirrored views of transfers recorded elsewhere.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account name")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
}

func (c *registerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if c.head > 0 && c.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
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
	views, err := engine.AccountTransactions(account.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	names, err := accountNames(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.head > 0 && len(views) > c.head {
		views = views[:c.head]
	}
	if c.tail > 0 && len(views) > c.tail {
		views = views[len(views)-c.tail:]
	}

	printMarkdown(renderer.Register(account, views, names))
	return subcommands.ExitSuccess
}
