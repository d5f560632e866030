package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aarnott/moneyman"
)

// --- Add Account Command ---

type addAccountCmd struct {
	name     string
	kind     string
	currency string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create a banking or investing account" }
func (*addAccountCmd) Usage() string {
	return `add-account -n <name> -c <currency-ticker> [-k banking|investing]

  Creates an account denominated in an existing currency asset. Investing
  accounts can also hold securities and track tax lots for them.
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Account name")
	f.StringVar(&c.kind, "k", "banking", "Account kind: banking or investing")
	f.StringVar(&c.currency, "c", "", "Ticker of the account's currency asset")
}

func (c *addAccountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || c.currency == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	kind, err := moneyman.ParseAccountKind(c.kind)
	if err != nil || kind == moneyman.Category {
		fmt.Fprintln(os.Stderr, "Error: kind must be banking or investing; use add-category for categories")
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	currency, err := findAsset(engine, c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	account, err := engine.AddAccount(c.name, kind, currency.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding account: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Added %s account %q (%s)\n", account.Kind, account.Name, currency.Ticker)
	return subcommands.ExitSuccess
}

// --- Add Category Command ---

type addCategoryCmd struct {
	name string
}

func (*addCategoryCmd) Name() string     { return "add-category" }
func (*addCategoryCmd) Synopsis() string { return "create a budget category" }
func (*addCategoryCmd) Usage() string {
	return `add-category -n <name>

  Creates a category pseudo-account. Categories receive the balancing legs of
  categorized transactions and are excluded from net worth.
`
}

func (c *addCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Category name")
}

func (c *addCategoryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	category, err := engine.AddCategory(c.name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding category: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Added category %q\n", category.Name)
	return subcommands.ExitSuccess
}

// --- Close Account Command ---

type closeAccountCmd struct {
	name string
}

func (*closeAccountCmd) Name() string     { return "close-account" }
func (*closeAccountCmd) Synopsis() string { return "close an account" }
func (*closeAccountCmd) Usage() string {
	return `close-account -n <name>

  Closes an account. Closed accounts keep their history but reject new
  transactions and drop out of net worth.
`
}

func (c *closeAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Account name")
}

func (c *closeAccountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	account, err := findAccount(engine, c.name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.CloseAccount(account.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing account: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Closed account %q\n", account.Name)
	return subcommands.ExitSuccess
}
