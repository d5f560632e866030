package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aarnott/moneyman"
	"github.com/aarnott/moneyman/date"
)

// recordFlags are the flags every transaction command shares.
type recordFlags struct {
	date    string
	account string
	payee   string
	memo    string
}

func (r *recordFlags) register(f *flag.FlagSet) {
	f.StringVar(&r.date, "d", date.Today().String(), "Transaction date (YYYY-MM-DD)")
	f.StringVar(&r.account, "a", "", "Account name")
	f.StringVar(&r.payee, "payee", "", "Payee")
	f.StringVar(&r.memo, "m", "", "An optional rationale or note for the transaction")
}

func (r *recordFlags) details() moneyman.Details {
	return moneyman.Details{Payee: r.payee, Memo: r.memo}
}

// resolve parses the shared flags into a day and an account.
func (r *recordFlags) resolve(e *moneyman.Engine) (date.Date, moneyman.Account, error) {
	day, err := date.Parse(r.date)
	if err != nil {
		return date.Date{}, moneyman.Account{}, fmt.Errorf("error parsing date: %w", err)
	}
	account, err := findAccount(e, r.account)
	if err != nil {
		return date.Date{}, moneyman.Account{}, err
	}
	return day, account, nil
}

// categoryTarget resolves an optional category name into a transfer target.
func categoryTarget(e *moneyman.Engine, name string) (moneyman.TransferTarget, error) {
	if name == "" {
		return moneyman.TransferTarget{}, nil
	}
	category, err := findAccount(e, name)
	if err != nil {
		return moneyman.TransferTarget{}, err
	}
	return moneyman.CategoryTarget(category.ID), nil
}

// --- Deposit Command ---

type depositCmd struct {
	recordFlags
	amount   string
	category string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "record money coming into an account" }
func (*depositCmd) Usage() string {
	return `deposit -a <account> -q <amount> [-c <category>] [-d <date>] [-payee <payee>] [-m <memo>]

  Records a deposit. With -c the balancing leg goes to a category.
`
}

func (c *depositCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.amount, "q", "", "Amount deposited, as a decimal")
	f.StringVar(&c.category, "c", "", "Category receiving the balancing leg")
}

func (c *depositCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.amount == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	amount, err := moneyman.ParseQuantity(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, account, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	target, err := categoryTarget(engine, c.category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordDeposit(account.ID, day, amount, target, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording deposit: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Deposited %s into %q on %s\n", amount, account.Name, day)
	return subcommands.ExitSuccess
}

// --- Withdraw Command ---

type withdrawCmd struct {
	recordFlags
	amount   string
	category string
}

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "record money leaving an account" }
func (*withdrawCmd) Usage() string {
	return `withdraw -a <account> -q <amount> [-c <category>] [-d <date>] [-payee <payee>] [-m <memo>]

  Records a withdrawal. With -c the balancing leg goes to a category.
`
}

func (c *withdrawCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.amount, "q", "", "Amount withdrawn, as a decimal")
	f.StringVar(&c.category, "c", "", "Category receiving the balancing leg")
}

func (c *withdrawCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.amount == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	amount, err := moneyman.ParseQuantity(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, account, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	target, err := categoryTarget(engine, c.category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordWithdrawal(account.ID, day, amount, target, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording withdrawal: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Withdrew %s from %q on %s\n", amount, account.Name, day)
	return subcommands.ExitSuccess
}

// --- Transfer Command ---

type transferCmd struct {
	recordFlags
	to     string
	amount string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts" }
func (*transferCmd) Usage() string {
	return `transfer -a <from-account> -to <to-account> -q <amount> [-d <date>] [-m <memo>]

  Moves money between two accounts of the same currency. The receiving
  account sees a mirrored view of the same transaction.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.to, "to", "", "Receiving account name")
	f.StringVar(&c.amount, "q", "", "Amount transferred, as a decimal")
}

func (c *transferCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.to == "" || c.amount == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	amount, err := moneyman.ParseQuantity(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, from, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	to, err := findAccount(engine, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordTransfer(from.ID, to.ID, day, amount, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording transfer: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Transferred %s from %q to %q on %s\n", amount, from.Name, to.Name, day)
	return subcommands.ExitSuccess
}

// --- Buy Command ---

type buyCmd struct {
	recordFlags
	security string
	quantity string
	cost     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "purchase shares to open or add to a position" }
func (*buyCmd) Usage() string {
	return `buy -a <account> -s <security> -q <quantity> -p <total-cost> [-d <date>] [-m <memo>]

  Purchases shares of a security in an investing account. The total cost is
  debited from the account's cash and opens a new tax lot.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.security, "s", "", "Security ticker")
	f.StringVar(&c.quantity, "q", "", "Number of shares, as a decimal")
	f.StringVar(&c.cost, "p", "", "Total cost in the account currency")
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.security == "" || c.quantity == "" || c.cost == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	quantity, err := moneyman.ParseQuantity(c.quantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
		return subcommands.ExitUsageError
	}
	cost, err := moneyman.ParseQuantity(c.cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing cost: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, account, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	security, err := findAsset(engine, c.security)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordBuy(account.ID, day, security.ID, quantity, cost, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording buy: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Bought %s %s for %s in %q on %s\n", quantity, security.Ticker, cost, account.Name, day)
	return subcommands.ExitSuccess
}

// --- Sell Command ---

type sellCmd struct {
	recordFlags
	security string
	quantity string
	proceeds string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares to trim or close a position" }
func (*sellCmd) Usage() string {
	return `sell -a <account> -s <security> -q <quantity> -p <total-proceeds> [-d <date>] [-m <memo>]

  Sells shares of a security. The proceeds are credited to the account's cash
  and the disposed shares are drawn from the oldest lots first.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.security, "s", "", "Security ticker")
	f.StringVar(&c.quantity, "q", "", "Number of shares, as a decimal")
	f.StringVar(&c.proceeds, "p", "", "Total proceeds in the account currency")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.security == "" || c.quantity == "" || c.proceeds == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	quantity, err := moneyman.ParseQuantity(c.quantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
		return subcommands.ExitUsageError
	}
	proceeds, err := moneyman.ParseQuantity(c.proceeds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing proceeds: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, account, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	security, err := findAsset(engine, c.security)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordSell(account.ID, day, security.ID, quantity, proceeds, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording sell: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Sold %s %s for %s in %q on %s\n", quantity, security.Ticker, proceeds, account.Name, day)
	return subcommands.ExitSuccess
}

// --- Dividend Command ---

type dividendCmd struct {
	recordFlags
	security string
	amount   string
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a dividend payment for a security" }
func (*dividendCmd) Usage() string {
	return `dividend -a <account> -s <security> -q <amount> [-d <date>] [-m <memo>]

  Records a dividend payment. The amount is credited to the account's cash.
`
}

func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.security, "s", "", "Security ticker paying the dividend")
	f.StringVar(&c.amount, "q", "", "Total dividend amount received")
}

func (c *dividendCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.security == "" || c.amount == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	amount, err := moneyman.ParseQuantity(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, account, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	security, err := findAsset(engine, c.security)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordDividend(account.ID, day, security.ID, amount, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording dividend: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Recorded %s dividend of %s in %q on %s\n", security.Ticker, amount, account.Name, day)
	return subcommands.ExitSuccess
}

// --- Interest Command ---

type interestCmd struct {
	recordFlags
	amount string
}

func (*interestCmd) Name() string     { return "interest" }
func (*interestCmd) Synopsis() string { return "record interest earned by an account" }
func (*interestCmd) Usage() string {
	return `interest -a <account> -q <amount> [-d <date>] [-m <memo>]

  Records interest credited to an account.
`
}

func (c *interestCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.amount, "q", "", "Interest amount received")
}

func (c *interestCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.amount == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	amount, err := moneyman.ParseQuantity(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, account, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordInterest(account.ID, day, amount, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording interest: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Recorded interest of %s in %q on %s\n", amount, account.Name, day)
	return subcommands.ExitSuccess
}

// --- Exchange Command ---

type exchangeCmd struct {
	recordFlags
	from       string
	fromAmount string
	to         string
	toAmount   string
}

func (*exchangeCmd) Name() string { return "exchange" }
func (*exchangeCmd) Synopsis() string {
	return "swap one asset for another within an account"
}
func (*exchangeCmd) Usage() string {
	return `exchange -a <account> -from-s <ticker> -from-q <quantity> -to-s <ticker> -to-q <quantity> [-d <date>] [-m <memo>]

  Swaps one asset for another within an account, for example a currency
  conversion or a security exchanged in a merger. When securities are
  involved, the consumed cost basis carries over to the new position's lot.
`
}

func (c *exchangeCmd) SetFlags(f *flag.FlagSet) {
	c.recordFlags.register(f)
	f.StringVar(&c.from, "from-s", "", "Ticker of the asset given up")
	f.StringVar(&c.fromAmount, "from-q", "", "Quantity given up")
	f.StringVar(&c.to, "to-s", "", "Ticker of the asset received")
	f.StringVar(&c.toAmount, "to-q", "", "Quantity received")
}

func (c *exchangeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.from == "" || c.fromAmount == "" || c.to == "" || c.toAmount == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if c.from == c.to {
		fmt.Fprintln(os.Stderr, "Error: from and to assets cannot be the same.")
		return subcommands.ExitUsageError
	}
	fromQuantity, err := moneyman.ParseQuantity(c.fromAmount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing from quantity: %v\n", err)
		return subcommands.ExitUsageError
	}
	toQuantity, err := moneyman.ParseQuantity(c.toAmount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing to quantity: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	day, account, err := c.resolve(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	from, err := findAsset(engine, c.from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	to, err := findAsset(engine, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := engine.RecordExchange(account.ID, day, from.ID, fromQuantity, to.ID, toQuantity, c.details()); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording exchange: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Exchanged %s %s for %s %s in %q on %s\n",
		fromQuantity, from.Ticker, toQuantity, to.Ticker, account.Name, day)
	return subcommands.ExitSuccess
}
