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

// --- Add Asset Command ---

type addAssetCmd struct {
	name      string
	ticker    string
	kind      string
	symbol    string
	digits    int
	preferred bool
}

func (*addAssetCmd) Name() string     { return "add-asset" }
func (*addAssetCmd) Synopsis() string { return "declare a currency or security in the catalog" }
func (*addAssetCmd) Usage() string {
	return `add-asset -n <name> -t <ticker> [-k currency|security] [-symbol <symbol>] [-digits <n>] [-preferred]

  Declares an asset. Currencies denominate accounts; securities are held in
  investing accounts and valued through their price history.
`
}

func (c *addAssetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Asset name")
	f.StringVar(&c.ticker, "t", "", "Asset ticker (e.g., USD, AAPL)")
	f.StringVar(&c.kind, "k", "currency", "Asset kind: currency or security")
	f.StringVar(&c.symbol, "symbol", "", "Display symbol for a currency. Defaults to the ticker")
	f.IntVar(&c.digits, "digits", 0, "Display precision. Currencies default from their ISO code")
	f.BoolVar(&c.preferred, "preferred", false, "Make this currency the ledger's preferred currency")
}

func (c *addAssetCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || c.ticker == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	kind, err := moneyman.ParseAssetKind(c.kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	asset, err := engine.AddAsset(moneyman.AssetSpec{
		Name:           c.name,
		Ticker:         c.ticker,
		Kind:           kind,
		CurrencySymbol: c.symbol,
		DecimalDigits:  c.digits,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding asset: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.preferred {
		if err := engine.SetPreferredCurrency(asset.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting preferred currency: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	fmt.Printf("Added %s asset %q (%s)\n", asset.Kind, asset.Name, asset.Ticker)
	return subcommands.ExitSuccess
}

// --- Price Command ---

type priceCmd struct {
	date      string
	asset     string
	reference string
	price     string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "record the price of an asset on a given day" }
func (*priceCmd) Usage() string {
	return `price -s <ticker> -p <price> [-c <reference-ticker>] [-d <date>]

  Records the value of one unit of an asset in a reference asset. Recording a
  second price for the same pair and day replaces the first.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Price date (YYYY-MM-DD)")
	f.StringVar(&c.asset, "s", "", "Asset ticker being priced")
	f.StringVar(&c.reference, "c", "", "Reference asset ticker. Defaults to the preferred currency")
	f.StringVar(&c.price, "p", "", "Value of one unit, as a decimal")
}

func (c *priceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.asset == "" || c.price == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, err := moneyman.ParseQuantity(c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine, closeLedger, err := openLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeLedger()

	asset, err := findAsset(engine, c.asset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var reference moneyman.Asset
	if c.reference != "" {
		reference, err = findAsset(engine, c.reference)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		cfg, err := engine.Store().Config()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		reference, err = engine.Store().Asset(cfg.PreferredCurrencyAssetID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error: no preferred currency set; use -c or add-asset -preferred")
			return subcommands.ExitFailure
		}
	}

	if err := engine.SetPrice(asset.ID, reference.ID, day, price); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording price: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Recorded %s = %s %s on %s\n", asset.Ticker, price, reference.Ticker, day)
	return subcommands.ExitSuccess
}
