package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/subcommands"

	"github.com/aarnott/moneyman"
	"github.com/aarnott/moneyman/date"
)

type importPricesCmd struct {
	asset     string
	reference string
	file      string
	dates     string
	prices    string
}

func (*importPricesCmd) Name() string     { return "import-prices" }
func (*importPricesCmd) Synopsis() string { return "import a price series from a JSON export" }
func (*importPricesCmd) Usage() string {
	return `import-prices -s <ticker> -c <reference-ticker> -f <file.json> -dates <jsonpath> -prices <jsonpath>

  Extracts a price series from an arbitrary JSON export using two jsonpath
  expressions, one selecting the dates and one the prices, and records every
  point atomically. Points for an existing pair and day are replaced.

Usage Examples:
# EODHD-style export: [{"date":"2025-06-02","close":171.2}, ...]
$ mmn import-prices -s AAPL -c USD -f aapl.json -dates '$[:].date' -prices '$[:].close'
`
}

func (c *importPricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "s", "", "Asset ticker being priced")
	f.StringVar(&c.reference, "c", "", "Reference asset ticker")
	f.StringVar(&c.file, "f", "", "JSON file to read")
	f.StringVar(&c.dates, "dates", "", "jsonpath selecting the date column (YYYY-MM-DD strings)")
	f.StringVar(&c.prices, "prices", "", "jsonpath selecting the price column")
}

func (c *importPricesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.asset == "" || c.reference == "" || c.file == "" || c.dates == "" || c.prices == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	file, err := os.Open(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", c.file, err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	// UseNumber keeps prices as their exact decimal text.
	dec := json.NewDecoder(file)
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %q: %v\n", c.file, err)
		return subcommands.ExitFailure
	}

	days, err := selectColumn(jobj, c.dates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting dates: %v\n", err)
		return subcommands.ExitFailure
	}
	prices, err := selectColumn(jobj, c.prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting prices: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(days) != len(prices) {
		fmt.Fprintf(os.Stderr, "Error: %d dates but %d prices\n", len(days), len(prices))
		return subcommands.ExitFailure
	}
	if len(days) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no price points matched.")
		return subcommands.ExitSuccess
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
	reference, err := findAsset(engine, c.reference)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	points := make([]moneyman.PricePoint, 0, len(days))
	for i := range days {
		day, err := date.Parse(fmt.Sprint(days[i]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date %v: %v\n", days[i], err)
			return subcommands.ExitFailure
		}
		price, err := moneyman.ParseQuantity(fmt.Sprint(prices[i]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing price %v: %v\n", prices[i], err)
			return subcommands.ExitFailure
		}
		points = append(points, moneyman.PricePoint{
			AssetID:          asset.ID,
			ReferenceAssetID: reference.ID,
			When:             day,
			Price:            price,
		})
	}

	if err := engine.ImportPrices(points); err != nil {
		fmt.Fprintf(os.Stderr, "Error importing prices: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Imported %d price points for %s/%s\n", len(points), asset.Ticker, reference.Ticker)
	return subcommands.ExitSuccess
}

// selectColumn evaluates a jsonpath expression and normalizes the result to
// a flat list. jsonpath is never clear about whether it returns a list or a
// single value, so a scalar becomes a one-element list.
func selectColumn(jobj any, path string) ([]any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", path, err)
	}
	if jlist, ok := jval.([]any); ok {
		return jlist, nil
	}
	return []any{jval}, nil
}
