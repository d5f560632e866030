// Package cmd implements the CLI application to manage a ledger.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/aarnott/moneyman"
	"github.com/aarnott/moneyman/ledgerstore"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&addAssetCmd{}, "catalog")
	c.Register(&priceCmd{}, "catalog")
	c.Register(&importPricesCmd{}, "catalog")

	c.Register(&addAccountCmd{}, "accounts")
	c.Register(&addCategoryCmd{}, "accounts")
	c.Register(&closeAccountCmd{}, "accounts")

	c.Register(&depositCmd{}, "transactions")
	c.Register(&withdrawCmd{}, "transactions")
	c.Register(&transferCmd{}, "transactions")
	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&dividendCmd{}, "transactions")
	c.Register(&interestCmd{}, "transactions")
	c.Register(&exchangeCmd{}, "transactions")

	c.Register(&balancesCmd{}, "reports")
	c.Register(&registerCmd{}, "reports")
	c.Register(&networthCmd{}, "reports")
	c.Register(&gainsCmd{}, "reports")
	c.Register(&checkCmd{}, "reports")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var ledgerFlag = flag.String("ledger", "", "Path to the ledger database file. Overrides MMN_LEDGER and the config file.")

// ledgerPath resolves the ledger file location: the -ledger flag wins, then
// the MMN_LEDGER environment variable, then the config file, then a default
// under the user's data directory.
func ledgerPath() string {
	if *ledgerFlag != "" {
		return *ledgerFlag
	}

	v := viper.New()
	v.SetDefault("ledger", filepath.Join(os.Getenv("HOME"), ".local", "share", "mmn", "ledger.db"))
	v.SetConfigType("toml")
	if p := os.Getenv("MMN_CONFIG"); p != "" {
		v.SetConfigFile(p)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "mmn"))
		v.SetConfigName("config")
	}
	v.SetEnvPrefix("MMN")
	v.AutomaticEnv()

	// read config file if present
	_ = v.ReadInConfig()

	return v.GetString("ledger")
}

// openLedger opens the ledger database and builds an engine on it. The
// returned close function must be called before the process exits.
func openLedger() (*moneyman.Engine, func() error, error) {
	path := ledgerPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("cannot create ledger directory: %w", err)
	}

	store, err := ledgerstore.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open ledger %q: %w", path, err)
	}

	engine, err := moneyman.NewEngine(store, moneyman.WithInteractor(consoleInteractor{}))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return engine, store.Close, nil
}

// consoleInteractor answers engine confirmation requests on the terminal.
type consoleInteractor struct{}

func (consoleInteractor) ConfirmDiscardSplit(tx moneyman.Transaction, lines int) bool {
	fmt.Fprintf(os.Stderr, "Removing %d lines collapses the split of %q (%s). Continue? [y/N] ",
		lines, tx.Payee, tx.When)
	var answer string
	fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// findAccount resolves an account by its exact name.
func findAccount(e *moneyman.Engine, name string) (moneyman.Account, error) {
	accounts, err := e.Store().Accounts()
	if err != nil {
		return moneyman.Account{}, err
	}
	for _, a := range accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return moneyman.Account{}, fmt.Errorf("no account named %q", name)
}

// findAsset resolves an asset by its ticker.
func findAsset(e *moneyman.Engine, ticker string) (moneyman.Asset, error) {
	assets, err := e.Store().Assets()
	if err != nil {
		return moneyman.Asset{}, err
	}
	for _, a := range assets {
		if a.Ticker == ticker {
			return a, nil
		}
	}
	return moneyman.Asset{}, fmt.Errorf("no asset with ticker %q", ticker)
}

// accountNames builds the id-to-name map the renderer uses for target labels.
func accountNames(e *moneyman.Engine) (map[uuid.UUID]string, error) {
	accounts, err := e.Store().Accounts()
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names, nil
}
