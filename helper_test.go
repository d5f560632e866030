package moneyman

import (
	"testing"
	"time"

	"github.com/aarnott/moneyman/date"
	"github.com/google/uuid"
)

// day is shorthand for a date in the fixture year.
func day(d int) date.Date { return date.New(2025, time.June, d) }

// fixture is a ledger with the accounts and assets most tests need.
type fixture struct {
	t *testing.T
	e *Engine

	usd, eur, aapl, msft Asset

	checking, savings, brokerage Account
	groceries, salary            Account
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	e, err := NewEngine(store, opts...)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	f := &fixture{t: t, e: e}

	f.usd = f.addAsset(AssetSpec{Name: "US Dollar", Ticker: "USD", Kind: Currency})
	f.eur = f.addAsset(AssetSpec{Name: "Euro", Ticker: "EUR", Kind: Currency})
	f.aapl = f.addAsset(AssetSpec{Name: "Apple Inc", Ticker: "AAPL", Kind: Security})
	f.msft = f.addAsset(AssetSpec{Name: "Microsoft", Ticker: "MSFT", Kind: Security})

	f.checking = f.addAccount("Checking", Banking, f.usd.ID)
	f.savings = f.addAccount("Savings", Banking, f.usd.ID)
	f.brokerage = f.addAccount("Brokerage", Investing, f.usd.ID)
	f.groceries = f.addCategory("Groceries")
	f.salary = f.addCategory("Salary")

	if err := e.SetPreferredCurrency(f.usd.ID); err != nil {
		t.Fatalf("SetPreferredCurrency() failed: %v", err)
	}
	return f
}

func (f *fixture) addAsset(spec AssetSpec) Asset {
	f.t.Helper()
	a, err := f.e.AddAsset(spec)
	if err != nil {
		f.t.Fatalf("AddAsset(%q) failed: %v", spec.Name, err)
	}
	return a
}

func (f *fixture) addAccount(name string, kind AccountKind, currency uuid.UUID) Account {
	f.t.Helper()
	a, err := f.e.AddAccount(name, kind, currency)
	if err != nil {
		f.t.Fatalf("AddAccount(%q) failed: %v", name, err)
	}
	return a
}

func (f *fixture) addCategory(name string) Account {
	f.t.Helper()
	a, err := f.e.AddCategory(name)
	if err != nil {
		f.t.Fatalf("AddCategory(%q) failed: %v", name, err)
	}
	return a
}

func (f *fixture) deposit(acc Account, on date.Date, amount float64, target TransferTarget) Transaction {
	f.t.Helper()
	tx, err := f.e.RecordDeposit(acc.ID, on, Q(amount), target, Details{})
	if err != nil {
		f.t.Fatalf("RecordDeposit() failed: %v", err)
	}
	return tx
}

func (f *fixture) withdraw(acc Account, on date.Date, amount float64, target TransferTarget) Transaction {
	f.t.Helper()
	tx, err := f.e.RecordWithdrawal(acc.ID, on, Q(amount), target, Details{})
	if err != nil {
		f.t.Fatalf("RecordWithdrawal() failed: %v", err)
	}
	return tx
}

func (f *fixture) transfer(from, to Account, on date.Date, amount float64) Transaction {
	f.t.Helper()
	tx, err := f.e.RecordTransfer(from.ID, to.ID, on, Q(amount), Details{})
	if err != nil {
		f.t.Fatalf("RecordTransfer() failed: %v", err)
	}
	return tx
}

func (f *fixture) buy(on date.Date, sec Asset, quantity, cost float64) Transaction {
	f.t.Helper()
	tx, err := f.e.RecordBuy(f.brokerage.ID, on, sec.ID, Q(quantity), Q(cost), Details{})
	if err != nil {
		f.t.Fatalf("RecordBuy() failed: %v", err)
	}
	return tx
}

func (f *fixture) sell(on date.Date, sec Asset, quantity, proceeds float64) Transaction {
	f.t.Helper()
	tx, err := f.e.RecordSell(f.brokerage.ID, on, sec.ID, Q(quantity), Q(proceeds), Details{})
	if err != nil {
		f.t.Fatalf("RecordSell() failed: %v", err)
	}
	return tx
}

// balance asserts the quantity of one asset held by an account.
func (f *fixture) balance(acc Account, asset Asset, want float64) {
	f.t.Helper()
	balances, err := f.e.Balances(acc.ID)
	if err != nil {
		f.t.Fatalf("Balances(%q) failed: %v", acc.Name, err)
	}
	if got := balances[asset.ID]; !got.Equal(Q(want)) {
		f.t.Errorf("balance of %s in %q = %s, want %v", asset.Ticker, acc.Name, got, want)
	}
}

// entries fetches a transaction's entries, ordinal order.
func (f *fixture) entries(txID uuid.UUID) []TransactionEntry {
	f.t.Helper()
	entries, err := f.e.Store().Entries(txID)
	if err != nil {
		f.t.Fatalf("Entries() failed: %v", err)
	}
	return entries
}

// assignments fetches the assignment rows of the disposal entry of a
// transaction, the entry with a negative security amount.
func (f *fixture) assignments(txID uuid.UUID) []TaxLotAssignment {
	f.t.Helper()
	for _, en := range f.entries(txID) {
		asset, err := f.e.Store().Asset(en.AssetID)
		if err != nil {
			f.t.Fatalf("Asset() failed: %v", err)
		}
		if asset.Kind != Security || !en.Amount.IsNegative() {
			continue
		}
		rows, err := f.e.Store().EntryAssignments(en.ID)
		if err != nil {
			f.t.Fatalf("EntryAssignments() failed: %v", err)
		}
		return rows
	}
	f.t.Fatalf("transaction %s has no disposal entry", txID)
	return nil
}

// lot fetches the tax lot created by a transaction's acquisition entry.
func (f *fixture) lot(txID uuid.UUID) TaxLot {
	f.t.Helper()
	for _, en := range f.entries(txID) {
		lot, ok, err := f.e.Store().LotByCreatingEntry(en.ID)
		if err != nil {
			f.t.Fatalf("LotByCreatingEntry() failed: %v", err)
		}
		if ok {
			return lot
		}
	}
	f.t.Fatalf("transaction %s created no tax lot", txID)
	return TaxLot{}
}
