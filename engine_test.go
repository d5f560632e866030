package moneyman

import (
	"errors"
	"testing"
)

func TestRecordDeposit_Categorized(t *testing.T) {
	f := newFixture(t)

	tx := f.deposit(f.checking, day(1), 100, CategoryTarget(f.salary.ID))

	entries := f.entries(tx.ID)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].AccountID != f.checking.ID || !entries[0].Amount.Equal(Q(100)) {
		t.Errorf("own entry = %v in account %s, want +100 in checking", entries[0].Amount, entries[0].AccountID)
	}
	if entries[1].AccountID != f.salary.ID || !entries[1].Amount.Equal(Q(-100)) {
		t.Errorf("category entry = %v in account %s, want -100 in salary", entries[1].Amount, entries[1].AccountID)
	}
	f.balance(f.checking, f.usd, 100)
}

func TestRecordWithdrawal_Uncategorized(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 100, NoTarget())

	tx := f.withdraw(f.checking, day(2), 30, NoTarget())

	if entries := f.entries(tx.ID); len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	f.balance(f.checking, f.usd, 70)
}

func TestRecordTransfer_MirroredLegs(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 500, NoTarget())

	tx := f.transfer(f.checking, f.savings, day(2), 200)

	entries := f.entries(tx.ID)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if !entries[0].Amount.Add(entries[1].Amount).IsZero() {
		t.Errorf("legs %s and %s do not mirror", entries[0].Amount, entries[1].Amount)
	}
	if owner := owningAccountID(entries); owner != f.checking.ID {
		t.Errorf("owning account = %s, want the from side (checking)", owner)
	}
	f.balance(f.checking, f.usd, 300)
	f.balance(f.savings, f.usd, 200)
}

func TestRecordTransfer_RejectsCurrencyMismatch(t *testing.T) {
	f := newFixture(t)
	eurAccount := f.addAccount("EUR Wallet", Banking, f.eur.ID)

	_, err := f.e.RecordTransfer(f.checking.ID, eurAccount.ID, day(1), Q(100), Details{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

func TestClosedAccount_RejectsActivity(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.savings, day(1), 50, NoTarget())
	if _, err := f.e.CloseAccount(f.savings.ID); err != nil {
		t.Fatalf("CloseAccount() failed: %v", err)
	}

	_, err := f.e.RecordDeposit(f.savings.ID, day(2), Q(10), NoTarget(), Details{})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("deposit into closed account: got %v, want ErrInvariant", err)
	}
	_, err = f.e.RecordTransfer(f.checking.ID, f.savings.ID, day(2), Q(10), Details{})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("transfer into closed account: got %v, want ErrInvariant", err)
	}
	// the history stays readable
	f.balance(f.savings, f.usd, 50)
}

func TestSetAssetKind_LockedWhileInUse(t *testing.T) {
	f := newFixture(t)

	if _, err := f.e.SetAssetKind(f.usd.ID, Security); !errors.Is(err, ErrInvariant) {
		t.Fatalf("got %v, want ErrInvariant while an account uses the asset", err)
	}
	if _, err := f.e.SetAssetKind(f.msft.ID, Currency); err != nil {
		t.Fatalf("SetAssetKind() on unused asset failed: %v", err)
	}
}

func TestRecordDeposit_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	for _, amount := range []Quantity{Q(0), Q(-5)} {
		if _, err := f.e.RecordDeposit(f.checking.ID, day(1), amount, NoTarget(), Details{}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("amount %s: got %v, want ErrInvalidArgument", amount, err)
		}
	}
}

func TestSubmitTransaction_AssignsIDsAndOrdinals(t *testing.T) {
	f := newFixture(t)

	tx, err := f.e.SubmitTransaction(
		Transaction{When: day(3), Payee: "Imported", Action: Deposit},
		[]TransactionEntry{
			{AccountID: f.checking.ID, AssetID: f.usd.ID, Amount: Q(42), OfxFitID: "fit-1"},
		},
	)
	if err != nil {
		t.Fatalf("SubmitTransaction() failed: %v", err)
	}
	if !IsPersisted(tx.ID) {
		t.Fatal("transaction id was not assigned")
	}
	entries := f.entries(tx.ID)
	if len(entries) != 1 || entries[0].Ordinal != 0 || !IsPersisted(entries[0].ID) {
		t.Fatalf("entries not normalized: %+v", entries)
	}

	matches, err := f.e.Store().EntriesByFitID(f.checking.ID, "fit-1")
	if err != nil {
		t.Fatalf("EntriesByFitID() failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d fit-id matches, want 1", len(matches))
	}
}

func TestImportPrices_ReplacesSameDay(t *testing.T) {
	f := newFixture(t)

	if err := f.e.SetPrice(f.aapl.ID, f.usd.ID, day(1), Q(100)); err != nil {
		t.Fatalf("SetPrice() failed: %v", err)
	}
	if err := f.e.SetPrice(f.aapl.ID, f.usd.ID, day(1), Q(101)); err != nil {
		t.Fatalf("SetPrice() failed: %v", err)
	}

	prices, err := f.e.Store().Prices(f.aapl.ID)
	if err != nil {
		t.Fatalf("Prices() failed: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("got %d price points, want 1 after same-day replace", len(prices))
	}
	if !prices[0].Price.Equal(Q(101)) {
		t.Errorf("price = %s, want the replacing value 101", prices[0].Price)
	}
}

func TestImportPrices_ReplacesSameDayWithinOneCall(t *testing.T) {
	f := newFixture(t)

	err := f.e.ImportPrices([]PricePoint{
		{AssetID: f.aapl.ID, ReferenceAssetID: f.usd.ID, When: day(1), Price: Q(100)},
		{AssetID: f.aapl.ID, ReferenceAssetID: f.usd.ID, When: day(2), Price: Q(102)},
		{AssetID: f.aapl.ID, ReferenceAssetID: f.usd.ID, When: day(1), Price: Q(101)},
	})
	if err != nil {
		t.Fatalf("ImportPrices() failed: %v", err)
	}

	prices, err := f.e.Store().Prices(f.aapl.ID)
	if err != nil {
		t.Fatalf("Prices() failed: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("got %d price points, want 2", len(prices))
	}
	for _, p := range prices {
		if p.When == day(1) && !p.Price.Equal(Q(101)) {
			t.Errorf("day 1 price = %s, want the later value 101", p.Price)
		}
	}

	// a later single-point replace must not leave a stale duplicate
	if err := f.e.SetPrice(f.aapl.ID, f.usd.ID, day(1), Q(99)); err != nil {
		t.Fatalf("SetPrice() failed: %v", err)
	}
	prices, err = f.e.Store().Prices(f.aapl.ID)
	if err != nil {
		t.Fatalf("Prices() failed: %v", err)
	}
	if len(prices) != 2 {
		t.Errorf("got %d price points, want still 2 after replace", len(prices))
	}
}
