package ledgerstore

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/aarnott/moneyman"
	"github.com/aarnott/moneyman/date"
)

func day(d int) date.Date { return date.New(2025, time.June, d) }

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path, WithLogger(slog.Default()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigratesEmptyFile(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Assets(); err != nil {
		t.Fatalf("Assets() on a fresh store failed: %v", err)
	}
	if _, err := s.Config(); !errors.Is(err, moneyman.ErrNotFound) {
		t.Fatalf("Config() on a fresh store = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_RoundTripsThroughEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	e, err := moneyman.NewEngine(s)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	usd, err := e.AddAsset(moneyman.AssetSpec{Name: "US Dollar", Ticker: "USD", Kind: moneyman.Currency})
	if err != nil {
		t.Fatalf("AddAsset() failed: %v", err)
	}
	aapl, err := e.AddAsset(moneyman.AssetSpec{Name: "Apple Inc", Ticker: "AAPL", Kind: moneyman.Security})
	if err != nil {
		t.Fatalf("AddAsset() failed: %v", err)
	}
	if err := e.SetPreferredCurrency(usd.ID); err != nil {
		t.Fatalf("SetPreferredCurrency() failed: %v", err)
	}
	checking, err := e.AddAccount("Checking", moneyman.Banking, usd.ID)
	if err != nil {
		t.Fatalf("AddAccount() failed: %v", err)
	}
	brokerage, err := e.AddAccount("Brokerage", moneyman.Investing, usd.ID)
	if err != nil {
		t.Fatalf("AddAccount() failed: %v", err)
	}
	groceries, err := e.AddCategory("Groceries")
	if err != nil {
		t.Fatalf("AddCategory() failed: %v", err)
	}

	if _, err := e.RecordDeposit(checking.ID, day(1), moneyman.Q(1000), moneyman.NoTarget(), moneyman.Details{Payee: "Employer"}); err != nil {
		t.Fatalf("RecordDeposit() failed: %v", err)
	}
	if _, err := e.RecordWithdrawal(checking.ID, day(2), moneyman.Q(40), moneyman.CategoryTarget(groceries.ID), moneyman.Details{}); err != nil {
		t.Fatalf("RecordWithdrawal() failed: %v", err)
	}
	buy, err := e.RecordBuy(brokerage.ID, day(3), aapl.ID, moneyman.Q(10), moneyman.Q(500), moneyman.Details{})
	if err != nil {
		t.Fatalf("RecordBuy() failed: %v", err)
	}
	if _, err := e.RecordSell(brokerage.ID, day(4), aapl.ID, moneyman.Q(4), moneyman.Q(300), moneyman.Details{}); err != nil {
		t.Fatalf("RecordSell() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// a second open sees everything, including derived lot state
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	e2, err := moneyman.NewEngine(s2)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	balances, err := e2.Balances(checking.ID)
	if err != nil {
		t.Fatalf("Balances() failed: %v", err)
	}
	if got := balances[usd.ID]; !got.Equal(moneyman.Q(960)) {
		t.Errorf("checking balance = %s, want 960", got)
	}
	balances, err = e2.Balances(brokerage.ID)
	if err != nil {
		t.Fatalf("Balances() failed: %v", err)
	}
	if got := balances[aapl.ID]; !got.Equal(moneyman.Q(6)) {
		t.Errorf("aapl position = %s, want 6", got)
	}

	entries, err := s2.Entries(buy.ID)
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	lot, ok, err := s2.LotByCreatingEntry(entries[0].ID)
	if err != nil || !ok {
		t.Fatalf("LotByCreatingEntry() = %v, %v, want the buy's lot", ok, err)
	}
	out, err := e2.LotOutstanding(lot.ID)
	if err != nil {
		t.Fatalf("LotOutstanding() failed: %v", err)
	}
	if !out.Equal(moneyman.Q(6)) {
		t.Errorf("lot outstanding = %s, want 6 after selling 4", out)
	}

	cfg, err := s2.Config()
	if err != nil {
		t.Fatalf("Config() failed: %v", err)
	}
	if cfg.PreferredCurrencyAssetID != usd.ID {
		t.Errorf("preferred currency = %s, want USD", cfg.PreferredCurrencyAssetID)
	}
}

func TestSQLiteStore_ApplyIsAtomic(t *testing.T) {
	s := openTestStore(t)

	good := moneyman.Asset{ID: moneyman.NewID(), Name: "US Dollar", Ticker: "USD", Kind: moneyman.Currency}
	var b moneyman.Batch
	b.Insert(good)
	b.Update(moneyman.Asset{ID: moneyman.NewID(), Name: "Ghost", Ticker: "GST"})

	if err := s.Apply(&b); !errors.Is(err, moneyman.ErrNotFound) {
		t.Fatalf("Apply() = %v, want ErrNotFound", err)
	}
	if _, err := s.Asset(good.ID); !errors.Is(err, moneyman.ErrNotFound) {
		t.Fatalf("insert survived a failed batch: %v", err)
	}
}

func TestSQLiteStore_EmitsOneChangeSetPerApply(t *testing.T) {
	s := openTestStore(t)

	var sets []moneyman.ChangeSet
	cancel := s.Subscribe(func(cs moneyman.ChangeSet) { sets = append(sets, cs) })
	defer cancel()

	a := moneyman.Asset{ID: moneyman.NewID(), Name: "US Dollar", Ticker: "USD", Kind: moneyman.Currency}
	b := moneyman.Asset{ID: moneyman.NewID(), Name: "Euro", Ticker: "EUR", Kind: moneyman.Currency}
	var batch moneyman.Batch
	batch.Insert(a)
	batch.Insert(b)
	if err := s.Apply(&batch); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if len(sets) != 1 || len(sets[0].Inserted) != 2 {
		t.Fatalf("got %+v, want one change set with two inserts", sets)
	}

	a.Name = "Dollar"
	if err := s.Update(a); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if len(sets) != 2 || len(sets[1].Updated) != 1 {
		t.Fatalf("update change set missing: %+v", sets)
	}
	if sets[1].Updated[0].Before.(moneyman.Asset).Name != "US Dollar" {
		t.Errorf("before state = %+v, want the pre-update row", sets[1].Updated[0].Before)
	}
}

func TestSQLiteStore_DisposedRejectsEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	a := moneyman.Asset{ID: moneyman.NewID(), Name: "US Dollar", Ticker: "USD"}
	if err := s.Insert(a); !errors.Is(err, moneyman.ErrStoreDisposed) {
		t.Errorf("Insert() after close = %v, want ErrStoreDisposed", err)
	}
	if _, err := s.Assets(); !errors.Is(err, moneyman.ErrStoreDisposed) {
		t.Errorf("Assets() after close = %v, want ErrStoreDisposed", err)
	}
	if err := s.Close(); !errors.Is(err, moneyman.ErrStoreDisposed) {
		t.Errorf("second Close() = %v, want ErrStoreDisposed", err)
	}
	cancel := s.Subscribe(func(moneyman.ChangeSet) {})
	if cancel == nil {
		t.Fatal("Subscribe() after close returned a nil cancel")
	}
	cancel()
	if len(s.subs) != 0 {
		t.Errorf("Subscribe() after close registered an observer")
	}
}

func TestOpen_RefusesFutureSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	// pretend a newer build migrated the file further
	if _, err := s.db.Exec(`UPDATE schema_migrations SET version = ?`, schemaVersion+10); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, moneyman.ErrFutureSchema) {
		t.Fatalf("Open() = %v, want ErrFutureSchema", err)
	}
}
