package moneyman

import (
	"errors"
	"testing"
)

func TestTransactionView_CategorizedDeposit(t *testing.T) {
	f := newFixture(t)
	tx := f.deposit(f.checking, day(1), 100, CategoryTarget(f.groceries.ID))

	v, err := f.e.TransactionView(f.checking.ID, tx.ID)
	if err != nil {
		t.Fatalf("TransactionView() failed: %v", err)
	}
	if v.Synthesized {
		t.Error("owning view reported as synthesized")
	}
	if v.Target.Kind != TargetCategory || v.Target.AccountID != f.groceries.ID {
		t.Errorf("target = %s, want the groceries category", v.Target)
	}
	if !v.Amount.Equal(Q(100)) {
		t.Errorf("amount = %s, want 100", v.Amount)
	}
}

func TestTransactionView_SynthesizedCounterparty(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 500, NoTarget())
	tx := f.transfer(f.checking, f.savings, day(2), 200)

	v, err := f.e.TransactionView(f.savings.ID, tx.ID)
	if err != nil {
		t.Fatalf("TransactionView() failed: %v", err)
	}
	if !v.Synthesized {
		t.Error("counterparty view not reported as synthesized")
	}
	if v.Target.Kind != TargetAccount || v.Target.AccountID != f.checking.ID {
		t.Errorf("target = %s, want the checking account", v.Target)
	}
	if !v.Amount.Equal(Q(200)) {
		t.Errorf("amount = %s, want +200 on the receiving side", v.Amount)
	}
}

func TestSplit_CollapseRoundTrips(t *testing.T) {
	f := newFixture(t)
	tx := f.deposit(f.checking, day(1), 100, CategoryTarget(f.groceries.ID))
	before := f.entries(tx.ID)

	// split: -60 groceries stays, -40 goes to salary
	if err := f.e.SetEntryAmount(before[1].ID, Q(-60)); err != nil {
		t.Fatalf("SetEntryAmount() failed: %v", err)
	}
	if err := f.e.AddSplitLine(tx.ID, CategoryTarget(f.salary.ID), Q(-40), "bonus"); err != nil {
		t.Fatalf("AddSplitLine() failed: %v", err)
	}
	v, err := f.e.TransactionView(f.checking.ID, tx.ID)
	if err != nil {
		t.Fatalf("TransactionView() failed: %v", err)
	}
	if !v.Split() {
		t.Fatal("transaction did not enter split state")
	}

	// collapse: drop the added line and restore the original amount
	entries := f.entries(tx.ID)
	if err := f.e.DeleteSplitLine(entries[2].ID); err != nil {
		t.Fatalf("DeleteSplitLine() failed: %v", err)
	}
	if err := f.e.SetEntryAmount(entries[1].ID, Q(-100)); err != nil {
		t.Fatalf("SetEntryAmount() failed: %v", err)
	}

	v, err = f.e.TransactionView(f.checking.ID, tx.ID)
	if err != nil {
		t.Fatalf("TransactionView() failed: %v", err)
	}
	if v.Split() {
		t.Error("transaction still in split state after collapse")
	}
	if v.Target.Kind != TargetCategory || v.Target.AccountID != f.groceries.ID {
		t.Errorf("target = %s, want groceries restored", v.Target)
	}
	after := f.entries(tx.ID)
	if len(after) != len(before) {
		t.Fatalf("got %d entries after collapse, want %d", len(after), len(before))
	}
	for i := range after {
		if after[i].ID != before[i].ID || !after[i].Amount.Equal(before[i].Amount) {
			t.Errorf("entry %d = %+v, want %+v", i, after[i], before[i])
		}
	}
}

func TestDeleteSplitLine_RejectsOwningLeg(t *testing.T) {
	f := newFixture(t)
	tx := f.deposit(f.checking, day(1), 100, CategoryTarget(f.groceries.ID))
	entries := f.entries(tx.ID)

	if err := f.e.DeleteSplitLine(entries[0].ID); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument for the owning leg", err)
	}
}

func TestDeleteSplitLines_ConsultsInteractor(t *testing.T) {
	var asked int
	f := newFixture(t, WithInteractor(InteractorFunc(func(tx Transaction, lines int) bool {
		asked = lines
		return false
	})))
	tx := f.deposit(f.checking, day(1), 100, CategoryTarget(f.groceries.ID))
	entries := f.entries(tx.ID)
	if err := f.e.SetEntryAmount(entries[1].ID, Q(-60)); err != nil {
		t.Fatalf("SetEntryAmount() failed: %v", err)
	}
	if err := f.e.AddSplitLine(tx.ID, CategoryTarget(f.salary.ID), Q(-40), ""); err != nil {
		t.Fatalf("AddSplitLine() failed: %v", err)
	}

	entries = f.entries(tx.ID)
	if err := f.e.DeleteSplitLines(tx.ID, entries[1].ID, entries[2].ID); !errors.Is(err, ErrAborted) {
		t.Fatalf("got %v, want ErrAborted from the declined delete", err)
	}
	if asked != 2 {
		t.Errorf("interactor consulted with %d lines, want 2", asked)
	}
	// declined: nothing was deleted
	if got := len(f.entries(tx.ID)); got != 3 {
		t.Errorf("got %d entries after declined delete, want 3", got)
	}
}

func TestSetEntryAmount_MirrorsPlainTransfer(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 500, NoTarget())
	tx := f.transfer(f.checking, f.savings, day(2), 200)
	entries := f.entries(tx.ID)

	if err := f.e.SetEntryAmount(entries[0].ID, Q(-150)); err != nil {
		t.Fatalf("SetEntryAmount() failed: %v", err)
	}

	entries = f.entries(tx.ID)
	if !entries[0].Amount.Equal(Q(-150)) || !entries[1].Amount.Equal(Q(150)) {
		t.Errorf("legs = %s / %s, want -150 / 150", entries[0].Amount, entries[1].Amount)
	}
	f.balance(f.savings, f.usd, 150)
}

func TestSetEntryAmount_RejectsCounterpartySide(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 500, NoTarget())
	tx := f.transfer(f.checking, f.savings, day(2), 200)
	entries := f.entries(tx.ID)

	// entries[1] is the savings leg, owned by the checking side
	if err := f.e.SetEntryAmount(entries[1].ID, Q(300)); !errors.Is(err, ErrInvariant) {
		t.Fatalf("got %v, want ErrInvariant for a counterparty edit", err)
	}
	// clearing stays per-side
	if err := f.e.SetEntryCleared(entries[1].ID, Reconciled); err != nil {
		t.Fatalf("SetEntryCleared() on the counterparty leg failed: %v", err)
	}
}

func TestDeleteAccountTransaction_PlainTransferEitherSide(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 500, NoTarget())
	tx := f.transfer(f.checking, f.savings, day(2), 200)

	if err := f.e.DeleteAccountTransaction(f.savings.ID, tx.ID); err != nil {
		t.Fatalf("DeleteAccountTransaction() from the counterparty failed: %v", err)
	}
	if _, err := f.e.Store().Transaction(tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("transaction still present: %v", err)
	}
	f.balance(f.checking, f.usd, 500)
	f.balance(f.savings, f.usd, 0)
}

func TestDeleteAccountTransaction_RejectsSynthesizedSplitLeg(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 500, NoTarget())

	// a withdrawal split between a transfer to savings and a category
	tx := f.withdraw(f.checking, day(2), 100, AccountTarget(f.savings.ID))
	if err := f.e.AddSplitLine(tx.ID, CategoryTarget(f.groceries.ID), Q(40), ""); err != nil {
		t.Fatalf("AddSplitLine() failed: %v", err)
	}
	entries := f.entries(tx.ID)
	if err := f.e.SetEntryAmount(entries[1].ID, Q(60)); err != nil {
		t.Fatalf("SetEntryAmount() failed: %v", err)
	}

	if err := f.e.DeleteAccountTransaction(f.savings.ID, tx.ID); !errors.Is(err, ErrInvariant) {
		t.Fatalf("got %v, want ErrInvariant for the synthesized split leg", err)
	}
	// the owning register can still delete it
	if err := f.e.DeleteAccountTransaction(f.checking.ID, tx.ID); err != nil {
		t.Fatalf("DeleteAccountTransaction() from the owner failed: %v", err)
	}
}

func TestAccountTransactions_RegisterOrder(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(5), 100, NoTarget())
	f.deposit(f.checking, day(1), 50, NoTarget())
	f.withdraw(f.checking, day(3), 20, CategoryTarget(f.groceries.ID))

	views, err := f.e.AccountTransactions(f.checking.ID)
	if err != nil {
		t.Fatalf("AccountTransactions() failed: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d views, want 3", len(views))
	}
	for i := 1; i < len(views); i++ {
		if views[i].Transaction.When.Before(views[i-1].Transaction.When) {
			t.Errorf("register out of date order at index %d", i)
		}
	}
}
