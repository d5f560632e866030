package moneyman

import (
	"testing"
)

func TestCheckIntegrity_CleanLedger(t *testing.T) {
	f := newFixture(t)
	f.deposit(f.checking, day(1), 100, CategoryTarget(f.salary.ID))
	f.transfer(f.checking, f.savings, day(2), 40)
	f.buy(day(3), f.aapl, 10, 1000)
	f.sell(day(4), f.aapl, 5, 600)

	issues, err := CheckIntegrity(f.e.Store())
	if err != nil {
		t.Fatalf("CheckIntegrity() failed: %v", err)
	}
	if len(issues) != 0 {
		for _, issue := range issues {
			t.Errorf("unexpected issue: %s", issue.Describe())
		}
	}
}

func TestCheckIntegrity_SplitTotalMismatch(t *testing.T) {
	f := newFixture(t)
	tx := f.deposit(f.checking, day(1), 100, CategoryTarget(f.groceries.ID))

	// hand-damage the split: lines claim -60 and -34 against an entry of 100
	if err := f.e.AddSplitLine(tx.ID, CategoryTarget(f.salary.ID), Q(-34), ""); err != nil {
		t.Fatalf("AddSplitLine() failed: %v", err)
	}
	entries := f.entries(tx.ID)
	if err := f.e.SetEntryAmount(entries[1].ID, Q(-60)); err != nil {
		t.Fatalf("SetEntryAmount() failed: %v", err)
	}

	issues, err := CheckIntegrity(f.e.Store())
	if err != nil {
		t.Fatalf("CheckIntegrity() failed: %v", err)
	}
	var found *SplitTransactionTotalMismatch
	for _, issue := range issues {
		if m, ok := issue.(SplitTransactionTotalMismatch); ok {
			found = &m
		}
	}
	if found == nil {
		t.Fatal("no SplitTransactionTotalMismatch reported")
	}
	if !found.EntryTotal.Equal(Q(100)) || !found.SplitTotal.Equal(Q(94)) {
		t.Errorf("mismatch reports entry %s vs lines %s, want 100 vs 94", found.EntryTotal, found.SplitTotal)
	}
}

func TestCheckIntegrity_OrphanedAssignment(t *testing.T) {
	f := newFixture(t)
	f.buy(day(1), f.aapl, 10, 1000)
	sell := f.sell(day(2), f.aapl, 5, 600)
	rows := f.assignments(sell.ID)

	// simulate external damage: the lot vanishes but the row stays
	lot, err := f.e.Store().TaxLot(rows[0].TaxLotID)
	if err != nil {
		t.Fatalf("TaxLot() failed: %v", err)
	}
	if err := f.e.Store().Delete(lot); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	issues, err := CheckIntegrity(f.e.Store())
	if err != nil {
		t.Fatalf("CheckIntegrity() failed: %v", err)
	}
	var found bool
	for _, issue := range issues {
		if o, ok := issue.(OrphanedTaxLotAssignment); ok && o.Assignment.ID == rows[0].ID {
			found = true
		}
	}
	if !found {
		t.Fatal("no OrphanedTaxLotAssignment reported")
	}
}

func TestCheckIntegrity_OverdrawnLot(t *testing.T) {
	f := newFixture(t)
	f.buy(day(1), f.aapl, 10, 1000)
	sell := f.sell(day(2), f.aapl, 5, 600)
	rows := f.assignments(sell.ID)

	// a manual pin can overdraw a lot; the checker reports, never repairs
	if err := f.e.PinAssignment(rows[0].ID, Q(25)); err != nil {
		t.Fatalf("PinAssignment() failed: %v", err)
	}

	issues, err := CheckIntegrity(f.e.Store())
	if err != nil {
		t.Fatalf("CheckIntegrity() failed: %v", err)
	}
	var found *OverdrawnTaxLot
	for _, issue := range issues {
		if o, ok := issue.(OverdrawnTaxLot); ok {
			found = &o
		}
	}
	if found == nil {
		t.Fatal("no OverdrawnTaxLot reported")
	}
	if !found.Assigned.Equal(Q(25)) {
		t.Errorf("assigned = %s, want 25", found.Assigned)
	}
}
