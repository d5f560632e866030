package moneyman

import (
	"fmt"

	"github.com/google/uuid"
)

// Issue is one integrity finding. The checker reports; it never repairs.
type Issue interface {
	// Describe renders a human-readable account of the problem.
	Describe() string
}

// SplitTransactionTotalMismatch flags a split transaction whose category
// and transfer lines do not add up to the owning entry's amount.
type SplitTransactionTotalMismatch struct {
	Transaction Transaction
	// EntryTotal is the owning account's net amount.
	EntryTotal Quantity
	// SplitTotal is the negated sum of the split lines, the amount the
	// lines claim the owning entry should carry.
	SplitTotal Quantity
}

func (i SplitTransactionTotalMismatch) Describe() string {
	return fmt.Sprintf("split transaction %q on %s totals %s across its lines but the account entry carries %s",
		i.Transaction.Payee, i.Transaction.When, i.SplitTotal, i.EntryTotal)
}

// OrphanedTaxLotAssignment flags an assignment row pointing at a lot or an
// entry that no longer exists.
type OrphanedTaxLotAssignment struct {
	Assignment TaxLotAssignment
}

func (i OrphanedTaxLotAssignment) Describe() string {
	return fmt.Sprintf("tax lot assignment %s references a missing lot or entry", i.Assignment.ID)
}

// OverdrawnTaxLot flags a lot whose assignments consume more than it holds.
type OverdrawnTaxLot struct {
	Lot      TaxLot
	Assigned Quantity
}

func (i OverdrawnTaxLot) Describe() string {
	return fmt.Sprintf("tax lot %s holds %s but assignments consume %s", i.Lot.ID, i.Lot.Quantity, i.Assigned)
}

// CheckIntegrity sweeps the ledger for structural damage that the engine's
// invariants should have prevented, typically after hand-edited or
// imported data. It returns every finding; an empty slice means clean.
func CheckIntegrity(s Store) ([]Issue, error) {
	var issues []Issue

	txs, err := s.Transactions()
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		entries, err := s.Entries(tx.ID)
		if err != nil {
			return nil, err
		}
		if len(entries) < 3 {
			continue // splits only; pairs are mirrored by construction
		}
		owner := owningAccountID(entries)
		var own, lines Quantity
		for _, en := range entries {
			if en.AccountID == owner {
				own = own.Add(en.Amount)
			} else {
				lines = lines.Add(en.Amount)
			}
		}
		if !own.Add(lines).IsZero() {
			issues = append(issues, SplitTransactionTotalMismatch{
				Transaction: tx,
				EntryTotal:  own,
				SplitTotal:  lines.Neg(),
			})
		}
	}

	rows, err := s.Assignments()
	if err != nil {
		return nil, err
	}
	consumed := make(map[uuid.UUID]Quantity)
	for _, row := range rows {
		orphan := false
		if _, err := s.TaxLot(row.TaxLotID); err != nil {
			orphan = true
		}
		if _, err := s.Entry(row.ConsumingEntryID); err != nil {
			orphan = true
		}
		if orphan {
			issues = append(issues, OrphanedTaxLotAssignment{Assignment: row})
			continue
		}
		consumed[row.TaxLotID] = consumed[row.TaxLotID].Add(row.Amount)
	}

	assets, err := s.Assets()
	if err != nil {
		return nil, err
	}
	for _, asset := range assets {
		if asset.Kind != Security {
			continue
		}
		lots, err := s.AssetLots(asset.ID)
		if err != nil {
			return nil, err
		}
		for _, lot := range lots {
			assigned := consumed[lot.ID]
			if assigned.Sub(lot.Quantity).IsPositive() {
				issues = append(issues, OverdrawnTaxLot{Lot: lot, Assigned: assigned})
			}
		}
	}

	return issues, nil
}
