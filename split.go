package moneyman

import (
	"fmt"
	"sort"

	"github.com/aarnott/moneyman/date"
	"github.com/google/uuid"
)

// TransactionView is one transaction as seen from a particular account's
// register. The same transaction yields a different view per account it
// touches: the counterparty of a transfer sees a synthesized, read-mostly
// rendition of the row the owning account holds.
type TransactionView struct {
	Transaction Transaction
	// AccountID is the account whose register this view belongs to.
	AccountID uuid.UUID
	// Entries are the rows booked against AccountID, ordinal order.
	Entries []TransactionEntry
	// OtherEntries are the remaining legs, ordinal order.
	OtherEntries []TransactionEntry
	// Amount is the net movement of the account's own currency.
	Amount Quantity
	// Target summarizes where the money went: a category, another
	// account, the split sentinel, or nothing.
	Target TransferTarget
	// Synthesized is true when AccountID is not the owning account.
	Synthesized bool
}

// Split reports whether the transaction distributes over more than one
// category or transfer line.
func (v TransactionView) Split() bool { return v.Target.Kind == TargetSplit }

// loadTx fetches a transaction header with its entries in ordinal order.
func (e *Engine) loadTx(txID uuid.UUID) (Transaction, []TransactionEntry, error) {
	tx, err := e.store.Transaction(txID)
	if err != nil {
		return Transaction{}, nil, err
	}
	entries, err := e.store.Entries(txID)
	if err != nil {
		return Transaction{}, nil, err
	}
	return tx, entries, nil
}

// owningAccountID is the account of the lowest-ordinal entry. Edits to
// shared rows are only accepted from that account's perspective.
func owningAccountID(entries []TransactionEntry) uuid.UUID {
	if len(entries) == 0 {
		return uuid.Nil
	}
	owner := entries[0]
	for _, en := range entries[1:] {
		if en.Ordinal < owner.Ordinal {
			owner = en
		}
	}
	return owner.AccountID
}

// viewOf builds the register view of one transaction for one account.
func (e *Engine) viewOf(accountID uuid.UUID, tx Transaction, entries []TransactionEntry) (TransactionView, error) {
	acc, err := e.store.Account(accountID)
	if err != nil {
		return TransactionView{}, err
	}
	v := TransactionView{
		Transaction: tx,
		AccountID:   accountID,
		Synthesized: owningAccountID(entries) != accountID,
	}
	for _, en := range entries {
		if en.AccountID == accountID {
			v.Entries = append(v.Entries, en)
			if en.AssetID == acc.CurrencyAssetID {
				v.Amount = v.Amount.Add(en.Amount)
			}
		} else {
			v.OtherEntries = append(v.OtherEntries, en)
		}
	}
	switch len(v.OtherEntries) {
	case 0:
		v.Target = NoTarget()
	case 1:
		other, err := e.store.Account(v.OtherEntries[0].AccountID)
		if err != nil {
			return TransactionView{}, err
		}
		if other.Kind == Category {
			v.Target = CategoryTarget(other.ID)
		} else {
			v.Target = AccountTarget(other.ID)
		}
	default:
		v.Target = SplitTarget()
	}
	return v, nil
}

// TransactionView returns one transaction viewed from one account.
func (e *Engine) TransactionView(accountID, txID uuid.UUID) (TransactionView, error) {
	tx, entries, err := e.loadTx(txID)
	if err != nil {
		return TransactionView{}, err
	}
	for _, en := range entries {
		if en.AccountID == accountID {
			return e.viewOf(accountID, tx, entries)
		}
	}
	return TransactionView{}, invalidf("transaction %s has no entry in account %s", txID, accountID)
}

// AccountTransactions returns the register of an account: every
// transaction with at least one entry booked against it, date order.
func (e *Engine) AccountTransactions(accountID uuid.UUID) ([]TransactionView, error) {
	if _, err := e.store.Account(accountID); err != nil {
		return nil, err
	}
	rows, err := e.store.AccountEntries(accountID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	var views []TransactionView
	for _, en := range rows {
		if seen[en.TransactionID] {
			continue
		}
		seen[en.TransactionID] = true
		tx, entries, err := e.loadTx(en.TransactionID)
		if err != nil {
			return nil, err
		}
		v, err := e.viewOf(accountID, tx, entries)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Transaction.When.Before(views[j].Transaction.When)
	})
	return views, nil
}

// --- header edits, legal from either side ---

// SetTransactionPayee updates the shared payee of a transaction.
func (e *Engine) SetTransactionPayee(txID uuid.UUID, payee string) error {
	tx, err := e.store.Transaction(txID)
	if err != nil {
		return err
	}
	tx.Payee = payee
	return e.store.Update(tx)
}

// SetTransactionMemo updates the shared memo of a transaction.
func (e *Engine) SetTransactionMemo(txID uuid.UUID, memo string) error {
	tx, err := e.store.Transaction(txID)
	if err != nil {
		return err
	}
	tx.Memo = memo
	return e.store.Update(tx)
}

// SetTransactionCheckNumber updates the check number of a transaction.
func (e *Engine) SetTransactionCheckNumber(txID uuid.UUID, number string) error {
	tx, err := e.store.Transaction(txID)
	if err != nil {
		return err
	}
	tx.CheckNumber = number
	return e.store.Update(tx)
}

// SetTransactionDate moves a transaction to a new date. Lot eligibility
// depends on the date, so every security disposal of the transaction is
// recomputed, as are the lots the transaction created.
func (e *Engine) SetTransactionDate(txID uuid.UUID, on date.Date) error {
	tx, entries, err := e.loadTx(txID)
	if err != nil {
		return err
	}
	tx.When = on
	var b Batch
	b.Update(tx)
	if err := e.syncLots(&b, tx, entries, newLotCtx()); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// SetTransactionAction changes the action of a transaction. Lots and
// assignments follow: entries that stop acquiring lose their lot, entries
// that stop disposing lose their assignments, and the reverse transitions
// create them.
func (e *Engine) SetTransactionAction(txID uuid.UUID, action Action) error {
	tx, entries, err := e.loadTx(txID)
	if err != nil {
		return err
	}
	tx.Action = action
	var b Batch
	b.Update(tx)
	if err := e.syncLots(&b, tx, entries, newLotCtx()); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// --- entry edits ---

// SetEntryCleared updates the reconciliation state of one entry. Each side
// of a transfer clears independently.
func (e *Engine) SetEntryCleared(entryID uuid.UUID, c Cleared) error {
	en, err := e.store.Entry(entryID)
	if err != nil {
		return err
	}
	en.Cleared = c
	return e.store.Update(en)
}

// SetEntryMemo updates the per-entry memo.
func (e *Engine) SetEntryMemo(entryID uuid.UUID, memo string) error {
	en, err := e.store.Entry(entryID)
	if err != nil {
		return err
	}
	en.Memo = memo
	return e.store.Update(en)
}

// requireOwningSide rejects edits attempted from a synthesized view. Legs
// on category accounts belong to the owning side and stay editable.
func (e *Engine) requireOwningSide(entries []TransactionEntry, en TransactionEntry) error {
	if en.AccountID == owningAccountID(entries) {
		return nil
	}
	acc, err := e.store.Account(en.AccountID)
	if err != nil {
		return err
	}
	if acc.Kind == Category {
		return nil
	}
	if len(entries) > 2 {
		// a transfer line inside a split is a split line of the owner
		return nil
	}
	return invariantf("entry %s belongs to the counterparty view and cannot be edited from it", en.ID)
}

// mirrorEntry finds the opposite leg of a plain two-sided transfer: the
// single other entry carrying the same asset with the opposite sign.
func mirrorEntry(entries []TransactionEntry, en TransactionEntry) (TransactionEntry, bool) {
	var mirror TransactionEntry
	var found bool
	for _, other := range entries {
		if other.ID == en.ID || other.AssetID != en.AssetID {
			continue
		}
		if other.Amount.Equal(en.Amount.Neg()) {
			if found {
				return TransactionEntry{}, false
			}
			mirror = other
			found = true
		}
	}
	return mirror, found
}

// SetEntryAmount changes the amount of an entry. Only the owning side can
// do this; for a plain transfer the counterparty leg is adjusted in the
// same batch so the pair stays mirrored. Security amounts cascade into the
// lot engine.
func (e *Engine) SetEntryAmount(entryID uuid.UUID, amount Quantity) error {
	en, err := e.store.Entry(entryID)
	if err != nil {
		return err
	}
	tx, entries, err := e.loadTx(en.TransactionID)
	if err != nil {
		return err
	}
	if err := e.requireOwningSide(entries, en); err != nil {
		return err
	}
	mirror, mirrored := mirrorEntry(entries, en)
	// Only edits of the owning leg propagate; split lines diverge freely
	// while the user rebalances them.
	mirrored = mirrored && en.AccountID == owningAccountID(entries)
	en.Amount = amount
	var b Batch
	b.Update(en)
	if mirrored && len(entries) == 2 {
		mirror.Amount = amount.Neg()
		b.Update(mirror)
	}
	for i := range entries {
		if entries[i].ID == en.ID {
			entries[i] = en
		} else if mirrored && len(entries) == 2 && entries[i].ID == mirror.ID {
			entries[i] = mirror
		}
	}
	if err := e.syncLots(&b, tx, entries, newLotCtx()); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// SetEntryAccount moves an entry to another open account of a compatible
// kind. Only the owning side can retarget legs.
func (e *Engine) SetEntryAccount(entryID, accountID uuid.UUID) error {
	en, err := e.store.Entry(entryID)
	if err != nil {
		return err
	}
	_, entries, err := e.loadTx(en.TransactionID)
	if err != nil {
		return err
	}
	if err := e.requireOwningSide(entries, en); err != nil {
		return err
	}
	from, err := e.store.Account(en.AccountID)
	if err != nil {
		return err
	}
	to, err := e.requireOpenAccount(accountID)
	if err != nil {
		return err
	}
	if (from.Kind == Category) != (to.Kind == Category) {
		return invalidf("cannot move an entry between a category and a regular account")
	}
	asset, err := e.store.Asset(en.AssetID)
	if err != nil {
		return err
	}
	if asset.Kind == Currency && to.Kind != Category && to.CurrencyAssetID != en.AssetID {
		return invalidf("account %q does not hold the entry's currency", to.Name)
	}
	if asset.Kind == Security && to.Kind != Investing {
		return invalidf("account %q cannot hold securities", to.Name)
	}
	en.AccountID = accountID
	return e.store.Update(en)
}

// --- split lines ---

// AddSplitLine attaches one more category or transfer line to a
// transaction. The amount is the signed movement on the target account; a
// line that offsets a deposit carries a negative amount. With two or more
// lines the transaction is in split state.
func (e *Engine) AddSplitLine(txID uuid.UUID, target TransferTarget, amount Quantity, memo string) error {
	tx, entries, err := e.loadTx(txID)
	if err != nil {
		return err
	}
	if target.Kind != TargetAccount && target.Kind != TargetCategory {
		return invalidf("split line target must be a category or an account")
	}
	acc, err := e.requireOpenAccount(target.AccountID)
	if err != nil {
		return err
	}
	if target.Kind == TargetCategory && acc.Kind != Category {
		return invalidf("account %q is not a category", acc.Name)
	}
	if target.Kind == TargetAccount && acc.Kind == Category {
		return invalidf("category %q is not a transfer target", acc.Name)
	}
	owner, err := e.store.Account(owningAccountID(entries))
	if err != nil {
		return err
	}
	next := 0
	for _, en := range entries {
		if en.Ordinal >= next {
			next = en.Ordinal + 1
		}
	}
	en := TransactionEntry{
		ID:            NewID(),
		TransactionID: tx.ID,
		AccountID:     acc.ID,
		AssetID:       owner.CurrencyAssetID,
		Amount:        amount,
		Memo:          memo,
		Ordinal:       next,
	}
	var b Batch
	b.Insert(en)
	entries = append(entries, en)
	if err := e.syncLots(&b, tx, entries, newLotCtx()); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// DeleteSplitLine removes one category or transfer line. The owning entry
// itself is not a split line and cannot be removed this way. When the
// second-to-last line goes, the transaction collapses back to a simple
// categorized or transfer row; nothing else changes, so the collapse
// round-trips losslessly.
func (e *Engine) DeleteSplitLine(entryID uuid.UUID) error {
	en, err := e.store.Entry(entryID)
	if err != nil {
		return err
	}
	tx, entries, err := e.loadTx(en.TransactionID)
	if err != nil {
		return err
	}
	if en.AccountID == owningAccountID(entries) {
		return invalidf("entry %s is the transaction's own leg, not a split line", entryID)
	}
	var b Batch
	ctx := newLotCtx()
	if err := e.deleteEntryCascade(&b, ctx, en); err != nil {
		return err
	}
	if err := e.syncLots(&b, tx, entries, ctx); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// DeleteSplitLines removes several lines at once. Dropping two or more
// lines in one call asks the interactor to confirm the discard; without an
// interactor the deletion proceeds.
func (e *Engine) DeleteSplitLines(txID uuid.UUID, entryIDs ...uuid.UUID) error {
	tx, entries, err := e.loadTx(txID)
	if err != nil {
		return err
	}
	owner := owningAccountID(entries)
	byID := make(map[uuid.UUID]TransactionEntry, len(entries))
	for _, en := range entries {
		byID[en.ID] = en
	}
	var victims []TransactionEntry
	for _, id := range entryIDs {
		en, ok := byID[id]
		if !ok {
			return invalidf("entry %s does not belong to transaction %s", id, txID)
		}
		if en.AccountID == owner {
			return invalidf("entry %s is the transaction's own leg, not a split line", id)
		}
		victims = append(victims, en)
	}
	if len(victims) >= 2 && e.interact != nil && !e.interact.ConfirmDiscardSplit(tx, len(victims)) {
		return fmt.Errorf("%w: split of %q kept", ErrAborted, tx.Payee)
	}
	var b Batch
	ctx := newLotCtx()
	for _, en := range victims {
		if err := e.deleteEntryCascade(&b, ctx, en); err != nil {
			return err
		}
	}
	if err := e.syncLots(&b, tx, entries, ctx); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// --- whole-transaction deletion ---

// DeleteTransaction removes a transaction with all its entries, the lots
// those entries created, and the assignments that consumed them. Disposals
// elsewhere that drew on the deleted lots are recomputed in the same batch.
func (e *Engine) DeleteTransaction(txID uuid.UUID) error {
	tx, entries, err := e.loadTx(txID)
	if err != nil {
		return err
	}
	var b Batch
	ctx := newLotCtx()
	for _, en := range entries {
		if err := e.deleteEntryCascade(&b, ctx, en); err != nil {
			return err
		}
	}
	b.Delete(tx)
	return e.store.Apply(&b)
}

// DeleteAccountTransaction deletes a transaction as seen from one
// account's register. The owning side, or either side of a plain transfer,
// deletes the whole transaction. The synthesized leg of a split cannot be
// deleted from the counterparty register.
func (e *Engine) DeleteAccountTransaction(accountID, txID uuid.UUID) error {
	tx, entries, err := e.loadTx(txID)
	if err != nil {
		return err
	}
	v, err := e.viewOf(accountID, tx, entries)
	if err != nil {
		return err
	}
	if len(v.Entries) == 0 {
		return invalidf("transaction %s has no entry in account %s", txID, accountID)
	}
	if v.Synthesized && v.Split() {
		return invariantf("transaction %s is a split owned by another account; delete it from the owning register", txID)
	}
	return e.DeleteTransaction(txID)
}
