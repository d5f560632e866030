package moneyman

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// lotCtx tracks the lot-related effects already staged in the current batch,
// so that several recomputations inside one atomic mutation observe each
// other instead of the stale store state.
type lotCtx struct {
	deletedEntries     map[uuid.UUID]bool
	deletedLots        map[uuid.UUID]bool
	deletedAssignments map[uuid.UUID]bool

	// lots written in this batch (new or updated), and the asset they hold,
	// which for new lots cannot be resolved through the store yet.
	lots      map[uuid.UUID]TaxLot
	lotAssets map[uuid.UUID]uuid.UUID

	// overrides holds the full recomputed assignment row set per consuming
	// entry. When set, the store rows of that entry are disregarded.
	overrides map[uuid.UUID][]TaxLotAssignment
}

func newLotCtx() *lotCtx {
	return &lotCtx{
		deletedEntries:     make(map[uuid.UUID]bool),
		deletedLots:        make(map[uuid.UUID]bool),
		deletedAssignments: make(map[uuid.UUID]bool),
		lots:               make(map[uuid.UUID]TaxLot),
		lotAssets:          make(map[uuid.UUID]uuid.UUID),
		overrides:          make(map[uuid.UUID][]TaxLotAssignment),
	}
}

// internalSecurityMove reports whether a security entry is one leg of a
// transfer between tracked accounts. Such moves preserve lot identity:
// they neither create nor consume lots.
func internalSecurityMove(tx Transaction, entries []TransactionEntry, entry TransactionEntry) bool {
	if tx.Action != Transfer {
		return false
	}
	for _, other := range entries {
		if other.ID == entry.ID {
			continue
		}
		if other.AssetID == entry.AssetID && other.Amount.Equal(entry.Amount.Neg()) {
			return true
		}
	}
	return false
}

// syncLots reconciles tax lots and assignments with the post-state of one
// transaction. It stages every change on the batch; nothing touches the
// store until the caller applies it. Disposals are processed before
// acquisitions so that an exchange's acquired leg can carry over the basis
// its withdraw leg consumed.
func (e *Engine) syncLots(b *Batch, tx Transaction, entries []TransactionEntry, ctx *lotCtx) error {
	var acquisitions []TransactionEntry
	for _, en := range entries {
		if ctx.deletedEntries[en.ID] {
			continue
		}
		asset, err := e.store.Asset(en.AssetID)
		if err != nil {
			return fmt.Errorf("entry %s: %w", en.ID, err)
		}
		if asset.Kind != Security {
			continue
		}
		if internalSecurityMove(tx, entries, en) {
			continue
		}
		acquires := tx.Action.IsAcquisition() && en.Amount.IsPositive()
		disposes := tx.Action.IsDisposal() && en.Amount.IsNegative()

		if acquires {
			acquisitions = append(acquisitions, en)
		} else if err := e.dropLotOf(b, ctx, en); err != nil {
			return err
		}

		if disposes {
			if err := e.reassignAuto(b, ctx, tx, en); err != nil {
				return err
			}
		} else if err := e.dropAssignmentsOf(b, ctx, en); err != nil {
			return err
		}
	}
	for _, en := range acquisitions {
		if err := e.upsertLot(b, ctx, tx, entries, en); err != nil {
			return err
		}
	}
	return nil
}

// upsertLot creates or updates the tax lot of an acquisition entry.
func (e *Engine) upsertLot(b *Batch, ctx *lotCtx, tx Transaction, entries []TransactionEntry, en TransactionEntry) error {
	lot, exists, err := e.store.LotByCreatingEntry(en.ID)
	if err != nil {
		return err
	}
	if exists && ctx.deletedLots[lot.ID] {
		exists = false
	}
	if !exists {
		lot = TaxLot{ID: NewID(), CreatingEntryID: en.ID}
	}
	before := lot

	lot.AcquiredDate = tx.When
	lot.Quantity = en.Amount
	lot.CostBasis, lot.CostBasisAssetID = e.acquisitionBasis(ctx, tx, entries, en)
	if tx.Action == Add {
		if !en.AcquisitionDate.IsZero() {
			lot.AcquiredDate = en.AcquisitionDate
		}
		if !en.AcquisitionPrice.IsZero() {
			lot.CostBasis = en.AcquisitionPrice.Mul(en.Amount)
		}
	}

	ctx.lots[lot.ID] = lot
	ctx.lotAssets[lot.ID] = en.AssetID
	if !exists {
		b.Insert(lot)
		return nil
	}
	if lotEqual(lot, before) {
		return nil
	}
	b.Update(lot)
	// A shrunk lot may now be over-consumed; recompute its consumers.
	return e.recomputeConsumers(b, ctx, lot.ID)
}

// acquisitionBasis derives the cost basis of an acquisition: the paired
// currency leg for a buy, the carried-over basis of the withdraw leg for an
// exchange, zero otherwise.
func (e *Engine) acquisitionBasis(ctx *lotCtx, tx Transaction, entries []TransactionEntry, en TransactionEntry) (Quantity, uuid.UUID) {
	switch tx.Action {
	case Buy:
		for _, other := range entries {
			if other.ID == en.ID || other.Amount.IsPositive() {
				continue
			}
			if asset, err := e.store.Asset(other.AssetID); err == nil && asset.Kind == Currency {
				return other.Amount.Abs(), other.AssetID
			}
		}
	case Exchange:
		var basis Quantity
		var basisAsset uuid.UUID
		for _, other := range entries {
			if other.ID == en.ID || !other.Amount.IsNegative() {
				continue
			}
			for _, row := range ctx.overrides[other.ID] {
				lot, ok := e.lookupLot(ctx, row.TaxLotID)
				if !ok {
					continue
				}
				basis = basis.Add(lot.UnitCost().Mul(row.Amount))
				basisAsset = lot.CostBasisAssetID
			}
		}
		return basis, basisAsset
	case Add:
		acc, err := e.store.Account(en.AccountID)
		if err == nil {
			return Quantity{}, acc.CurrencyAssetID
		}
	}
	// a basis of zero in the account currency
	if acc, err := e.store.Account(en.AccountID); err == nil {
		return Quantity{}, acc.CurrencyAssetID
	}
	return Quantity{}, uuid.Nil
}

func (e *Engine) lookupLot(ctx *lotCtx, id uuid.UUID) (TaxLot, bool) {
	if lot, ok := ctx.lots[id]; ok {
		return lot, true
	}
	if ctx.deletedLots[id] {
		return TaxLot{}, false
	}
	lot, err := e.store.TaxLot(id)
	if err != nil {
		return TaxLot{}, false
	}
	return lot, true
}

// dropLotOf deletes the lot rooted at an entry that no longer is an
// acquisition, cascading to the assignments that had consumed the lot. The
// disposals behind those assignments become under-assigned and are
// recomputed within the same batch.
func (e *Engine) dropLotOf(b *Batch, ctx *lotCtx, en TransactionEntry) error {
	lot, exists, err := e.store.LotByCreatingEntry(en.ID)
	if err != nil {
		return err
	}
	if !exists || ctx.deletedLots[lot.ID] {
		return nil
	}
	return e.deleteLotCascade(b, ctx, lot)
}

func (e *Engine) deleteLotCascade(b *Batch, ctx *lotCtx, lot TaxLot) error {
	rows, err := e.store.LotAssignments(lot.ID)
	if err != nil {
		return err
	}
	ctx.deletedLots[lot.ID] = true
	b.Delete(lot)
	var consumers []uuid.UUID
	for _, row := range rows {
		if ctx.deletedAssignments[row.ID] {
			continue
		}
		ctx.deletedAssignments[row.ID] = true
		b.Delete(row)
		if !ctx.deletedEntries[row.ConsumingEntryID] {
			consumers = append(consumers, row.ConsumingEntryID)
		}
	}
	for _, entryID := range consumers {
		en, err := e.store.Entry(entryID)
		if err != nil {
			return err
		}
		tx, err := e.store.Transaction(en.TransactionID)
		if err != nil {
			return err
		}
		if err := e.reassignAuto(b, ctx, tx, en); err != nil {
			return err
		}
	}
	return nil
}

// recomputeConsumers reassigns every disposal currently drawing from a lot.
func (e *Engine) recomputeConsumers(b *Batch, ctx *lotCtx, lotID uuid.UUID) error {
	rows, err := e.store.LotAssignments(lotID)
	if err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool)
	for _, row := range rows {
		if ctx.deletedAssignments[row.ID] || ctx.deletedEntries[row.ConsumingEntryID] || seen[row.ConsumingEntryID] {
			continue
		}
		seen[row.ConsumingEntryID] = true
		en, err := e.store.Entry(row.ConsumingEntryID)
		if err != nil {
			return err
		}
		tx, err := e.store.Transaction(en.TransactionID)
		if err != nil {
			return err
		}
		if err := e.reassignAuto(b, ctx, tx, en); err != nil {
			return err
		}
	}
	return nil
}

// dropAssignmentsOf deletes every assignment of an entry that no longer is
// a disposal.
func (e *Engine) dropAssignmentsOf(b *Batch, ctx *lotCtx, en TransactionEntry) error {
	rows, err := e.entryRows(ctx, en.ID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		ctx.deletedAssignments[row.ID] = true
		b.Delete(row)
	}
	delete(ctx.overrides, en.ID)
	return nil
}

// entryRows returns the live assignment rows of a consuming entry, ctx
// filters applied.
func (e *Engine) entryRows(ctx *lotCtx, entryID uuid.UUID) ([]TaxLotAssignment, error) {
	if rows, ok := ctx.overrides[entryID]; ok {
		return rows, nil
	}
	rows, err := e.store.EntryAssignments(entryID)
	if err != nil {
		return nil, err
	}
	var out []TaxLotAssignment
	for _, row := range rows {
		if ctx.deletedAssignments[row.ID] || ctx.deletedLots[row.TaxLotID] {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// reassignAuto recomputes an entry's assignments, keeping its currently
// pinned rows unchanged.
func (e *Engine) reassignAuto(b *Batch, ctx *lotCtx, tx Transaction, en TransactionEntry) error {
	rows, err := e.entryRows(ctx, en.ID)
	if err != nil {
		return err
	}
	var pinned []TaxLotAssignment
	for _, row := range rows {
		if row.Pinned {
			pinned = append(pinned, row)
		}
	}
	return e.reassign(b, ctx, tx, en, pinned)
}

// candidateLots returns the FIFO-ordered lots eligible for a disposal:
// same asset, acquired at or before the disposal date, batch state applied.
func (e *Engine) candidateLots(ctx *lotCtx, assetID uuid.UUID, tx Transaction) ([]TaxLot, error) {
	stored, err := e.store.AssetLots(assetID)
	if err != nil {
		return nil, err
	}
	var lots []TaxLot
	seen := make(map[uuid.UUID]bool)
	for _, lot := range stored {
		if ctx.deletedLots[lot.ID] {
			continue
		}
		if updated, ok := ctx.lots[lot.ID]; ok {
			lot = updated
		}
		seen[lot.ID] = true
		lots = append(lots, lot)
	}
	for id, lot := range ctx.lots {
		if !seen[id] && ctx.lotAssets[id] == assetID {
			lots = append(lots, lot)
		}
	}
	sort.SliceStable(lots, func(i, j int) bool { return lots[i].AcquiredDate.Before(lots[j].AcquiredDate) })
	var eligible []TaxLot
	for _, lot := range lots {
		if lot.AcquiredDate.After(tx.When) {
			continue
		}
		eligible = append(eligible, lot)
	}
	return eligible, nil
}

// outstanding computes how much of a lot is not yet consumed, disregarding
// every row of excludeEntry (the disposal being recomputed).
func (e *Engine) outstanding(ctx *lotCtx, lot TaxLot, excludeEntry uuid.UUID) (Quantity, error) {
	assigned := Quantity{}
	rows, err := e.store.LotAssignments(lot.ID)
	if err != nil {
		return Quantity{}, err
	}
	for _, row := range rows {
		if ctx.deletedAssignments[row.ID] || ctx.deletedEntries[row.ConsumingEntryID] {
			continue
		}
		if row.ConsumingEntryID == excludeEntry {
			continue
		}
		if _, overridden := ctx.overrides[row.ConsumingEntryID]; overridden {
			continue // counted from the override below
		}
		assigned = assigned.Add(row.Amount)
	}
	for entryID, orows := range ctx.overrides {
		if entryID == excludeEntry {
			continue
		}
		for _, row := range orows {
			if row.TaxLotID == lot.ID {
				assigned = assigned.Add(row.Amount)
			}
		}
	}
	return lot.Quantity.Sub(assigned), nil
}

// reassign rebuilds the assignment rows of a disposal entry: the given
// pinned rows are kept verbatim, the remainder is filled FIFO from eligible
// lots. Existing unpinned row ids are reused where possible, leftovers are
// deleted, and zero-amount rows are pruned rather than persisted.
func (e *Engine) reassign(b *Batch, ctx *lotCtx, tx Transaction, en TransactionEntry, pinned []TaxLotAssignment) error {
	existing, err := e.entryRows(ctx, en.ID)
	if err != nil {
		return err
	}

	need := en.Amount.Abs()
	pinnedByLot := make(map[uuid.UUID]Quantity)
	var desired []TaxLotAssignment
	for _, row := range pinned {
		if row.Amount.IsZero() {
			continue // pruned
		}
		need = need.Sub(row.Amount)
		pinnedByLot[row.TaxLotID] = pinnedByLot[row.TaxLotID].Add(row.Amount)
		desired = append(desired, row)
	}

	if need.IsPositive() {
		lots, err := e.candidateLots(ctx, en.AssetID, tx)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			if !need.IsPositive() {
				break
			}
			out, err := e.outstanding(ctx, lot, en.ID)
			if err != nil {
				return err
			}
			out = out.Sub(pinnedByLot[lot.ID])
			if !out.IsPositive() {
				continue
			}
			take := out.Min(need)
			desired = append(desired, TaxLotAssignment{
				TaxLotID:         lot.ID,
				ConsumingEntryID: en.ID,
				Amount:           take,
			})
			need = need.Sub(take)
		}
	}

	// Reconcile desired rows with existing ones, reusing unpinned ids.
	pinnedIDs := make(map[uuid.UUID]bool, len(pinned))
	for _, row := range pinned {
		pinnedIDs[row.ID] = true
	}
	byID := make(map[uuid.UUID]TaxLotAssignment, len(existing))
	var reusable []TaxLotAssignment
	for _, row := range existing {
		byID[row.ID] = row
		if !pinnedIDs[row.ID] {
			reusable = append(reusable, row)
		}
	}
	used := make(map[uuid.UUID]bool)
	for i := range desired {
		row := &desired[i]
		if IsPersisted(row.ID) {
			// a pinned row; update it when the pin changed it
			used[row.ID] = true
			if prev, ok := byID[row.ID]; ok {
				if !assignmentEqual(prev, *row) {
					b.Update(*row)
				}
			} else {
				b.Insert(*row)
			}
			continue
		}
		if len(reusable) > 0 {
			prev := reusable[0]
			reusable = reusable[1:]
			row.ID = prev.ID
			used[row.ID] = true
			if !assignmentEqual(prev, *row) {
				b.Update(*row)
			}
		} else {
			row.ID = NewID()
			b.Insert(*row)
		}
	}
	for _, row := range existing {
		if !used[row.ID] {
			ctx.deletedAssignments[row.ID] = true
			b.Delete(row)
		}
	}
	ctx.overrides[en.ID] = desired
	return nil
}

func lotEqual(a, b TaxLot) bool {
	return a.ID == b.ID &&
		a.CreatingEntryID == b.CreatingEntryID &&
		a.AcquiredDate == b.AcquiredDate &&
		a.Quantity.Equal(b.Quantity) &&
		a.CostBasis.Equal(b.CostBasis) &&
		a.CostBasisAssetID == b.CostBasisAssetID
}

func assignmentEqual(a, b TaxLotAssignment) bool {
	return a.ID == b.ID &&
		a.TaxLotID == b.TaxLotID &&
		a.ConsumingEntryID == b.ConsumingEntryID &&
		a.Amount.Equal(b.Amount) &&
		a.Pinned == b.Pinned
}

// deleteEntryCascade stages the deletion of one entry together with the lot
// it created and the assignments it owns, recomputing any disposal left
// under-assigned by the cascade.
func (e *Engine) deleteEntryCascade(b *Batch, ctx *lotCtx, en TransactionEntry) error {
	ctx.deletedEntries[en.ID] = true
	b.Delete(en)
	lot, exists, err := e.store.LotByCreatingEntry(en.ID)
	if err != nil {
		return err
	}
	if exists && !ctx.deletedLots[lot.ID] {
		if err := e.deleteLotCascade(b, ctx, lot); err != nil {
			return err
		}
	}
	rows, err := e.store.EntryAssignments(en.ID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if ctx.deletedAssignments[row.ID] {
			continue
		}
		ctx.deletedAssignments[row.ID] = true
		b.Delete(row)
	}
	delete(ctx.overrides, en.ID)
	return nil
}

// --- manual overrides ---

// validatePinned rejects a manual override that could not coexist with the
// ledger: the pinned rows of a disposal must not exceed the disposal's own
// quantity, and no lot may be drawn beyond its outstanding quantity.
func (e *Engine) validatePinned(ctx *lotCtx, en TransactionEntry, pinned []TaxLotAssignment) error {
	total := Quantity{}
	perLot := make(map[uuid.UUID]Quantity)
	for _, row := range pinned {
		total = total.Add(row.Amount)
		perLot[row.TaxLotID] = perLot[row.TaxLotID].Add(row.Amount)
	}
	if total.GreaterThan(en.Amount.Abs()) {
		return invariantf("pinned assignments (%s) exceed the disposal quantity (%s)", total, en.Amount.Abs())
	}
	for lotID, amount := range perLot {
		lot, ok := e.lookupLot(ctx, lotID)
		if !ok {
			return invariantf("assignment points at unknown lot %s", lotID)
		}
		out, err := e.outstanding(ctx, lot, en.ID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(out) {
			return invariantf("pinning %s would overdraw lot %s (outstanding %s)", amount, lotID, out)
		}
	}
	return nil
}

// PinAssignment fixes an assignment at an explicit amount. Pinned rows are
// exempt from automatic recomputation; the unpinned remainder of the same
// disposal is recomputed immediately. Pinning an amount of zero deletes the
// row.
func (e *Engine) PinAssignment(assignmentID uuid.UUID, amount Quantity) error {
	if amount.IsNegative() {
		return invalidf("pinned amount cannot be negative")
	}
	target, err := e.store.Assignment(assignmentID)
	if err != nil {
		return err
	}
	en, err := e.store.Entry(target.ConsumingEntryID)
	if err != nil {
		return err
	}
	tx, err := e.store.Transaction(en.TransactionID)
	if err != nil {
		return err
	}
	rows, err := e.store.EntryAssignments(en.ID)
	if err != nil {
		return err
	}
	var pinned []TaxLotAssignment
	for _, row := range rows {
		if row.ID == assignmentID {
			row.Pinned = true
			row.Amount = amount
			pinned = append(pinned, row)
		} else if row.Pinned {
			pinned = append(pinned, row)
		}
	}
	ctx := newLotCtx()
	if err := e.validatePinned(ctx, en, pinned); err != nil {
		return err
	}
	var b Batch
	if err := e.reassign(&b, ctx, tx, en, pinned); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// SetAssignmentLot redirects an assignment to another lot of the same
// security and pins it there, so the manual choice survives recomputation.
func (e *Engine) SetAssignmentLot(assignmentID, lotID uuid.UUID) error {
	target, err := e.store.Assignment(assignmentID)
	if err != nil {
		return err
	}
	en, err := e.store.Entry(target.ConsumingEntryID)
	if err != nil {
		return err
	}
	tx, err := e.store.Transaction(en.TransactionID)
	if err != nil {
		return err
	}
	lot, err := e.store.TaxLot(lotID)
	if err != nil {
		return err
	}
	creator, err := e.store.Entry(lot.CreatingEntryID)
	if err != nil {
		return err
	}
	if creator.AssetID != en.AssetID {
		return invalidf("lot %s holds a different security", lotID)
	}
	if lot.AcquiredDate.After(tx.When) {
		return invalidf("lot %s was acquired after the disposal", lotID)
	}
	rows, err := e.store.EntryAssignments(en.ID)
	if err != nil {
		return err
	}
	var pinned []TaxLotAssignment
	for _, row := range rows {
		if row.ID == assignmentID {
			row.TaxLotID = lotID
			row.Pinned = true
			pinned = append(pinned, row)
		} else if row.Pinned {
			pinned = append(pinned, row)
		}
	}
	ctx := newLotCtx()
	if err := e.validatePinned(ctx, en, pinned); err != nil {
		return err
	}
	var b Batch
	if err := e.reassign(&b, ctx, tx, en, pinned); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// UnpinAssignment returns a pinned row to automatic control and recomputes
// the disposal's assignments.
func (e *Engine) UnpinAssignment(assignmentID uuid.UUID) error {
	target, err := e.store.Assignment(assignmentID)
	if err != nil {
		return err
	}
	en, err := e.store.Entry(target.ConsumingEntryID)
	if err != nil {
		return err
	}
	tx, err := e.store.Transaction(en.TransactionID)
	if err != nil {
		return err
	}
	rows, err := e.store.EntryAssignments(en.ID)
	if err != nil {
		return err
	}
	var pinned []TaxLotAssignment
	for _, row := range rows {
		if row.Pinned && row.ID != assignmentID {
			pinned = append(pinned, row)
		}
	}
	// The target row is absent from the pinned list, so reassign treats it
	// as reusable and folds it into the recomputed remainder.
	var b Batch
	if err := e.reassign(&b, newLotCtx(), tx, en, pinned); err != nil {
		return err
	}
	return e.store.Apply(&b)
}

// LotOutstanding returns the unconsumed quantity of a lot.
func (e *Engine) LotOutstanding(lotID uuid.UUID) (Quantity, error) {
	lot, err := e.store.TaxLot(lotID)
	if err != nil {
		return Quantity{}, err
	}
	rows, err := e.store.LotAssignments(lotID)
	if err != nil {
		return Quantity{}, err
	}
	out := lot.Quantity
	for _, row := range rows {
		out = out.Sub(row.Amount)
	}
	return out, nil
}

// AssignmentGainLoss derives the realized gain or loss of one assignment:
// (disposal unit price - lot unit cost) x assigned quantity, in the lot's
// cost basis asset. The value is never persisted.
func (e *Engine) AssignmentGainLoss(assignmentID uuid.UUID) (Quantity, error) {
	row, err := e.store.Assignment(assignmentID)
	if err != nil {
		return Quantity{}, err
	}
	lot, err := e.store.TaxLot(row.TaxLotID)
	if err != nil {
		return Quantity{}, err
	}
	en, err := e.store.Entry(row.ConsumingEntryID)
	if err != nil {
		return Quantity{}, err
	}
	siblings, err := e.store.Entries(en.TransactionID)
	if err != nil {
		return Quantity{}, err
	}
	// the disposal's proceeds leg, when it has one
	var proceeds Quantity
	for _, other := range siblings {
		if other.ID == en.ID {
			continue
		}
		if other.AssetID == lot.CostBasisAssetID && other.Amount.IsPositive() {
			proceeds = proceeds.Add(other.Amount)
		}
	}
	var unitPrice Quantity
	if qty := en.Amount.Abs(); !qty.IsZero() {
		unitPrice = proceeds.Div(qty)
	}
	return unitPrice.Sub(lot.UnitCost()).Mul(row.Amount), nil
}
