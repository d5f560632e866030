package moneyman

import (
	"fmt"

	"github.com/aarnott/moneyman/date"
	"github.com/google/uuid"
)

// configID is the id of the singleton ledger configuration row.
var configID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Interactor supplies user decisions back to the engine. The engine never
// blocks on UI; the presentation layer implements this contract.
type Interactor interface {
	// ConfirmDiscardSplit is consulted before an edit discards the category
	// data of more than one split line at once. Returning false aborts the
	// edit with no mutation.
	ConfirmDiscardSplit(tx Transaction, lines int) bool
}

// InteractorFunc adapts a function to the Interactor interface.
type InteractorFunc func(tx Transaction, lines int) bool

func (f InteractorFunc) ConfirmDiscardSplit(tx Transaction, lines int) bool { return f(tx, lines) }

// Engine is the ledger engine: it turns user-level edits into consistent
// entry sets, maintains tax lots, and keeps mirrored transfer legs in sync.
// All multi-row mutations go through a single atomic Batch against the
// store. The engine holds no state of its own besides its collaborators;
// readers always re-fetch by id.
type Engine struct {
	store    Store
	interact Interactor
}

// Option configures an Engine.
type Option func(*Engine)

// WithInteractor sets the user-decision callback. Without it, prompts are
// suppressed and destructive confirmations default to proceeding.
func WithInteractor(i Interactor) Option {
	return func(e *Engine) { e.interact = i }
}

// NewEngine creates a ledger engine over the given store.
func NewEngine(store Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, invalidf("nil store")
	}
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Store exposes the engine's store for read-only collaborators
// (calculators, integrity checker, views).
func (e *Engine) Store() Store { return e.store }

// --- lookups with argument validation ---

func (e *Engine) requireAsset(id uuid.UUID) (Asset, error) {
	if !IsPersisted(id) {
		return Asset{}, invalidf("asset reference has no id")
	}
	a, err := e.store.Asset(id)
	if err != nil {
		return Asset{}, fmt.Errorf("asset %s: %w", id, err)
	}
	return a, nil
}

func (e *Engine) requireAccount(id uuid.UUID) (Account, error) {
	if !IsPersisted(id) {
		return Account{}, invalidf("account reference has no id")
	}
	a, err := e.store.Account(id)
	if err != nil {
		return Account{}, fmt.Errorf("account %s: %w", id, err)
	}
	return a, nil
}

// requireOpenAccount is requireAccount plus the closed-account invariant:
// closed accounts keep their history but accept no new activity.
func (e *Engine) requireOpenAccount(id uuid.UUID) (Account, error) {
	a, err := e.requireAccount(id)
	if err != nil {
		return Account{}, err
	}
	if a.IsClosed {
		return Account{}, invariantf("account %q is closed", a.Name)
	}
	return a, nil
}

func (e *Engine) requireTransaction(id uuid.UUID) (Transaction, error) {
	if !IsPersisted(id) {
		return Transaction{}, invalidf("transaction reference has no id")
	}
	t, err := e.store.Transaction(id)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	return t, nil
}

func (e *Engine) requireEntry(id uuid.UUID) (TransactionEntry, error) {
	if !IsPersisted(id) {
		return TransactionEntry{}, invalidf("entry reference has no id")
	}
	en, err := e.store.Entry(id)
	if err != nil {
		return TransactionEntry{}, fmt.Errorf("entry %s: %w", id, err)
	}
	return en, nil
}

// --- asset catalog ---

// AssetSpec describes a new asset.
type AssetSpec struct {
	Name           string
	Ticker         string
	Kind           AssetKind
	CurrencySymbol string // currency assets only; defaults to the ticker
	DecimalDigits  int    // 0 lets currency assets default from their ISO code
}

// AddAsset creates an asset in the catalog.
func (e *Engine) AddAsset(spec AssetSpec) (Asset, error) {
	if spec.Name == "" {
		return Asset{}, invalidf("asset name is empty")
	}
	if spec.Ticker == "" {
		return Asset{}, invalidf("asset ticker is empty")
	}
	a := Asset{
		ID:             NewID(),
		Name:           spec.Name,
		Ticker:         spec.Ticker,
		Kind:           spec.Kind,
		CurrencySymbol: spec.CurrencySymbol,
		DecimalDigits:  spec.DecimalDigits,
	}
	if a.Kind == Currency {
		if a.CurrencySymbol == "" {
			a.CurrencySymbol = a.Ticker
		}
		if a.DecimalDigits == 0 {
			a.DecimalDigits = CurrencyFraction(a.Ticker)
		}
	}
	if err := e.store.Insert(a); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// SetAssetKind changes an asset's kind. The kind is immutable while any
// account uses the asset as its currency.
func (e *Engine) SetAssetKind(assetID uuid.UUID, kind AssetKind) (Asset, error) {
	a, err := e.requireAsset(assetID)
	if err != nil {
		return Asset{}, err
	}
	if a.Kind == kind {
		return a, nil
	}
	accounts, err := e.store.Accounts()
	if err != nil {
		return Asset{}, err
	}
	for _, acc := range accounts {
		if acc.CurrencyAssetID == assetID {
			return Asset{}, invariantf("cannot change kind of asset %q: account %q uses it as its currency", a.Name, acc.Name)
		}
	}
	a.Kind = kind
	if err := e.store.Update(a); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// SetPreferredCurrency records the ledger's preferred currency, used as the
// target of all net worth conversions.
func (e *Engine) SetPreferredCurrency(assetID uuid.UUID) error {
	a, err := e.requireAsset(assetID)
	if err != nil {
		return err
	}
	if a.Kind != Currency {
		return invalidf("preferred asset %q is not a currency", a.Name)
	}
	return e.store.InsertOrReplace(LedgerConfig{ID: configID, PreferredCurrencyAssetID: assetID})
}

// PricePoint is one imported price observation.
type PricePoint struct {
	AssetID          uuid.UUID
	ReferenceAssetID uuid.UUID
	When             date.Date
	Price            Quantity
}

// SetPrice records the value of one unit of an asset in a reference asset on
// a given day, replacing any existing point for that day and pair.
func (e *Engine) SetPrice(assetID, referenceAssetID uuid.UUID, on date.Date, price Quantity) error {
	return e.ImportPrices([]PricePoint{{AssetID: assetID, ReferenceAssetID: referenceAssetID, When: on, Price: price}})
}

// ImportPrices batch-records price observations as one atomic mutation.
// A later point for the same pair and day replaces the earlier one, whether
// the earlier one is already stored or part of the same call.
func (e *Engine) ImportPrices(points []PricePoint) error {
	type pairDay struct {
		asset, reference uuid.UUID
		when             date.Date
	}
	staged := make(map[pairDay]uuid.UUID)
	var b Batch
	for _, p := range points {
		if _, err := e.requireAsset(p.AssetID); err != nil {
			return err
		}
		if _, err := e.requireAsset(p.ReferenceAssetID); err != nil {
			return err
		}
		if p.When.IsZero() {
			return invalidf("price point has no date")
		}
		row := AssetPrice{ID: NewID(), AssetID: p.AssetID, ReferenceAssetID: p.ReferenceAssetID, When: p.When, Price: p.Price}
		key := pairDay{asset: p.AssetID, reference: p.ReferenceAssetID, when: p.When}
		if id, ok := staged[key]; ok {
			row.ID = id
		} else {
			// replace an existing observation of the same pair and day
			existing, err := e.store.Prices(p.AssetID)
			if err != nil {
				return err
			}
			for _, old := range existing {
				if old.ReferenceAssetID == p.ReferenceAssetID && old.When == p.When {
					row.ID = old.ID
					break
				}
			}
		}
		staged[key] = row.ID
		b.InsertOrReplace(row)
	}
	return e.store.Apply(&b)
}

// --- accounts ---

// AddAccount creates a banking or investing account denominated in the
// given currency asset.
func (e *Engine) AddAccount(name string, kind AccountKind, currencyAssetID uuid.UUID) (Account, error) {
	if name == "" {
		return Account{}, invalidf("account name is empty")
	}
	if kind == Category {
		return e.AddCategory(name)
	}
	cur, err := e.requireAsset(currencyAssetID)
	if err != nil {
		return Account{}, err
	}
	if cur.Kind != Currency {
		return Account{}, invalidf("asset %q is not a currency", cur.Name)
	}
	a := Account{ID: NewID(), Name: name, Kind: kind, CurrencyAssetID: currencyAssetID}
	if err := e.store.Insert(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// AddCategory creates a category pseudo-account.
func (e *Engine) AddCategory(name string) (Account, error) {
	if name == "" {
		return Account{}, invalidf("category name is empty")
	}
	a := Account{ID: NewID(), Name: name, Kind: Category}
	if err := e.store.Insert(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// CloseAccount marks an account closed. Its history remains, but the engine
// rejects any new transaction touching it.
func (e *Engine) CloseAccount(id uuid.UUID) (Account, error) {
	a, err := e.requireAccount(id)
	if err != nil {
		return Account{}, err
	}
	if a.IsClosed {
		return a, nil
	}
	a.IsClosed = true
	if err := e.store.Update(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// --- recording user-level operations ---

// Details carries the optional header fields of a new transaction.
type Details struct {
	Payee       string
	Memo        string
	CheckNumber string
}

func newHeader(on date.Date, action Action, det Details) Transaction {
	return Transaction{
		ID:          NewID(),
		When:        on,
		Payee:       det.Payee,
		Memo:        det.Memo,
		CheckNumber: det.CheckNumber,
		Action:      action,
	}
}

func newEntry(tx Transaction, ordinal int, accountID, assetID uuid.UUID, amount Quantity) TransactionEntry {
	return TransactionEntry{
		ID:            NewID(),
		TransactionID: tx.ID,
		AccountID:     accountID,
		AssetID:       assetID,
		Amount:        amount,
		Ordinal:       ordinal,
	}
}

// record validates nothing by itself: it assembles the insert batch for a
// header and its entries, runs lot maintenance, and applies atomically.
func (e *Engine) record(tx Transaction, entries []TransactionEntry) (Transaction, error) {
	if len(entries) == 0 {
		return Transaction{}, invalidf("transaction needs at least one entry")
	}
	var b Batch
	b.Insert(tx)
	for _, en := range entries {
		b.Insert(en)
	}
	if err := e.syncLots(&b, tx, entries, newLotCtx()); err != nil {
		return Transaction{}, err
	}
	if err := e.store.Apply(&b); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// categoryLeg appends the balancing category entry when a target is set.
func (e *Engine) categoryLeg(tx Transaction, entries []TransactionEntry, target TransferTarget, assetID uuid.UUID, amount Quantity) ([]TransactionEntry, error) {
	switch target.Kind {
	case TargetNone:
		return entries, nil
	case TargetSplit:
		return nil, invalidf("cannot assign the split placeholder directly")
	}
	acc, err := e.requireOpenAccount(target.AccountID)
	if err != nil {
		return nil, err
	}
	if target.Kind == TargetCategory && acc.Kind != Category {
		return nil, invalidf("account %q is not a category", acc.Name)
	}
	if target.Kind == TargetAccount && acc.Kind == Category {
		return nil, invalidf("account %q is a category, not a transfer destination", acc.Name)
	}
	entries = append(entries, newEntry(tx, len(entries), acc.ID, assetID, amount.Neg()))
	return entries, nil
}

// RecordDeposit records money entering an account from outside the tracked
// universe, optionally assigned to a category or mirrored to another account.
func (e *Engine) RecordDeposit(accountID uuid.UUID, on date.Date, amount Quantity, target TransferTarget, det Details) (Transaction, error) {
	acc, err := e.requireOpenAccount(accountID)
	if err != nil {
		return Transaction{}, err
	}
	if !amount.IsPositive() {
		return Transaction{}, invalidf("deposit amount must be positive")
	}
	tx := newHeader(on, Deposit, det)
	entries := []TransactionEntry{newEntry(tx, 0, acc.ID, acc.CurrencyAssetID, amount)}
	entries, err = e.categoryLeg(tx, entries, target, acc.CurrencyAssetID, amount)
	if err != nil {
		return Transaction{}, err
	}
	return e.record(tx, entries)
}

// RecordWithdrawal records money leaving an account.
func (e *Engine) RecordWithdrawal(accountID uuid.UUID, on date.Date, amount Quantity, target TransferTarget, det Details) (Transaction, error) {
	acc, err := e.requireOpenAccount(accountID)
	if err != nil {
		return Transaction{}, err
	}
	if !amount.IsPositive() {
		return Transaction{}, invalidf("withdrawal amount must be positive")
	}
	tx := newHeader(on, Withdraw, det)
	entries := []TransactionEntry{newEntry(tx, 0, acc.ID, acc.CurrencyAssetID, amount.Neg())}
	entries, err = e.categoryLeg(tx, entries, target, acc.CurrencyAssetID, amount.Neg())
	if err != nil {
		return Transaction{}, err
	}
	return e.record(tx, entries)
}

// RecordTransfer moves an amount between two accounts sharing a currency.
// The from side owns the transaction; the to side sees a synthesized view.
func (e *Engine) RecordTransfer(fromAccountID, toAccountID uuid.UUID, on date.Date, amount Quantity, det Details) (Transaction, error) {
	from, err := e.requireOpenAccount(fromAccountID)
	if err != nil {
		return Transaction{}, err
	}
	to, err := e.requireOpenAccount(toAccountID)
	if err != nil {
		return Transaction{}, err
	}
	if from.ID == to.ID {
		return Transaction{}, invalidf("transfer source and destination are the same account")
	}
	if from.Kind == Category || to.Kind == Category {
		return Transaction{}, invalidf("transfers cannot target categories")
	}
	if from.CurrencyAssetID != to.CurrencyAssetID {
		return Transaction{}, invalidf("accounts %q and %q use different currencies", from.Name, to.Name)
	}
	if !amount.IsPositive() {
		return Transaction{}, invalidf("transfer amount must be positive")
	}
	tx := newHeader(on, Transfer, det)
	entries := []TransactionEntry{
		newEntry(tx, 0, from.ID, from.CurrencyAssetID, amount.Neg()),
		newEntry(tx, 1, to.ID, to.CurrencyAssetID, amount),
	}
	return e.record(tx, entries)
}

// requireSecurityHolding validates the account/security pair of an
// investment operation.
func (e *Engine) requireSecurityHolding(accountID, securityID uuid.UUID) (Account, Asset, error) {
	acc, err := e.requireOpenAccount(accountID)
	if err != nil {
		return Account{}, Asset{}, err
	}
	if acc.Kind != Investing {
		return Account{}, Asset{}, invalidf("account %q is not an investing account", acc.Name)
	}
	sec, err := e.requireAsset(securityID)
	if err != nil {
		return Account{}, Asset{}, err
	}
	if sec.Kind != Security {
		return Account{}, Asset{}, invalidf("asset %q is not a security", sec.Name)
	}
	return acc, sec, nil
}

// RecordBuy purchases a quantity of a security for a total cost in the
// account currency. The buy creates one tax lot.
func (e *Engine) RecordBuy(accountID uuid.UUID, on date.Date, securityID uuid.UUID, quantity, cost Quantity, det Details) (Transaction, error) {
	acc, _, err := e.requireSecurityHolding(accountID, securityID)
	if err != nil {
		return Transaction{}, err
	}
	if !quantity.IsPositive() {
		return Transaction{}, invalidf("buy quantity must be positive")
	}
	if cost.IsNegative() {
		return Transaction{}, invalidf("buy cost cannot be negative")
	}
	tx := newHeader(on, Buy, det)
	tx.RelatedAssetID = securityID
	entries := []TransactionEntry{
		newEntry(tx, 0, acc.ID, securityID, quantity),
		newEntry(tx, 1, acc.ID, acc.CurrencyAssetID, cost.Neg()),
	}
	return e.record(tx, entries)
}

// RecordSell disposes of a quantity of a security for total proceeds in the
// account currency. Tax lots are consumed FIFO unless pinned later.
func (e *Engine) RecordSell(accountID uuid.UUID, on date.Date, securityID uuid.UUID, quantity, proceeds Quantity, det Details) (Transaction, error) {
	acc, _, err := e.requireSecurityHolding(accountID, securityID)
	if err != nil {
		return Transaction{}, err
	}
	if !quantity.IsPositive() {
		return Transaction{}, invalidf("sell quantity must be positive")
	}
	if proceeds.IsNegative() {
		return Transaction{}, invalidf("sell proceeds cannot be negative")
	}
	tx := newHeader(on, Sell, det)
	tx.RelatedAssetID = securityID
	entries := []TransactionEntry{
		newEntry(tx, 0, acc.ID, securityID, quantity.Neg()),
		newEntry(tx, 1, acc.ID, acc.CurrencyAssetID, proceeds),
	}
	return e.record(tx, entries)
}

// AddOptions are the acquisition overrides of RecordAdd, used to model
// assets held before tracking began.
type AddOptions struct {
	AcquisitionDate  date.Date // lot acquisition date; zero means the transaction date
	AcquisitionPrice Quantity  // cost per unit in the account currency; zero means no basis
}

// RecordAdd introduces securities into an account with no currency leg.
func (e *Engine) RecordAdd(accountID uuid.UUID, on date.Date, securityID uuid.UUID, quantity Quantity, opts AddOptions, det Details) (Transaction, error) {
	acc, _, err := e.requireSecurityHolding(accountID, securityID)
	if err != nil {
		return Transaction{}, err
	}
	if !quantity.IsPositive() {
		return Transaction{}, invalidf("add quantity must be positive")
	}
	tx := newHeader(on, Add, det)
	tx.RelatedAssetID = securityID
	en := newEntry(tx, 0, acc.ID, securityID, quantity)
	en.AcquisitionDate = opts.AcquisitionDate
	en.AcquisitionPrice = opts.AcquisitionPrice
	return e.record(tx, []TransactionEntry{en})
}

// RecordRemove takes securities out of an account with no currency leg,
// consuming tax lots like a disposal.
func (e *Engine) RecordRemove(accountID uuid.UUID, on date.Date, securityID uuid.UUID, quantity Quantity, det Details) (Transaction, error) {
	acc, _, err := e.requireSecurityHolding(accountID, securityID)
	if err != nil {
		return Transaction{}, err
	}
	if !quantity.IsPositive() {
		return Transaction{}, invalidf("remove quantity must be positive")
	}
	tx := newHeader(on, Remove, det)
	tx.RelatedAssetID = securityID
	return e.record(tx, []TransactionEntry{newEntry(tx, 0, acc.ID, securityID, quantity.Neg())})
}

// RecordDividend records a cash dividend related to a security.
func (e *Engine) RecordDividend(accountID uuid.UUID, on date.Date, securityID uuid.UUID, amount Quantity, det Details) (Transaction, error) {
	acc, _, err := e.requireSecurityHolding(accountID, securityID)
	if err != nil {
		return Transaction{}, err
	}
	if !amount.IsPositive() {
		return Transaction{}, invalidf("dividend amount must be positive")
	}
	tx := newHeader(on, Dividend, det)
	tx.RelatedAssetID = securityID
	return e.record(tx, []TransactionEntry{newEntry(tx, 0, acc.ID, acc.CurrencyAssetID, amount)})
}

// RecordInterest records interest earned by an account.
func (e *Engine) RecordInterest(accountID uuid.UUID, on date.Date, amount Quantity, det Details) (Transaction, error) {
	acc, err := e.requireOpenAccount(accountID)
	if err != nil {
		return Transaction{}, err
	}
	if !amount.IsPositive() {
		return Transaction{}, invalidf("interest amount must be positive")
	}
	tx := newHeader(on, Interest, det)
	return e.record(tx, []TransactionEntry{newEntry(tx, 0, acc.ID, acc.CurrencyAssetID, amount)})
}

// RecordExchange converts one security holding into another within the same
// account. The withdraw leg consumes tax lots; the acquired leg starts a new
// lot carrying over the consumed cost basis.
func (e *Engine) RecordExchange(accountID uuid.UUID, on date.Date, fromAssetID uuid.UUID, fromQuantity Quantity, toAssetID uuid.UUID, toQuantity Quantity, det Details) (Transaction, error) {
	acc, _, err := e.requireSecurityHolding(accountID, fromAssetID)
	if err != nil {
		return Transaction{}, err
	}
	if _, _, err := e.requireSecurityHolding(accountID, toAssetID); err != nil {
		return Transaction{}, err
	}
	if fromAssetID == toAssetID {
		return Transaction{}, invalidf("exchange source and destination are the same asset")
	}
	if !fromQuantity.IsPositive() || !toQuantity.IsPositive() {
		return Transaction{}, invalidf("exchange quantities must be positive")
	}
	tx := newHeader(on, Exchange, det)
	tx.RelatedAssetID = toAssetID
	entries := []TransactionEntry{
		newEntry(tx, 0, acc.ID, fromAssetID, fromQuantity.Neg()),
		newEntry(tx, 1, acc.ID, toAssetID, toQuantity),
	}
	return e.record(tx, entries)
}

// SubmitTransaction is the import-adapter write path: a fully formed
// header-and-entries graph goes through the same validation, lot
// maintenance, and atomic apply as interactive edits.
func (e *Engine) SubmitTransaction(tx Transaction, entries []TransactionEntry) (Transaction, error) {
	if tx.When.IsZero() {
		return Transaction{}, invalidf("transaction has no date")
	}
	if len(entries) == 0 {
		return Transaction{}, invalidf("transaction needs at least one entry")
	}
	if !IsPersisted(tx.ID) {
		tx.ID = NewID()
	}
	for i := range entries {
		if !IsPersisted(entries[i].ID) {
			entries[i].ID = NewID()
		}
		entries[i].TransactionID = tx.ID
		entries[i].Ordinal = i
		if _, err := e.requireOpenAccount(entries[i].AccountID); err != nil {
			return Transaction{}, err
		}
		if _, err := e.requireAsset(entries[i].AssetID); err != nil {
			return Transaction{}, err
		}
	}
	return e.record(tx, entries)
}
