package ledgerstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aarnott/moneyman"
	"github.com/aarnott/moneyman/date"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- column codecs ---

func encodeID(id uuid.UUID) string {
	if !moneyman.IsPersisted(id) {
		return ""
	}
	return id.String()
}

func decodeID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func encodeDate(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func decodeDate(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}

func decodeQuantity(s string) (moneyman.Quantity, error) {
	if s == "" {
		return moneyman.Quantity{}, nil
	}
	return moneyman.ParseQuantity(s)
}

// --- table metadata ---

func tableOf(k moneyman.EntityKind) string {
	switch k {
	case moneyman.KindAsset:
		return "assets"
	case moneyman.KindAssetPrice:
		return "asset_prices"
	case moneyman.KindAccount:
		return "accounts"
	case moneyman.KindTransaction:
		return "transactions"
	case moneyman.KindEntry:
		return "entries"
	case moneyman.KindTaxLot:
		return "tax_lots"
	case moneyman.KindAssignment:
		return "tax_lot_assignments"
	case moneyman.KindConfig:
		return "ledger_config"
	}
	return ""
}

// columnsOf lists the non-id columns of a kind, in the order the per-kind
// codec emits and scans them.
func columnsOf(k moneyman.EntityKind) []string {
	switch k {
	case moneyman.KindAsset:
		return []string{"name", "ticker", "kind", "currency_symbol", "decimal_digits"}
	case moneyman.KindAssetPrice:
		return []string{"asset_id", "reference_asset_id", "day", "price"}
	case moneyman.KindAccount:
		return []string{"name", "kind", "currency_asset_id", "is_closed"}
	case moneyman.KindTransaction:
		return []string{"day", "payee", "memo", "check_number", "action", "related_asset_id"}
	case moneyman.KindEntry:
		return []string{"transaction_id", "account_id", "asset_id", "amount", "cleared", "memo", "ofx_fit_id", "ordinal", "acquisition_date", "acquisition_price"}
	case moneyman.KindTaxLot:
		return []string{"creating_entry_id", "acquired_date", "quantity", "cost_basis", "cost_basis_asset_id"}
	case moneyman.KindAssignment:
		return []string{"tax_lot_id", "consuming_entry_id", "amount", "pinned"}
	case moneyman.KindConfig:
		return []string{"preferred_currency_asset_id"}
	}
	return nil
}

func values(e moneyman.Entity) []any {
	switch v := e.(type) {
	case moneyman.Asset:
		return []any{v.Name, v.Ticker, int(v.Kind), v.CurrencySymbol, v.DecimalDigits}
	case moneyman.AssetPrice:
		return []any{encodeID(v.AssetID), encodeID(v.ReferenceAssetID), encodeDate(v.When), v.Price.String()}
	case moneyman.Account:
		return []any{v.Name, int(v.Kind), encodeID(v.CurrencyAssetID), v.IsClosed}
	case moneyman.Transaction:
		return []any{encodeDate(v.When), v.Payee, v.Memo, v.CheckNumber, int(v.Action), encodeID(v.RelatedAssetID)}
	case moneyman.TransactionEntry:
		return []any{encodeID(v.TransactionID), encodeID(v.AccountID), encodeID(v.AssetID), v.Amount.String(), int(v.Cleared), v.Memo, v.OfxFitID, v.Ordinal, encodeDate(v.AcquisitionDate), v.AcquisitionPrice.String()}
	case moneyman.TaxLot:
		return []any{encodeID(v.CreatingEntryID), encodeDate(v.AcquiredDate), v.Quantity.String(), v.CostBasis.String(), encodeID(v.CostBasisAssetID)}
	case moneyman.TaxLotAssignment:
		return []any{encodeID(v.TaxLotID), encodeID(v.ConsumingEntryID), v.Amount.String(), v.Pinned}
	case moneyman.LedgerConfig:
		return []any{encodeID(v.PreferredCurrencyAssetID)}
	}
	return nil
}

// put inserts or updates one row. Updates keep the rowid, which the
// collection queries use as the insertion-order tie-break.
func put(q querier, e moneyman.Entity, exists bool) error {
	table := tableOf(e.EntityKind())
	cols := columnsOf(e.EntityKind())
	vals := values(e)
	if table == "" || vals == nil {
		return fmt.Errorf("unsupported entity kind %s: %w", e.EntityKind(), moneyman.ErrInvalidArgument)
	}
	if exists {
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = ?"
		}
		vals = append(vals, e.EntityID().String())
		_, err := q.Exec(fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", ")), vals...)
		return err
	}
	holes := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	args := append([]any{e.EntityID().String()}, vals...)
	_, err := q.Exec(fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s)", table, strings.Join(cols, ", "), holes), args...)
	return err
}

// --- scanners ---

func scanAsset(r rowScanner) (moneyman.Asset, error) {
	var v moneyman.Asset
	var id string
	var kind int
	if err := r.Scan(&id, &v.Name, &v.Ticker, &kind, &v.CurrencySymbol, &v.DecimalDigits); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	v.Kind = moneyman.AssetKind(kind)
	return v, nil
}

func scanPrice(r rowScanner) (moneyman.AssetPrice, error) {
	var v moneyman.AssetPrice
	var id, asset, ref, day, price string
	if err := r.Scan(&id, &asset, &ref, &day, &price); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	if v.AssetID, err = decodeID(asset); err != nil {
		return v, err
	}
	if v.ReferenceAssetID, err = decodeID(ref); err != nil {
		return v, err
	}
	if v.When, err = decodeDate(day); err != nil {
		return v, err
	}
	if v.Price, err = decodeQuantity(price); err != nil {
		return v, err
	}
	return v, nil
}

func scanAccount(r rowScanner) (moneyman.Account, error) {
	var v moneyman.Account
	var id, currency string
	var kind int
	if err := r.Scan(&id, &v.Name, &kind, &currency, &v.IsClosed); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	if v.CurrencyAssetID, err = decodeID(currency); err != nil {
		return v, err
	}
	v.Kind = moneyman.AccountKind(kind)
	return v, nil
}

func scanTransaction(r rowScanner) (moneyman.Transaction, error) {
	var v moneyman.Transaction
	var id, day, related string
	var action int
	if err := r.Scan(&id, &day, &v.Payee, &v.Memo, &v.CheckNumber, &action, &related); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	if v.When, err = decodeDate(day); err != nil {
		return v, err
	}
	if v.RelatedAssetID, err = decodeID(related); err != nil {
		return v, err
	}
	v.Action = moneyman.Action(action)
	return v, nil
}

func scanEntry(r rowScanner) (moneyman.TransactionEntry, error) {
	var v moneyman.TransactionEntry
	var id, txID, account, asset, amount, acqDate, acqPrice string
	var cleared int
	if err := r.Scan(&id, &txID, &account, &asset, &amount, &cleared, &v.Memo, &v.OfxFitID, &v.Ordinal, &acqDate, &acqPrice); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	if v.TransactionID, err = decodeID(txID); err != nil {
		return v, err
	}
	if v.AccountID, err = decodeID(account); err != nil {
		return v, err
	}
	if v.AssetID, err = decodeID(asset); err != nil {
		return v, err
	}
	if v.Amount, err = decodeQuantity(amount); err != nil {
		return v, err
	}
	if v.AcquisitionDate, err = decodeDate(acqDate); err != nil {
		return v, err
	}
	if v.AcquisitionPrice, err = decodeQuantity(acqPrice); err != nil {
		return v, err
	}
	v.Cleared = moneyman.Cleared(cleared)
	return v, nil
}

func scanLot(r rowScanner) (moneyman.TaxLot, error) {
	var v moneyman.TaxLot
	var id, creator, acquired, qty, basis, basisAsset string
	if err := r.Scan(&id, &creator, &acquired, &qty, &basis, &basisAsset); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	if v.CreatingEntryID, err = decodeID(creator); err != nil {
		return v, err
	}
	if v.AcquiredDate, err = decodeDate(acquired); err != nil {
		return v, err
	}
	if v.Quantity, err = decodeQuantity(qty); err != nil {
		return v, err
	}
	if v.CostBasis, err = decodeQuantity(basis); err != nil {
		return v, err
	}
	if v.CostBasisAssetID, err = decodeID(basisAsset); err != nil {
		return v, err
	}
	return v, nil
}

func scanAssignment(r rowScanner) (moneyman.TaxLotAssignment, error) {
	var v moneyman.TaxLotAssignment
	var id, lot, entry, amount string
	if err := r.Scan(&id, &lot, &entry, &amount, &v.Pinned); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	if v.TaxLotID, err = decodeID(lot); err != nil {
		return v, err
	}
	if v.ConsumingEntryID, err = decodeID(entry); err != nil {
		return v, err
	}
	if v.Amount, err = decodeQuantity(amount); err != nil {
		return v, err
	}
	return v, nil
}

func scanConfig(r rowScanner) (moneyman.LedgerConfig, error) {
	var v moneyman.LedgerConfig
	var id, preferred string
	if err := r.Scan(&id, &preferred); err != nil {
		return v, err
	}
	var err error
	if v.ID, err = decodeID(id); err != nil {
		return v, err
	}
	if v.PreferredCurrencyAssetID, err = decodeID(preferred); err != nil {
		return v, err
	}
	return v, nil
}

// fetch reads one row of a kind by id, as a moneyman entity.
func fetch(q querier, k moneyman.EntityKind, id uuid.UUID) (moneyman.Entity, bool, error) {
	table := tableOf(k)
	row := q.QueryRow(fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ?", strings.Join(columnsOf(k), ", "), table), id.String())
	var e moneyman.Entity
	var err error
	switch k {
	case moneyman.KindAsset:
		e, err = scanAsset(row)
	case moneyman.KindAssetPrice:
		e, err = scanPrice(row)
	case moneyman.KindAccount:
		e, err = scanAccount(row)
	case moneyman.KindTransaction:
		e, err = scanTransaction(row)
	case moneyman.KindEntry:
		e, err = scanEntry(row)
	case moneyman.KindTaxLot:
		e, err = scanLot(row)
	case moneyman.KindAssignment:
		e, err = scanAssignment(row)
	case moneyman.KindConfig:
		e, err = scanConfig(row)
	default:
		return nil, false, fmt.Errorf("unsupported entity kind %s: %w", k, moneyman.ErrInvalidArgument)
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// --- getters ---

func (s *SQLiteStore) Asset(id uuid.UUID) (moneyman.Asset, error) {
	if s.disposed {
		return moneyman.Asset{}, moneyman.ErrStoreDisposed
	}
	e, ok, err := fetch(s.db, moneyman.KindAsset, id)
	if err != nil {
		return moneyman.Asset{}, err
	}
	if !ok {
		return moneyman.Asset{}, fmt.Errorf("asset %s: %w", id, moneyman.ErrNotFound)
	}
	return e.(moneyman.Asset), nil
}

func (s *SQLiteStore) Account(id uuid.UUID) (moneyman.Account, error) {
	if s.disposed {
		return moneyman.Account{}, moneyman.ErrStoreDisposed
	}
	e, ok, err := fetch(s.db, moneyman.KindAccount, id)
	if err != nil {
		return moneyman.Account{}, err
	}
	if !ok {
		return moneyman.Account{}, fmt.Errorf("account %s: %w", id, moneyman.ErrNotFound)
	}
	return e.(moneyman.Account), nil
}

func (s *SQLiteStore) Transaction(id uuid.UUID) (moneyman.Transaction, error) {
	if s.disposed {
		return moneyman.Transaction{}, moneyman.ErrStoreDisposed
	}
	e, ok, err := fetch(s.db, moneyman.KindTransaction, id)
	if err != nil {
		return moneyman.Transaction{}, err
	}
	if !ok {
		return moneyman.Transaction{}, fmt.Errorf("transaction %s: %w", id, moneyman.ErrNotFound)
	}
	return e.(moneyman.Transaction), nil
}

func (s *SQLiteStore) Entry(id uuid.UUID) (moneyman.TransactionEntry, error) {
	if s.disposed {
		return moneyman.TransactionEntry{}, moneyman.ErrStoreDisposed
	}
	e, ok, err := fetch(s.db, moneyman.KindEntry, id)
	if err != nil {
		return moneyman.TransactionEntry{}, err
	}
	if !ok {
		return moneyman.TransactionEntry{}, fmt.Errorf("entry %s: %w", id, moneyman.ErrNotFound)
	}
	return e.(moneyman.TransactionEntry), nil
}

func (s *SQLiteStore) TaxLot(id uuid.UUID) (moneyman.TaxLot, error) {
	if s.disposed {
		return moneyman.TaxLot{}, moneyman.ErrStoreDisposed
	}
	e, ok, err := fetch(s.db, moneyman.KindTaxLot, id)
	if err != nil {
		return moneyman.TaxLot{}, err
	}
	if !ok {
		return moneyman.TaxLot{}, fmt.Errorf("tax lot %s: %w", id, moneyman.ErrNotFound)
	}
	return e.(moneyman.TaxLot), nil
}

func (s *SQLiteStore) Assignment(id uuid.UUID) (moneyman.TaxLotAssignment, error) {
	if s.disposed {
		return moneyman.TaxLotAssignment{}, moneyman.ErrStoreDisposed
	}
	e, ok, err := fetch(s.db, moneyman.KindAssignment, id)
	if err != nil {
		return moneyman.TaxLotAssignment{}, err
	}
	if !ok {
		return moneyman.TaxLotAssignment{}, fmt.Errorf("assignment %s: %w", id, moneyman.ErrNotFound)
	}
	return e.(moneyman.TaxLotAssignment), nil
}

// --- collections ---

func collect[T any](s *SQLiteStore, query string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	if s.disposed {
		return nil, moneyman.ErrStoreDisposed
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Assets() ([]moneyman.Asset, error) {
	return collect(s, `SELECT id, name, ticker, kind, currency_symbol, decimal_digits
		FROM assets ORDER BY name`, scanAsset)
}

func (s *SQLiteStore) Accounts() ([]moneyman.Account, error) {
	return collect(s, `SELECT id, name, kind, currency_asset_id, is_closed
		FROM accounts ORDER BY name`, scanAccount)
}

func (s *SQLiteStore) Transactions() ([]moneyman.Transaction, error) {
	return collect(s, `SELECT id, day, payee, memo, check_number, action, related_asset_id
		FROM transactions ORDER BY day, rowid`, scanTransaction)
}

func (s *SQLiteStore) Entries(transactionID uuid.UUID) ([]moneyman.TransactionEntry, error) {
	return collect(s, `SELECT id, transaction_id, account_id, asset_id, amount, cleared, memo, ofx_fit_id, ordinal, acquisition_date, acquisition_price
		FROM entries WHERE transaction_id = ? ORDER BY ordinal`, scanEntry, transactionID.String())
}

func (s *SQLiteStore) AccountEntries(accountID uuid.UUID) ([]moneyman.TransactionEntry, error) {
	return collect(s, `SELECT e.id, e.transaction_id, e.account_id, e.asset_id, e.amount, e.cleared, e.memo, e.ofx_fit_id, e.ordinal, e.acquisition_date, e.acquisition_price
		FROM entries e JOIN transactions t ON t.id = e.transaction_id
		WHERE e.account_id = ? ORDER BY t.day, t.rowid, e.ordinal`, scanEntry, accountID.String())
}

func (s *SQLiteStore) EntriesByFitID(accountID uuid.UUID, fitID string) ([]moneyman.TransactionEntry, error) {
	if fitID == "" {
		return nil, nil
	}
	return collect(s, `SELECT id, transaction_id, account_id, asset_id, amount, cleared, memo, ofx_fit_id, ordinal, acquisition_date, acquisition_price
		FROM entries WHERE account_id = ? AND ofx_fit_id = ? ORDER BY rowid`, scanEntry, accountID.String(), fitID)
}

func (s *SQLiteStore) AssetLots(assetID uuid.UUID) ([]moneyman.TaxLot, error) {
	return collect(s, `SELECT l.id, l.creating_entry_id, l.acquired_date, l.quantity, l.cost_basis, l.cost_basis_asset_id
		FROM tax_lots l JOIN entries e ON e.id = l.creating_entry_id
		WHERE e.asset_id = ? ORDER BY l.acquired_date, l.rowid`, scanLot, assetID.String())
}

func (s *SQLiteStore) LotByCreatingEntry(entryID uuid.UUID) (moneyman.TaxLot, bool, error) {
	if s.disposed {
		return moneyman.TaxLot{}, false, moneyman.ErrStoreDisposed
	}
	row := s.db.QueryRow(`SELECT id, creating_entry_id, acquired_date, quantity, cost_basis, cost_basis_asset_id
		FROM tax_lots WHERE creating_entry_id = ?`, entryID.String())
	lot, err := scanLot(row)
	if err == sql.ErrNoRows {
		return moneyman.TaxLot{}, false, nil
	}
	if err != nil {
		return moneyman.TaxLot{}, false, err
	}
	return lot, true, nil
}

func (s *SQLiteStore) EntryAssignments(consumingEntryID uuid.UUID) ([]moneyman.TaxLotAssignment, error) {
	return collect(s, `SELECT id, tax_lot_id, consuming_entry_id, amount, pinned
		FROM tax_lot_assignments WHERE consuming_entry_id = ? ORDER BY rowid`, scanAssignment, consumingEntryID.String())
}

func (s *SQLiteStore) LotAssignments(taxLotID uuid.UUID) ([]moneyman.TaxLotAssignment, error) {
	return collect(s, `SELECT id, tax_lot_id, consuming_entry_id, amount, pinned
		FROM tax_lot_assignments WHERE tax_lot_id = ? ORDER BY rowid`, scanAssignment, taxLotID.String())
}

func (s *SQLiteStore) Assignments() ([]moneyman.TaxLotAssignment, error) {
	return collect(s, `SELECT id, tax_lot_id, consuming_entry_id, amount, pinned
		FROM tax_lot_assignments ORDER BY rowid`, scanAssignment)
}

func (s *SQLiteStore) Prices(assetID uuid.UUID) ([]moneyman.AssetPrice, error) {
	return collect(s, `SELECT id, asset_id, reference_asset_id, day, price
		FROM asset_prices WHERE asset_id = ? ORDER BY day, rowid`, scanPrice, assetID.String())
}

func (s *SQLiteStore) Config() (moneyman.LedgerConfig, error) {
	if s.disposed {
		return moneyman.LedgerConfig{}, moneyman.ErrStoreDisposed
	}
	row := s.db.QueryRow(`SELECT id, preferred_currency_asset_id FROM ledger_config LIMIT 1`)
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return moneyman.LedgerConfig{}, fmt.Errorf("ledger config: %w", moneyman.ErrNotFound)
	}
	if err != nil {
		return moneyman.LedgerConfig{}, err
	}
	return cfg, nil
}
