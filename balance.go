package moneyman

import (
	"sort"

	"github.com/aarnott/moneyman/date"
	"github.com/google/uuid"
)

// Balances returns the current holdings of an account, one quantity per
// asset. Balances are never stored; they are summed from entries on demand.
func (e *Engine) Balances(accountID uuid.UUID) (map[uuid.UUID]Quantity, error) {
	return e.BalancesAsOf(accountID, date.Date{})
}

// BalancesAsOf sums the account's entries dated at or before the given
// date. A zero date means no cutoff.
func (e *Engine) BalancesAsOf(accountID uuid.UUID, on date.Date) (map[uuid.UUID]Quantity, error) {
	if _, err := e.store.Account(accountID); err != nil {
		return nil, err
	}
	rows, err := e.store.AccountEntries(accountID)
	if err != nil {
		return nil, err
	}
	dates := make(map[uuid.UUID]date.Date)
	balances := make(map[uuid.UUID]Quantity)
	for _, en := range rows {
		when, ok := dates[en.TransactionID]
		if !ok {
			tx, err := e.store.Transaction(en.TransactionID)
			if err != nil {
				return nil, err
			}
			when = tx.When
			dates[en.TransactionID] = when
		}
		if !on.IsZero() && when.After(on) {
			continue
		}
		balances[en.AssetID] = balances[en.AssetID].Add(en.Amount)
	}
	return balances, nil
}

// priceHistory builds the price series of one asset pair from stored
// price points.
func (e *Engine) priceHistory(assetID, referenceID uuid.UUID) (*date.History[Quantity], error) {
	rows, err := e.store.Prices(assetID)
	if err != nil {
		return nil, err
	}
	h := &date.History[Quantity]{}
	for _, p := range rows {
		if p.ReferenceAssetID == referenceID {
			h.Append(p.When, p.Price)
		}
	}
	return h, nil
}

// priceAsOf resolves asset -> reference at the latest point at or before a
// date, directly or via one intermediate asset's series. The second return
// is false when no conversion path exists.
func (e *Engine) priceAsOf(assetID, referenceID uuid.UUID, on date.Date) (Quantity, bool, error) {
	if assetID == referenceID {
		return Q(1), true, nil
	}
	lookup := func(h *date.History[Quantity]) (Quantity, bool) {
		if on.IsZero() {
			_, v, ok := h.Latest()
			return v, ok
		}
		return h.ValueAsOf(on)
	}
	direct, err := e.priceHistory(assetID, referenceID)
	if err != nil {
		return Quantity{}, false, err
	}
	if p, ok := lookup(direct); ok {
		return p, true, nil
	}
	// one hop: asset -> quote, quote -> reference
	rows, err := e.store.Prices(assetID)
	if err != nil {
		return Quantity{}, false, err
	}
	seen := make(map[uuid.UUID]bool)
	var hops []uuid.UUID
	for _, p := range rows {
		if !seen[p.ReferenceAssetID] {
			seen[p.ReferenceAssetID] = true
			hops = append(hops, p.ReferenceAssetID)
		}
	}
	for _, quote := range hops {
		if quote == referenceID {
			continue
		}
		first, err := e.priceHistory(assetID, quote)
		if err != nil {
			return Quantity{}, false, err
		}
		p1, ok := lookup(first)
		if !ok {
			continue
		}
		second, err := e.priceHistory(quote, referenceID)
		if err != nil {
			return Quantity{}, false, err
		}
		p2, ok := lookup(second)
		if !ok {
			continue
		}
		return p1.Mul(p2), true, nil
	}
	return Quantity{}, false, nil
}

// Value converts a quantity of an asset into the preferred currency at a
// date. Assets with no conversion path value at zero rather than failing,
// so a net worth over a sparse price table stays computable.
func (e *Engine) Value(assetID uuid.UUID, quantity Quantity, on date.Date) (Money, error) {
	cfg, err := e.store.Config()
	if err != nil {
		return Money{}, err
	}
	preferred, err := e.store.Asset(cfg.PreferredCurrencyAssetID)
	if err != nil {
		return Money{}, err
	}
	price, ok, err := e.priceAsOf(assetID, preferred.ID, on)
	if err != nil {
		return Money{}, err
	}
	if !ok {
		return MQ(Q(0), preferred.Ticker), nil
	}
	return MQ(quantity.Mul(price), preferred.Ticker), nil
}

// NetWorthOptions tunes the net worth computation.
type NetWorthOptions struct {
	// AsOf values the ledger at this date. Zero means today, with no
	// transaction cutoff.
	AsOf date.Date
	// IncludeClosedAccounts folds closed accounts back in. Their residual
	// balances are normally excluded.
	IncludeClosedAccounts bool
}

// AccountValue is one account's contribution to net worth.
type AccountValue struct {
	Account Account
	Value   Money
}

// NetWorth values every non-category account in the preferred currency and
// sums the result. Securities are valued at their latest price at or
// before the as-of date.
func (e *Engine) NetWorth(opts NetWorthOptions) (Money, []AccountValue, error) {
	cfg, err := e.store.Config()
	if err != nil {
		return Money{}, nil, err
	}
	preferred, err := e.store.Asset(cfg.PreferredCurrencyAssetID)
	if err != nil {
		return Money{}, nil, err
	}
	accounts, err := e.store.Accounts()
	if err != nil {
		return Money{}, nil, err
	}
	total := MQ(Q(0), preferred.Ticker)
	var values []AccountValue
	for _, acc := range accounts {
		if acc.Kind == Category {
			continue
		}
		if acc.IsClosed && !opts.IncludeClosedAccounts {
			continue
		}
		balances, err := e.BalancesAsOf(acc.ID, opts.AsOf)
		if err != nil {
			return Money{}, nil, err
		}
		value := MQ(Q(0), preferred.Ticker)
		assetIDs := make([]uuid.UUID, 0, len(balances))
		for assetID := range balances {
			assetIDs = append(assetIDs, assetID)
		}
		sort.Slice(assetIDs, func(i, j int) bool { return assetIDs[i].String() < assetIDs[j].String() })
		for _, assetID := range assetIDs {
			v, err := e.Value(assetID, balances[assetID], opts.AsOf)
			if err != nil {
				return Money{}, nil, err
			}
			value = value.Add(v)
		}
		values = append(values, AccountValue{Account: acc, Value: value})
		total = total.Add(value)
	}
	return total, values, nil
}
