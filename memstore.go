package moneyman

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/google/uuid"
)

// MemoryStore is the in-process reference implementation of Store. It backs
// tests and short-lived ledgers; the ledgerstore package provides the
// durable SQLite implementation with the same semantics.
type MemoryStore struct {
	assets       map[uuid.UUID]Asset
	prices       map[uuid.UUID]AssetPrice
	accounts     map[uuid.UUID]Account
	transactions map[uuid.UUID]Transaction
	entries      map[uuid.UUID]TransactionEntry
	lots         map[uuid.UUID]TaxLot
	assignments  map[uuid.UUID]TaxLotAssignment
	configs      map[uuid.UUID]LedgerConfig

	seq     map[uuid.UUID]int // insertion order, used as a deterministic tie-break
	nextSeq int

	subs    map[int]func(ChangeSet)
	nextSub int

	disposed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:       make(map[uuid.UUID]Asset),
		prices:       make(map[uuid.UUID]AssetPrice),
		accounts:     make(map[uuid.UUID]Account),
		transactions: make(map[uuid.UUID]Transaction),
		entries:      make(map[uuid.UUID]TransactionEntry),
		lots:         make(map[uuid.UUID]TaxLot),
		assignments:  make(map[uuid.UUID]TaxLotAssignment),
		configs:      make(map[uuid.UUID]LedgerConfig),
		seq:          make(map[uuid.UUID]int),
		subs:         make(map[int]func(ChangeSet)),
	}
}

// Close disposes the store.
func (s *MemoryStore) Close() error {
	if s.disposed {
		return ErrStoreDisposed
	}
	s.disposed = true
	return nil
}

// Subscribe registers an observer of committed change sets.
func (s *MemoryStore) Subscribe(fn func(ChangeSet)) (cancel func()) {
	if s.disposed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *MemoryStore) notify(cs ChangeSet) {
	if cs.Empty() {
		return
	}
	ids := slices.Sorted(maps.Keys(s.subs))
	for _, id := range ids {
		s.subs[id](cs)
	}
}

// staged is a copy-on-write view of the store used to make Apply atomic:
// mutations run against the copy and the maps are swapped in only when every
// mutation succeeded.
type staged struct {
	store *MemoryStore
	cs    ChangeSet
}

func (s *MemoryStore) stage() *staged {
	cp := *s
	cp.assets = maps.Clone(s.assets)
	cp.prices = maps.Clone(s.prices)
	cp.accounts = maps.Clone(s.accounts)
	cp.transactions = maps.Clone(s.transactions)
	cp.entries = maps.Clone(s.entries)
	cp.lots = maps.Clone(s.lots)
	cp.assignments = maps.Clone(s.assignments)
	cp.configs = maps.Clone(s.configs)
	cp.seq = maps.Clone(s.seq)
	return &staged{store: &cp}
}

func (s *MemoryStore) commit(st *staged) {
	s.assets = st.store.assets
	s.prices = st.store.prices
	s.accounts = st.store.accounts
	s.transactions = st.store.transactions
	s.entries = st.store.entries
	s.lots = st.store.lots
	s.assignments = st.store.assignments
	s.configs = st.store.configs
	s.seq = st.store.seq
	s.nextSeq = st.store.nextSeq
	s.notify(st.cs)
}

func (st *staged) get(e Entity) (Entity, bool) {
	s := st.store
	id := e.EntityID()
	switch e.EntityKind() {
	case KindAsset:
		v, ok := s.assets[id]
		return v, ok
	case KindAssetPrice:
		v, ok := s.prices[id]
		return v, ok
	case KindAccount:
		v, ok := s.accounts[id]
		return v, ok
	case KindTransaction:
		v, ok := s.transactions[id]
		return v, ok
	case KindEntry:
		v, ok := s.entries[id]
		return v, ok
	case KindTaxLot:
		v, ok := s.lots[id]
		return v, ok
	case KindAssignment:
		v, ok := s.assignments[id]
		return v, ok
	case KindConfig:
		v, ok := s.configs[id]
		return v, ok
	}
	return nil, false
}

func (st *staged) put(e Entity) {
	s := st.store
	id := e.EntityID()
	if _, tracked := s.seq[id]; !tracked {
		s.seq[id] = s.nextSeq
		s.nextSeq++
	}
	switch v := e.(type) {
	case Asset:
		s.assets[id] = v
	case AssetPrice:
		s.prices[id] = v
	case Account:
		s.accounts[id] = v
	case Transaction:
		s.transactions[id] = v
	case TransactionEntry:
		s.entries[id] = v
	case TaxLot:
		s.lots[id] = v
	case TaxLotAssignment:
		s.assignments[id] = v
	case LedgerConfig:
		s.configs[id] = v
	}
}

func (st *staged) remove(e Entity) {
	s := st.store
	id := e.EntityID()
	delete(s.seq, id)
	switch e.EntityKind() {
	case KindAsset:
		delete(s.assets, id)
	case KindAssetPrice:
		delete(s.prices, id)
	case KindAccount:
		delete(s.accounts, id)
	case KindTransaction:
		delete(s.transactions, id)
	case KindEntry:
		delete(s.entries, id)
	case KindTaxLot:
		delete(s.lots, id)
	case KindAssignment:
		delete(s.assignments, id)
	case KindConfig:
		delete(s.configs, id)
	}
}

func (st *staged) apply(m Mutation) error {
	e := m.Entity
	if e == nil {
		return invalidf("nil entity in %s mutation", m.Op)
	}
	if !IsPersisted(e.EntityID()) {
		return invalidf("%s %s without id", m.Op, e.EntityKind())
	}
	before, exists := st.get(e)
	switch m.Op {
	case OpInsert:
		if exists {
			return invalidf("insert %s %s: id already exists", e.EntityKind(), e.EntityID())
		}
		st.put(e)
		st.cs.Inserted = append(st.cs.Inserted, e)
	case OpUpdate:
		if !exists {
			return fmt.Errorf("update %s %s: %w", e.EntityKind(), e.EntityID(), ErrNotFound)
		}
		st.put(e)
		st.cs.Updated = append(st.cs.Updated, Updated{Before: before, After: e})
	case OpInsertOrReplace:
		st.put(e)
		if exists {
			st.cs.Updated = append(st.cs.Updated, Updated{Before: before, After: e})
		} else {
			st.cs.Inserted = append(st.cs.Inserted, e)
		}
	case OpDelete:
		if !exists {
			return fmt.Errorf("delete %s %s: %w", e.EntityKind(), e.EntityID(), ErrNotFound)
		}
		st.remove(e)
		st.cs.Deleted = append(st.cs.Deleted, before)
	default:
		return invalidf("unknown mutation op %d", m.Op)
	}
	return nil
}

// Apply runs all mutations of the batch as one atomic unit.
func (s *MemoryStore) Apply(b *Batch) error {
	if s.disposed {
		return ErrStoreDisposed
	}
	if b == nil || b.Empty() {
		return nil
	}
	st := s.stage()
	for _, m := range b.Mutations() {
		if err := st.apply(m); err != nil {
			return err
		}
	}
	s.commit(st)
	return nil
}

func (s *MemoryStore) applyOne(op Op, e Entity) error {
	var b Batch
	b.muts = append(b.muts, Mutation{Op: op, Entity: e})
	return s.Apply(&b)
}

func (s *MemoryStore) Insert(e Entity) error          { return s.applyOne(OpInsert, e) }
func (s *MemoryStore) Update(e Entity) error          { return s.applyOne(OpUpdate, e) }
func (s *MemoryStore) InsertOrReplace(e Entity) error { return s.applyOne(OpInsertOrReplace, e) }
func (s *MemoryStore) Delete(e Entity) error          { return s.applyOne(OpDelete, e) }

func (s *MemoryStore) InsertAll(es ...Entity) error {
	var b Batch
	b.Insert(es...)
	return s.Apply(&b)
}

// --- Getters ---

func (s *MemoryStore) Asset(id uuid.UUID) (Asset, error) {
	if s.disposed {
		return Asset{}, ErrStoreDisposed
	}
	v, ok := s.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Account(id uuid.UUID) (Account, error) {
	if s.disposed {
		return Account{}, ErrStoreDisposed
	}
	v, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Transaction(id uuid.UUID) (Transaction, error) {
	if s.disposed {
		return Transaction{}, ErrStoreDisposed
	}
	v, ok := s.transactions[id]
	if !ok {
		return Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Entry(id uuid.UUID) (TransactionEntry, error) {
	if s.disposed {
		return TransactionEntry{}, ErrStoreDisposed
	}
	v, ok := s.entries[id]
	if !ok {
		return TransactionEntry{}, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) TaxLot(id uuid.UUID) (TaxLot, error) {
	if s.disposed {
		return TaxLot{}, ErrStoreDisposed
	}
	v, ok := s.lots[id]
	if !ok {
		return TaxLot{}, fmt.Errorf("tax lot %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Assignment(id uuid.UUID) (TaxLotAssignment, error) {
	if s.disposed {
		return TaxLotAssignment{}, ErrStoreDisposed
	}
	v, ok := s.assignments[id]
	if !ok {
		return TaxLotAssignment{}, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return v, nil
}

// --- Collections ---

func (s *MemoryStore) Assets() ([]Asset, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	out := slices.Collect(maps.Values(s.assets))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Accounts() ([]Account, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	out := slices.Collect(maps.Values(s.accounts))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Transactions() ([]Transaction, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	out := slices.Collect(maps.Values(s.transactions))
	sort.Slice(out, func(i, j int) bool {
		if out[i].When != out[j].When {
			return out[i].When.Before(out[j].When)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) Entries(transactionID uuid.UUID) ([]TransactionEntry, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	var out []TransactionEntry
	for _, e := range s.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (s *MemoryStore) AccountEntries(accountID uuid.UUID) ([]TransactionEntry, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	var out []TransactionEntry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := s.transactions[out[i].TransactionID], s.transactions[out[j].TransactionID]
		if ti.When != tj.When {
			return ti.When.Before(tj.When)
		}
		if out[i].TransactionID != out[j].TransactionID {
			return s.seq[out[i].TransactionID] < s.seq[out[j].TransactionID]
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out, nil
}

func (s *MemoryStore) EntriesByFitID(accountID uuid.UUID, fitID string) ([]TransactionEntry, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	if fitID == "" {
		return nil, nil
	}
	var out []TransactionEntry
	for _, e := range s.entries {
		if e.AccountID == accountID && e.OfxFitID == fitID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// AssetLots returns the lots of an asset in FIFO order: earliest acquired
// first, insertion order breaking ties.
func (s *MemoryStore) AssetLots(assetID uuid.UUID) ([]TaxLot, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	var out []TaxLot
	for _, l := range s.lots {
		e, ok := s.entries[l.CreatingEntryID]
		if ok && e.AssetID == assetID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcquiredDate != out[j].AcquiredDate {
			return out[i].AcquiredDate.Before(out[j].AcquiredDate)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) LotByCreatingEntry(entryID uuid.UUID) (TaxLot, bool, error) {
	if s.disposed {
		return TaxLot{}, false, ErrStoreDisposed
	}
	for _, l := range s.lots {
		if l.CreatingEntryID == entryID {
			return l, true, nil
		}
	}
	return TaxLot{}, false, nil
}

func (s *MemoryStore) EntryAssignments(consumingEntryID uuid.UUID) ([]TaxLotAssignment, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	var out []TaxLotAssignment
	for _, a := range s.assignments {
		if a.ConsumingEntryID == consumingEntryID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

func (s *MemoryStore) LotAssignments(taxLotID uuid.UUID) ([]TaxLotAssignment, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	var out []TaxLotAssignment
	for _, a := range s.assignments {
		if a.TaxLotID == taxLotID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

func (s *MemoryStore) Assignments() ([]TaxLotAssignment, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	out := slices.Collect(maps.Values(s.assignments))
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// Prices returns the price points of an asset in chronological order.
func (s *MemoryStore) Prices(assetID uuid.UUID) ([]AssetPrice, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	var out []AssetPrice
	for _, p := range s.prices {
		if p.AssetID == assetID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].When != out[j].When {
			return out[i].When.Before(out[j].When)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) Config() (LedgerConfig, error) {
	if s.disposed {
		return LedgerConfig{}, ErrStoreDisposed
	}
	for _, c := range s.configs {
		return c, nil
	}
	return LedgerConfig{}, fmt.Errorf("ledger config: %w", ErrNotFound)
}

var _ Store = (*MemoryStore)(nil)
