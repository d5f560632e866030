package moneyman

import (
	"github.com/google/uuid"
)

// Op is the kind of a single mutation inside a Batch.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpInsertOrReplace
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpInsertOrReplace:
		return "insert-or-replace"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mutation is one row operation of an atomic batch.
type Mutation struct {
	Op     Op
	Entity Entity
}

// Batch is an ordered list of mutations applied as one atomic unit.
// On failure, none of it is applied.
type Batch struct {
	muts []Mutation
}

func (b *Batch) Insert(es ...Entity) {
	for _, e := range es {
		b.muts = append(b.muts, Mutation{Op: OpInsert, Entity: e})
	}
}

func (b *Batch) Update(es ...Entity) {
	for _, e := range es {
		b.muts = append(b.muts, Mutation{Op: OpUpdate, Entity: e})
	}
}

func (b *Batch) InsertOrReplace(es ...Entity) {
	for _, e := range es {
		b.muts = append(b.muts, Mutation{Op: OpInsertOrReplace, Entity: e})
	}
}

func (b *Batch) Delete(es ...Entity) {
	for _, e := range es {
		b.muts = append(b.muts, Mutation{Op: OpDelete, Entity: e})
	}
}

// Empty reports whether the batch holds no mutation.
func (b *Batch) Empty() bool { return len(b.muts) == 0 }

// Mutations returns the ordered mutations of the batch.
func (b *Batch) Mutations() []Mutation { return b.muts }

// Updated carries the before and after images of one updated entity.
type Updated struct {
	Before Entity
	After  Entity
}

// ChangeSet is the net effect of one successful atomic mutation. Observers
// receive exactly one ChangeSet per mutation and therefore always see a
// consistent post-state.
type ChangeSet struct {
	Inserted []Entity
	Updated  []Updated
	Deleted  []Entity
}

// Empty reports whether the change set carries no change.
func (c ChangeSet) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Store is the narrow CRUD/query contract the engine mutates through.
// Implementations must apply a Batch atomically, reject every operation
// after Close with ErrStoreDisposed, and emit one ChangeSet per successful
// mutation. The engine assumes a single writer; stores perform no
// cross-call synchronization beyond their own internal consistency.
type Store interface {
	// Single-row operations. Each successful call emits its own ChangeSet.
	Insert(e Entity) error
	InsertAll(es ...Entity) error
	Update(e Entity) error
	InsertOrReplace(e Entity) error
	Delete(e Entity) error

	// Apply runs all mutations of the batch as one atomic unit and emits a
	// single ChangeSet. A failed apply leaves the store in its
	// pre-operation state.
	Apply(b *Batch) error

	// Getters return ErrNotFound for unknown ids.
	Asset(id uuid.UUID) (Asset, error)
	Account(id uuid.UUID) (Account, error)
	Transaction(id uuid.UUID) (Transaction, error)
	Entry(id uuid.UUID) (TransactionEntry, error)
	TaxLot(id uuid.UUID) (TaxLot, error)
	Assignment(id uuid.UUID) (TaxLotAssignment, error)

	// Collection queries. Result order is deterministic: assets and
	// accounts by name, transactions by date then id, entries by ordinal.
	Assets() ([]Asset, error)
	Accounts() ([]Account, error)
	Transactions() ([]Transaction, error)
	Entries(transactionID uuid.UUID) ([]TransactionEntry, error)
	AccountEntries(accountID uuid.UUID) ([]TransactionEntry, error)
	EntriesByFitID(accountID uuid.UUID, fitID string) ([]TransactionEntry, error)
	AssetLots(assetID uuid.UUID) ([]TaxLot, error)
	LotByCreatingEntry(entryID uuid.UUID) (TaxLot, bool, error)
	EntryAssignments(consumingEntryID uuid.UUID) ([]TaxLotAssignment, error)
	LotAssignments(taxLotID uuid.UUID) ([]TaxLotAssignment, error)
	Assignments() ([]TaxLotAssignment, error)
	Prices(assetID uuid.UUID) ([]AssetPrice, error)
	Config() (LedgerConfig, error)

	// Subscribe registers an observer of committed change sets. The
	// returned function cancels the subscription. On a disposed store
	// nothing is registered and the returned cancel is a no-op.
	Subscribe(fn func(ChangeSet)) (cancel func())

	// Close disposes the store. Every subsequent operation fails with
	// ErrStoreDisposed.
	Close() error
}
