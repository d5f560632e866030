package moneyman

import "github.com/google/uuid"

// EntityKind identifies the persistent table an entity belongs to.
type EntityKind string

const (
	KindAsset       EntityKind = "asset"
	KindAssetPrice  EntityKind = "asset-price"
	KindAccount     EntityKind = "account"
	KindTransaction EntityKind = "transaction"
	KindEntry       EntityKind = "transaction-entry"
	KindTaxLot      EntityKind = "tax-lot"
	KindAssignment  EntityKind = "tax-lot-assignment"
	KindConfig      EntityKind = "ledger-config"
)

// Entity is implemented by every persistent row of the ledger.
type Entity interface {
	EntityID() uuid.UUID
	EntityKind() EntityKind
}

// NewID mints a fresh entity id.
func NewID() uuid.UUID { return uuid.New() }

// IsPersisted reports whether id refers to a persisted entity.
// The zero UUID marks an entity that was never inserted.
func IsPersisted(id uuid.UUID) bool { return id != uuid.Nil }
