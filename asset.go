package moneyman

import (
	"fmt"

	"github.com/aarnott/moneyman/date"
	"github.com/google/uuid"
)

// AssetKind distinguishes currencies from securities.
type AssetKind int

const (
	// Currency is a unit of money (EUR, USD, ...). Accounts denominate their
	// cash holdings in a currency asset.
	Currency AssetKind = iota
	// Security is a tradable instrument tracked by quantity and valued
	// through its price history.
	Security
)

func (k AssetKind) String() string {
	switch k {
	case Currency:
		return "currency"
	case Security:
		return "security"
	default:
		return "unknown"
	}
}

// ParseAssetKind parses a string into an AssetKind.
func ParseAssetKind(s string) (AssetKind, error) {
	switch s {
	case "currency":
		return Currency, nil
	case "security":
		return Security, nil
	default:
		return 0, fmt.Errorf("unknown asset kind: %q", s)
	}
}

// Asset is a currency or security definition in the catalog.
//
// The kind is immutable while any account uses the asset as its currency.
type Asset struct {
	ID             uuid.UUID
	Name           string
	Ticker         string
	Kind           AssetKind
	CurrencySymbol string // display symbol, currency assets only
	DecimalDigits  int    // display precision; defaulted from the currency code
}

func (a Asset) EntityID() uuid.UUID    { return a.ID }
func (a Asset) EntityKind() EntityKind { return KindAsset }

// AssetPrice is one point of a sparse price time series: the value of one
// unit of AssetID expressed in ReferenceAssetID on a given day. Valuations
// use the latest point at or before the requested date.
type AssetPrice struct {
	ID               uuid.UUID
	AssetID          uuid.UUID
	ReferenceAssetID uuid.UUID
	When             date.Date
	Price            Quantity
}

func (p AssetPrice) EntityID() uuid.UUID    { return p.ID }
func (p AssetPrice) EntityKind() EntityKind { return KindAssetPrice }

// LedgerConfig is the single persisted configuration row of a ledger.
// The preferred currency is read explicitly at the start of any computation
// that needs it; it is never ambient global state.
type LedgerConfig struct {
	ID                       uuid.UUID
	PreferredCurrencyAssetID uuid.UUID
}

func (c LedgerConfig) EntityID() uuid.UUID    { return c.ID }
func (c LedgerConfig) EntityKind() EntityKind { return KindConfig }
