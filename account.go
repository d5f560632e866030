package moneyman

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountKind classifies accounts.
type AccountKind int

const (
	// Banking accounts hold a single currency (checking, savings, cards).
	Banking AccountKind = iota
	// Investing accounts hold securities besides their currency, and track
	// tax lots for them.
	Investing
	// Category accounts are pseudo-accounts representing budget categories.
	// They never hold tax lots and are excluded from net worth.
	Category
)

func (k AccountKind) String() string {
	switch k {
	case Banking:
		return "banking"
	case Investing:
		return "investing"
	case Category:
		return "category"
	default:
		return "unknown"
	}
}

// ParseAccountKind parses a string into an AccountKind.
func ParseAccountKind(s string) (AccountKind, error) {
	switch s {
	case "banking":
		return Banking, nil
	case "investing":
		return Investing, nil
	case "category":
		return Category, nil
	default:
		return 0, fmt.Errorf("unknown account kind: %q", s)
	}
}

// Account is a ledger account. A closed account keeps all of its history for
// net worth reporting but accepts no new transactions.
type Account struct {
	ID              uuid.UUID
	Name            string
	Kind            AccountKind
	CurrencyAssetID uuid.UUID // zero for category accounts
	IsClosed        bool
}

func (a Account) EntityID() uuid.UUID    { return a.ID }
func (a Account) EntityKind() EntityKind { return KindAccount }
