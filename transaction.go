package moneyman

import (
	"fmt"

	"github.com/aarnott/moneyman/date"
	"github.com/google/uuid"
)

// Action classifies the intent of a transaction and constrains which entry
// shapes are valid for it.
type Action int

const (
	Deposit Action = iota
	Withdraw
	Transfer
	Buy
	Sell
	Exchange
	Add
	Remove
	Dividend
	Interest
)

var actionNames = map[Action]string{
	Deposit:  "deposit",
	Withdraw: "withdraw",
	Transfer: "transfer",
	Buy:      "buy",
	Sell:     "sell",
	Exchange: "exchange",
	Add:      "add",
	Remove:   "remove",
	Dividend: "dividend",
	Interest: "interest",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// ParseAction parses a string into an Action.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action: %q", s)
}

// IsAcquisition reports whether a security-increasing entry under this
// action starts a new tax lot. Transfers move an existing lot rather than
// creating one.
func (a Action) IsAcquisition() bool {
	switch a {
	case Buy, Add, Exchange:
		return true
	}
	return false
}

// IsDisposal reports whether a security-decreasing entry under this action
// consumes tax lots.
func (a Action) IsDisposal() bool {
	switch a {
	case Sell, Remove, Transfer, Exchange:
		return true
	}
	return false
}

// IsExternal reports whether the action introduces or removes value from
// outside the tracked asset universe. External actions are exempt from the
// per-asset zero-sum rule.
func (a Action) IsExternal() bool {
	switch a {
	case Deposit, Withdraw, Dividend, Interest:
		return true
	}
	return false
}

// Transaction is the grouping header for one or more entries.
type Transaction struct {
	ID             uuid.UUID
	When           date.Date
	Payee          string
	Memo           string
	CheckNumber    string
	Action         Action
	RelatedAssetID uuid.UUID // the security a dividend or interest relates to, when any
}

func (t Transaction) EntityID() uuid.UUID    { return t.ID }
func (t Transaction) EntityKind() EntityKind { return KindTransaction }

// Cleared is the reconciliation state of an entry.
type Cleared int

const (
	NotCleared Cleared = iota
	ClearedFlag
	Reconciled
)

func (c Cleared) String() string {
	switch c {
	case NotCleared:
		return "none"
	case ClearedFlag:
		return "cleared"
	case Reconciled:
		return "reconciled"
	default:
		return "unknown"
	}
}

// TransactionEntry is one signed leg of a transaction against one account
// and one asset. Positive amounts increase the account's holding of the
// asset; negative amounts decrease it.
//
// Ordinal records insertion order within the transaction. The lowest ordinal
// marks the owning side: mirrored transfer legs and split legs in other
// accounts are read-only for amount and account assignment.
type TransactionEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	AssetID       uuid.UUID
	Amount        Quantity
	Cleared       Cleared
	Memo          string
	OfxFitID      string // de-duplication key supplied by import adapters
	Ordinal       int

	// Acquisition overrides for Add actions, to model assets held before
	// tracking began. Zero values mean "use the transaction date / the
	// paired currency leg".
	AcquisitionDate  date.Date
	AcquisitionPrice Quantity // cost per unit in the account currency
}

func (e TransactionEntry) EntityID() uuid.UUID    { return e.ID }
func (e TransactionEntry) EntityKind() EntityKind { return KindEntry }

// TargetKind discriminates TransferTarget values.
type TargetKind int

const (
	// TargetNone means the entry has no category or transfer assignment.
	TargetNone TargetKind = iota
	// TargetAccount points at a banking or investing account (a transfer).
	TargetAccount
	// TargetCategory points at a category pseudo-account.
	TargetCategory
	// TargetSplit is the sentinel shown when more than one categorized leg
	// exists.
	TargetSplit
)

// TransferTarget is the tagged union of things a transaction can point at:
// an account, a category, or the split placeholder.
type TransferTarget struct {
	Kind      TargetKind
	AccountID uuid.UUID // set for TargetAccount and TargetCategory
}

// AccountTarget builds a transfer target pointing at an account.
func AccountTarget(id uuid.UUID) TransferTarget {
	return TransferTarget{Kind: TargetAccount, AccountID: id}
}

// CategoryTarget builds a target pointing at a category pseudo-account.
func CategoryTarget(id uuid.UUID) TransferTarget {
	return TransferTarget{Kind: TargetCategory, AccountID: id}
}

// SplitTarget is the sentinel target of a split transaction.
func SplitTarget() TransferTarget { return TransferTarget{Kind: TargetSplit} }

// NoTarget is the absent target.
func NoTarget() TransferTarget { return TransferTarget{Kind: TargetNone} }

func (t TransferTarget) String() string {
	switch t.Kind {
	case TargetNone:
		return ""
	case TargetSplit:
		return "Split"
	default:
		return t.AccountID.String()
	}
}
