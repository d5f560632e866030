package moneyman

import (
	"errors"
	"fmt"
)

// Error kinds of the ledger engine. Callers match them with errors.Is.
var (
	// ErrInvalidArgument marks a rejected call: nil or empty required
	// identifiers, or a reference to an unpersisted entity. Detected before
	// any mutation is attempted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvariant marks an operation that would break a ledger invariant,
	// e.g. editing the mirrored amount of a transfer from the non-owning
	// side, or deleting a synthesized split leg. The caller can recover by
	// choosing a different action.
	ErrInvariant = errors.New("ledger invariant violation")

	// ErrAborted marks an operation the user declined through the
	// interactor. Nothing was mutated.
	ErrAborted = errors.New("aborted")

	// ErrStoreDisposed is returned by any store operation after Close.
	ErrStoreDisposed = errors.New("store is disposed")

	// ErrFutureSchema is returned when opening a ledger whose recorded
	// schema version exceeds what this engine understands.
	ErrFutureSchema = errors.New("ledger requires a newer schema version")

	// ErrNotFound is returned by store getters for unknown ids.
	ErrNotFound = errors.New("not found")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
