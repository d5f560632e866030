// Package moneyman implements a personal financial ledger engine: accounts,
// multi-asset balances, and transactions including splits and transfers.
//
// The core responsibilities are:
//   - Entry/Split Engine: every user-level edit (deposit, withdrawal, transfer,
//     split line) is turned into a consistent set of transaction entries, and
//     mirrored transfer legs stay in sync across accounts.
//   - Tax Lot Engine: security acquisitions create tax lots, disposals consume
//     them FIFO (with manual pinned overrides), and realized gain/loss is a
//     derived value.
//   - Balance and Net Worth Calculator: per-account per-asset balances and
//     net worth with historical price conversion into the preferred currency.
//   - Integrity Checker: a batch, read-only scan reporting invariant
//     violations as data rather than errors.
//
// All consistency is enforced by this package itself: every multi-row
// mutation is applied as one atomic Batch against a Store, and observers see
// a single ChangeSet per successful mutation, never an intermediate state.
// The engine is single-writer and performs no internal synchronization; a
// concurrent host must serialize calls.
package moneyman
