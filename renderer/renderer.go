// Package renderer turns ledger query results into markdown reports. The
// CLI renders these to the terminal; the strings also read fine raw.
package renderer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aarnott/moneyman"
)

// BalanceRow is one asset position of an account.
type BalanceRow struct {
	Asset    moneyman.Asset
	Quantity moneyman.Quantity
}

// Balances renders the holdings of one account.
func Balances(account moneyman.Account, rows []BalanceRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", account.Name)
	if account.IsClosed {
		fmt.Fprintln(&b, "_This account is closed._")
		fmt.Fprintln(&b)
	}
	if len(rows) == 0 {
		fmt.Fprintln(&b, "No holdings.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Asset | Ticker | Quantity |")
	fmt.Fprintln(&b, "|:---|:---|---:|")
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", row.Asset.Name, row.Asset.Ticker, row.Quantity)
	}
	return b.String()
}

// NetWorth renders the per-account values and their total.
func NetWorth(total moneyman.Money, rows []moneyman.AccountValue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Net Worth\n\n")
	fmt.Fprintln(&b, "| Account | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	for _, row := range rows {
		name := row.Account.Name
		if row.Account.IsClosed {
			name += " (closed)"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", name, row.Value)
	}
	fmt.Fprintf(&b, "| **Total** | **%s** |\n", total)
	return b.String()
}

// Register renders an account's transaction views, one line per
// transaction. names resolves counterparty account ids for the target
// column.
func Register(account moneyman.Account, views []moneyman.TransactionView, names map[uuid.UUID]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s register\n\n", account.Name)
	if len(views) == 0 {
		fmt.Fprintln(&b, "No transactions.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Date | Payee | Target | Amount | |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|:---|")
	for _, v := range views {
		target := targetLabel(v.Target, names)
		mark := ""
		if v.Synthesized {
			mark = "mirrored"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			v.Transaction.When, v.Transaction.Payee, target, v.Amount, mark)
	}
	return b.String()
}

func targetLabel(t moneyman.TransferTarget, names map[uuid.UUID]string) string {
	switch t.Kind {
	case moneyman.TargetNone:
		return ""
	case moneyman.TargetSplit:
		return "Split"
	}
	if name, ok := names[t.AccountID]; ok {
		return name
	}
	return t.AccountID.String()
}

// Issues renders integrity findings.
func Issues(issues []moneyman.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Integrity check\n\n")
	if len(issues) == 0 {
		fmt.Fprintln(&b, "No issues found.")
		return b.String()
	}
	fmt.Fprintf(&b, "%d issue(s) found:\n\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s\n", issue.Describe())
	}
	return b.String()
}

// GainRow is one realized gain line of a tax report.
type GainRow struct {
	Security moneyman.Asset
	Acquired string
	Disposed string
	Quantity moneyman.Quantity
	Gain     moneyman.Quantity
}

// Gains renders realized gains, one line per lot assignment.
func Gains(rows []GainRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Realized Gains\n\n")
	if len(rows) == 0 {
		fmt.Fprintln(&b, "No realized gains.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Security | Acquired | Disposed | Quantity | Gain |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|")
	total := moneyman.Quantity{}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			row.Security.Ticker, row.Acquired, row.Disposed, row.Quantity, row.Gain)
		total = total.Add(row.Gain)
	}
	fmt.Fprintf(&b, "| **Total** | | | | **%s** |\n", total)
	return b.String()
}
