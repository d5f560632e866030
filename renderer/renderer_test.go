package renderer

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/aarnott/moneyman"
)

func TestBalances(t *testing.T) {
	acc := moneyman.Account{Name: "Checking", Kind: moneyman.Banking}
	rows := []BalanceRow{
		{Asset: moneyman.Asset{Name: "US Dollar", Ticker: "USD"}, Quantity: moneyman.Q(150)},
	}
	out := Balances(acc, rows)
	for _, want := range []string{"# Checking", "| US Dollar | USD | 150 |"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out = Balances(acc, nil)
	if !strings.Contains(out, "No holdings.") {
		t.Errorf("empty output missing placeholder:\n%s", out)
	}
}

func TestNetWorth(t *testing.T) {
	rows := []moneyman.AccountValue{
		{Account: moneyman.Account{Name: "Checking"}, Value: moneyman.M(7, "USD")},
		{Account: moneyman.Account{Name: "Old", IsClosed: true}, Value: moneyman.M(3, "USD")},
	}
	out := NetWorth(moneyman.M(10, "USD"), rows)
	for _, want := range []string{"# Net Worth", "Old (closed)", "**Total**"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRegister_TargetLabels(t *testing.T) {
	savings := uuid.New()
	acc := moneyman.Account{Name: "Checking"}
	views := []moneyman.TransactionView{
		{
			Transaction: moneyman.Transaction{Payee: "Landlord"},
			Target:      moneyman.AccountTarget(savings),
			Amount:      moneyman.Q(-950),
		},
		{
			Transaction: moneyman.Transaction{Payee: "Costco"},
			Target:      moneyman.SplitTarget(),
			Amount:      moneyman.Q(-120),
		},
	}
	out := Register(acc, views, map[uuid.UUID]string{savings: "Savings"})
	for _, want := range []string{"Landlord", "Savings", "Split"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIssues(t *testing.T) {
	out := Issues(nil)
	if !strings.Contains(out, "No issues found.") {
		t.Errorf("clean output missing placeholder:\n%s", out)
	}

	issues := []moneyman.Issue{
		moneyman.OrphanedTaxLotAssignment{Assignment: moneyman.TaxLotAssignment{ID: moneyman.NewID()}},
	}
	out = Issues(issues)
	if !strings.Contains(out, "1 issue(s) found") {
		t.Errorf("output missing issue count:\n%s", out)
	}
}
