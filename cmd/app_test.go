package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLedgerPathFlagWins(t *testing.T) {
	t.Setenv("MMN_LEDGER", "/env/ledger.db")
	*ledgerFlag = "/flag/ledger.db"
	defer func() { *ledgerFlag = "" }()

	if got := ledgerPath(); got != "/flag/ledger.db" {
		t.Errorf("ledgerPath() = %q; want %q", got, "/flag/ledger.db")
	}
}

func TestLedgerPathEnv(t *testing.T) {
	t.Setenv("MMN_LEDGER", "/env/ledger.db")
	*ledgerFlag = ""

	if got := ledgerPath(); got != "/env/ledger.db" {
		t.Errorf("ledgerPath() = %q; want %q", got, "/env/ledger.db")
	}
}

func TestLedgerPathConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfg, []byte("ledger = \"/cfg/ledger.db\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MMN_CONFIG", cfg)
	t.Setenv("MMN_LEDGER", "")
	*ledgerFlag = ""

	if got := ledgerPath(); got != "/cfg/ledger.db" {
		t.Errorf("ledgerPath() = %q; want %q", got, "/cfg/ledger.db")
	}
}
