package cmd

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSelectColumn(t *testing.T) {
	raw := `[{"date":"2025-06-02","close":171.2},{"date":"2025-06-03","close":172.05}]`
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		t.Fatal(err)
	}

	days, err := selectColumn(jobj, "$[:].date")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0] != "2025-06-02" || days[1] != "2025-06-03" {
		t.Errorf("dates = %v", days)
	}

	prices, err := selectColumn(jobj, "$[:].close")
	if err != nil {
		t.Fatal(err)
	}
	if len(prices) != 2 {
		t.Fatalf("got %d prices", len(prices))
	}
	// UseNumber keeps the exact decimal text
	if n, ok := prices[1].(json.Number); !ok || n.String() != "172.05" {
		t.Errorf("prices[1] = %v (%T)", prices[1], prices[1])
	}
}

func TestSelectColumnScalar(t *testing.T) {
	var jobj any
	if err := json.Unmarshal([]byte(`{"last": 171.2}`), &jobj); err != nil {
		t.Fatal(err)
	}
	got, err := selectColumn(jobj, "$.last")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %v", got)
	}
}
