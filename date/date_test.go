package date

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewNormalizes(t *testing.T) {
	// December 32 normalizes into January 1 of the next year.
	got := New(2024, time.December, 32)
	want := New(2025, time.January, 1)
	if got != want {
		t.Errorf("New(2024, 12, 32) = %v, want %v", got, want)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"2025-07-01", New(2025, time.July, 1), false},
		{"2025-7-1", New(2025, time.July, 1), false},
		{"not-a-date", Date{}, true},
		{"", Date{}, true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBeforeAfter(t *testing.T) {
	a := New(2025, time.March, 10)
	b := a.Add(1)
	if !a.Before(b) {
		t.Errorf("%v should be before %v", a, b)
	}
	if !b.After(a) {
		t.Errorf("%v should be after %v", b, a)
	}
	if a.Before(a) || a.After(a) {
		t.Errorf("%v should be neither before nor after itself", a)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := New(2025, time.June, 30)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"2025-06-30"` {
		t.Errorf("Marshal() = %s, want %q", b, "2025-06-30")
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != d {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}
