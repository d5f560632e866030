package date

import (
	"testing"
	"time"
)

func day(d int) Date { return New(2025, time.January, d) }

func TestHistoryAppendKeepsOrder(t *testing.T) {
	var h History[float64]
	h.Append(day(10), 10.0)
	h.Append(day(1), 1.0)
	h.Append(day(5), 5.0)

	var days []Date
	for on := range h.Values() {
		days = append(days, on)
	}
	want := []Date{day(1), day(5), day(10)}
	for i, on := range days {
		if on != want[i] {
			t.Fatalf("order[%d] = %v, want %v", i, on, want[i])
		}
	}
}

func TestHistoryAppendOverwritesSameDay(t *testing.T) {
	var h History[float64]
	h.Append(day(3), 1.0)
	h.Append(day(3), 2.0)
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if v, ok := h.ValueAsOf(day(3)); !ok || v != 2.0 {
		t.Errorf("ValueAsOf(day 3) = %v, %v; want 2.0, true", v, ok)
	}
}

func TestHistoryValueAsOf(t *testing.T) {
	var h History[string]
	h.Append(day(2), "two")
	h.Append(day(8), "eight")

	tests := []struct {
		on     Date
		want   string
		wantOK bool
	}{
		{day(1), "", false},
		{day(2), "two", true},
		{day(5), "two", true}, // picks the earlier point, never the later one
		{day(8), "eight", true},
		{day(20), "eight", true},
	}
	for _, tc := range tests {
		got, ok := h.ValueAsOf(tc.on)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ValueAsOf(%v) = %q, %v; want %q, %v", tc.on, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestHistoryLatest(t *testing.T) {
	var h History[int]
	if _, _, ok := h.Latest(); ok {
		t.Error("Latest() on empty history should report false")
	}
	h.Append(day(4), 4)
	h.Append(day(9), 9)
	on, v, ok := h.Latest()
	if !ok || on != day(9) || v != 9 {
		t.Errorf("Latest() = %v, %d, %v; want day 9, 9, true", on, v, ok)
	}
}
