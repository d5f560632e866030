package date

import (
	"iter"
	"sort"
)

// History stores a chronological series of values, each associated with a
// specific date. Dates are unique and the series is always sorted, so the
// "latest value at or before a date" query is a binary search.
type History[T any] struct {
	days   []Date
	values []T
}

// Len returns the number of points in the history.
func (h *History[T]) Len() int { return len(h.days) }

// Clear removes all points from the history.
func (h *History[T]) Clear() {
	h.days = h.days[:0]
	h.values = h.values[:0]
}

// Latest returns the latest date and value in the history.
// If the history is empty, it returns zero values and false.
func (h *History[T]) Latest() (day Date, value T, ok bool) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, *new(T), false
	}
	return h.days[last], h.values[last], true
}

// Append adds a point to the history, keeping it sorted.
// An existing value on the same day is overwritten.
func (h *History[T]) Append(on Date, v T) *History[T] {
	i := sort.Search(len(h.days), func(i int) bool { return !h.days[i].Before(on) })
	if i < len(h.days) && h.days[i] == on {
		h.values[i] = v
		return h
	}
	h.days = append(h.days, Date{})
	h.values = append(h.values, *new(T))
	copy(h.days[i+1:], h.days[i:])
	copy(h.values[i+1:], h.values[i:])
	h.days[i], h.values[i] = on, v
	return h
}

// ValueAsOf returns the value recorded on the latest date at or before "on".
// It returns false when no point exists at or before that date.
func (h *History[T]) ValueAsOf(on Date) (T, bool) {
	// first index strictly after "on"
	i := sort.Search(len(h.days), func(i int) bool { return h.days[i].After(on) })
	if i == 0 {
		return *new(T), false
	}
	return h.values[i-1], true
}

// Values returns an iterator over all date/value pairs, in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}
