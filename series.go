package backfolio

import (
	"iter"
	"slices"
	"sort"
)

// Series stores a chronological sequence of values, each associated with a
// date. Dates are unique and the sequence is always sorted.
type Series[T any] struct {
	days   []Date
	values []T
}

// Len returns the number of points in the series.
func (s *Series[T]) Len() int { return len(s.days) }

// First returns the earliest date and value in the series, or zero values
// when the series is empty.
func (s *Series[T]) First() (Date, T) {
	if len(s.days) == 0 {
		return Date{}, *new(T)
	}
	return s.days[0], s.values[0]
}

// Latest returns the latest date and value in the series, or zero values
// when the series is empty.
func (s *Series[T]) Latest() (Date, T) {
	last := len(s.days) - 1
	if last < 0 {
		return Date{}, *new(T)
	}
	return s.days[last], s.values[last]
}

// chronological is a private implementation to keep the series sorted.
type chronological[T any] struct{ *Series[T] }

func (c chronological[T]) Len() int           { return len(c.days) }
func (c chronological[T]) Less(i, j int) bool { return c.days[i].Before(c.days[j]) }
func (c chronological[T]) Swap(i, j int) {
	c.days[i], c.days[j] = c.days[j], c.days[i]
	c.values[i], c.values[j] = c.values[j], c.values[i]
}

// Append adds a point to the series. An existing value at that date is
// overwritten.
func (s *Series[T]) Append(on Date, v T) *Series[T] {
	if i := slices.Index(s.days, on); i >= 0 {
		s.values[i] = v
		return s
	}
	s.days, s.values = append(s.days, on), append(s.values, v)
	sort.Sort(chronological[T]{s})
	return s
}

// Get returns the value exactly at 'day', or false when absent.
func (s *Series[T]) Get(day Date) (T, bool) {
	if i := slices.Index(s.days, day); i >= 0 {
		return s.values[i], true
	}
	return *new(T), false
}

// ValueAsOf returns the value on a given day, or the most recent value
// before it. This is the forward-fill lookup: a missing day carries the last
// known value forward, never backward and never interpolated. It returns
// false when no value exists on or before the day.
func (s *Series[T]) ValueAsOf(day Date) (T, bool) {
	i, found := slices.BinarySearchFunc(s.days, day, func(d, t Date) int {
		if d.After(t) {
			return 1
		}
		if d.Before(t) {
			return -1
		}
		return 0
	})
	if found {
		return s.values[i], true
	}
	if i == 0 {
		return *new(T), false
	}
	return s.values[i-1], true
}

// Values returns an iterator over all date/value pairs in chronological order.
func (s *Series[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range s.days {
			if !yield(on, s.values[i]) {
				return
			}
		}
	}
}

// Reindex projects the series onto an arbitrary date axis, forward-filling
// gaps. The returned slices are aligned with days; known[i] is false while no
// value exists on or before days[i] (an explicit unknown, never a zero).
// Reindexing a series already defined on every day is a no-op on the values.
func (s *Series[T]) Reindex(days []Date) (values []T, known []bool) {
	values = make([]T, len(days))
	known = make([]bool, len(days))
	// Single merge pass: both the series and the axis are sorted.
	j := 0
	var last T
	haveLast := false
	for i, day := range days {
		for j < len(s.days) && !s.days[j].After(day) {
			last, haveLast = s.values[j], true
			j++
		}
		values[i], known[i] = last, haveLast
	}
	return values, known
}
