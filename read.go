package journal

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

type (
	// Filter selects entries during a read. It must not have side effects
	Filter[K comparable, V any] func(*Entry[K, V]) bool

	// Projection transforms an entry that passed the Filter into a caller
	// chosen value. It must not have side effects
	Projection[K comparable, V, T any] func(*Entry[K, V]) T

	// ResultSet is an immutable, point-in-time view produced by one read
	ResultSet[T any] struct {
		items     []T
		sequences []int64
		start     int64
		readCount int
	}
)

// ErrProjectionRequired is returned by ReadRange when no Projection is given
var ErrProjectionRequired = errors.New("projection is required")

// ReadRange scans the Journal forward from start, examining entries in
// sequence order until maxItems entries have passed filter or the retained
// entries are exhausted. Each passing entry is transformed by projection.
// A start beyond the newest entry yields an empty ResultSet
func ReadRange[K comparable, V, T any](
	j *Journal[K, V], start int64, maxItems int,
	filter Filter[K, V], projection Projection[K, V, T],
) (*ResultSet[T], error) {
	switch {
	case start < 0:
		return nil, ErrNegativeSequence
	case maxItems < 0:
		return nil, ErrNegativeMaxItems
	case projection == nil:
		return nil, ErrProjectionRequired
	}

	res := &ResultSet[T]{start: start}
	if maxItems == 0 {
		return res, nil
	}

	entries, err := j.window(start)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if len(res.items) >= maxItems {
			break
		}
		res.readCount++
		if filter != nil && !filter(e) {
			continue
		}
		res.items = append(res.items, projection(e))
		res.sequences = append(res.sequences, e.Sequence)
	}
	return res, nil
}

// Size returns the number of items that passed the filter
func (r *ResultSet[T]) Size() int {
	return len(r.items)
}

// ReadCount returns the number of entries examined, including those the
// filter rejected
func (r *ResultSet[T]) ReadCount() int {
	return r.readCount
}

// NextSequence returns the position a subsequent read should start from so
// that no entry is examined twice
func (r *ResultSet[T]) NextSequence() int64 {
	return r.start + int64(r.readCount)
}

// Items returns a copy of the result items in sequence order
func (r *ResultSet[T]) Items() []T {
	return slices.Clone(r.items)
}

// At returns the item at index i
func (r *ResultSet[T]) At(i int) T {
	return r.items[i]
}

// SequenceAt returns the journal sequence of the entry that produced the
// item at index i
func (r *ResultSet[T]) SequenceAt(i int) int64 {
	return r.sequences[i]
}

// All yields each item along with the sequence of its source entry
func (r *ResultSet[T]) All() iter.Seq2[int64, T] {
	return func(yield func(int64, T) bool) {
		for i, item := range r.items {
			if !yield(r.sequences[i], item) {
				return
			}
		}
	}
}

// KindFilter accepts entries of any of the given kinds
func KindFilter[K comparable, V any](kinds ...Kind) Filter[K, V] {
	return func(e *Entry[K, V]) bool {
		return slices.Contains(kinds, e.Kind)
	}
}

// KeyFilter accepts entries for any of the given keys
func KeyFilter[K comparable, V any](keys ...K) Filter[K, V] {
	return func(e *Entry[K, V]) bool {
		return slices.Contains(keys, e.Key)
	}
}

// AllOf accepts entries that pass every one of the given filters
func AllOf[K comparable, V any](filters ...Filter[K, V]) Filter[K, V] {
	return func(e *Entry[K, V]) bool {
		for _, f := range filters {
			if f != nil && !f(e) {
				return false
			}
		}
		return true
	}
}

// Describe renders an entry as a short human-readable sentence
func Describe[K comparable, V any](e *Entry[K, V]) string {
	switch e.Kind {
	case Added:
		return fmt.Sprintf("added %v = %v", e.Key, e.NewValue)
	case Updated:
		return fmt.Sprintf(
			"updated %v from %v to %v", e.Key, e.OldValue, e.NewValue,
		)
	case Removed:
		return fmt.Sprintf("removed %v (was %v)", e.Key, e.OldValue)
	case Evicted:
		return fmt.Sprintf("evicted %v (was %v)", e.Key, e.OldValue)
	case Expired:
		return fmt.Sprintf("expired %v (was %v)", e.Key, e.OldValue)
	default:
		return fmt.Sprintf("unknown event %s for key %v", e.Kind, e.Key)
	}
}
