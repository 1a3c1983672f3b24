package journal

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type (
	// Journal is an append-only, in-memory log of mutation entries. Sequence
	// numbers are assigned by the Journal, start at zero, and are contiguous.
	// It is safe for concurrent use
	Journal[K comparable, V any] struct {
		logger   *zap.Logger
		archiver Archiver[K, V]
		clock    func() time.Time
		entries  []*Entry[K, V]
		notify   chan struct{}
		pending  []*Entry[K, V]
		head     int64
		next     int64
		capacity int
		mu       sync.RWMutex
		pendMu   sync.Mutex
		draining bool
	}

	// Option configures optional collaborators of a Journal
	Option[K comparable, V any] func(*Journal[K, V])
)

// New creates an empty Journal with the given configuration
func New[K comparable, V any](
	cfg Config, opts ...Option[K, V],
) (*Journal[K, V], error) {
	if cfg.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	j := &Journal[K, V]{
		logger:   loggerOrNop(cfg.Logger),
		clock:    clockOrNow(cfg.Clock),
		notify:   make(chan struct{}),
		capacity: cfg.Capacity,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// WithArchiver registers an Archiver that receives the entries a bounded
// Journal drops when it overflows
func WithArchiver[K comparable, V any](a Archiver[K, V]) Option[K, V] {
	return func(j *Journal[K, V]) {
		j.archiver = a
	}
}

// Append records a mutation and returns the sequence assigned to it. When a
// bounded Journal drops an entry, the Append that finds the archive queue
// idle delivers queued entries to the Archiver before returning. No lock is
// held while it does so
func (j *Journal[K, V]) Append(kind Kind, key K, oldValue, newValue V) int64 {
	j.mu.Lock()

	seq := j.next
	j.next++
	j.entries = append(j.entries, &Entry[K, V]{
		Timestamp: j.clock(),
		Key:       key,
		OldValue:  oldValue,
		NewValue:  newValue,
		Sequence:  seq,
		Kind:      kind,
	})

	var dropped *Entry[K, V]
	if j.capacity > 0 && len(j.entries) > j.capacity {
		// Existing elements are never overwritten, readers may still hold
		// slices of the old window
		dropped = j.entries[0]
		j.entries = j.entries[1:]
	}
	if len(j.entries) > 0 {
		j.head = j.entries[0].Sequence
	}

	close(j.notify)
	j.notify = make(chan struct{})

	drain := false
	if dropped != nil && j.archiver != nil {
		drain = j.enqueueDropped(dropped)
	}
	j.mu.Unlock()

	if drain {
		j.drainDropped()
	}
	return seq
}

// OldestSequence returns the sequence of the first retained entry. ok is
// false when the Journal is empty
func (j *Journal[K, V]) OldestSequence() (seq int64, ok bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.entries) == 0 {
		return 0, false
	}
	return j.head, true
}

// NewestSequence returns the sequence of the last entry. ok is false when
// the Journal is empty
func (j *Journal[K, V]) NewestSequence() (seq int64, ok bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.entries) == 0 {
		return 0, false
	}
	return j.next - 1, true
}

// NextSequence returns the sequence the next appended entry will receive
func (j *Journal[K, V]) NextSequence() int64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.next
}

// Len returns the number of retained entries
func (j *Journal[K, V]) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Capacity returns the retention bound, zero if unbounded
func (j *Journal[K, V]) Capacity() int {
	return j.capacity
}

// Appended returns a channel that is closed by the next Append or Clear
func (j *Journal[K, V]) Appended() <-chan struct{} {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.notify
}

// Read returns up to maxItems raw entries starting at start that pass
// filter. A nil filter accepts every entry
func (j *Journal[K, V]) Read(
	start int64, maxItems int, filter Filter[K, V],
) (*ResultSet[*Entry[K, V]], error) {
	return ReadRange[K, V, *Entry[K, V]](
		j, start, maxItems, filter, identity[K, V],
	)
}

// Clear removes every entry and resets the sequence counter to zero. It is
// meant for resetting between scenarios, not for steady-state use
func (j *Journal[K, V]) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	dropped := len(j.entries)
	j.entries = nil
	j.head = 0
	j.next = 0
	close(j.notify)
	j.notify = make(chan struct{})

	j.logger.Info("Journal cleared", zap.Int("dropped", dropped))
}

// enqueueDropped queues e for archiving in sequence order. It must be
// called with mu held and reports whether the caller should drain the queue
func (j *Journal[K, V]) enqueueDropped(e *Entry[K, V]) bool {
	j.pendMu.Lock()
	defer j.pendMu.Unlock()

	j.pending = append(j.pending, e)
	if j.draining {
		return false
	}
	j.draining = true
	return true
}

// drainDropped hands queued entries to the Archiver until the queue is
// empty. Only one drainer runs at a time and it holds no Journal lock while
// archiving, so the Archiver may read the Journal
func (j *Journal[K, V]) drainDropped() {
	for {
		j.pendMu.Lock()
		if len(j.pending) == 0 {
			j.pending = nil
			j.draining = false
			j.pendMu.Unlock()
			return
		}
		e := j.pending[0]
		j.pending = j.pending[1:]
		j.pendMu.Unlock()

		if err := j.archiver.Archive(e); err != nil {
			j.logger.Warn("Failed to archive dropped entry",
				zap.Int64("sequence", e.Sequence),
				zap.Stringer("kind", e.Kind),
				zap.Error(err),
			)
		}
	}
}

// window returns the retained entries at or after start. The returned slice
// must not be modified
func (j *Journal[K, V]) window(start int64) ([]*Entry[K, V], error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if start < j.head {
		return nil, &SequenceTooOldError{
			Requested: start,
			Oldest:    j.head,
		}
	}

	idx := start - j.head
	if idx >= int64(len(j.entries)) {
		return nil, nil
	}
	return j.entries[idx:], nil
}

func identity[K comparable, V any](e *Entry[K, V]) *Entry[K, V] {
	return e
}
