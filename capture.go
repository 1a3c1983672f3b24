package journal

import (
	"fmt"

	"go.uber.org/zap"
)

type (
	// Listener receives change notifications from a keyed store
	Listener[K comparable, V any] interface {
		EntryAdded(key K, value V)
		EntryUpdated(key K, oldValue, newValue V)
		EntryRemoved(key K, oldValue V)
		EntryEvicted(key K, oldValue V)
		EntryExpired(key K, oldValue V)
	}

	// Notification is a single store change, as delivered by notification
	// mechanisms that prefer values over callbacks (channels, buses)
	Notification[K comparable, V any] struct {
		Key      K
		OldValue V
		NewValue V
		Kind     Kind
	}

	// Capture bridges store change notifications into a Journal. It holds no
	// state of its own and may be invoked from many goroutines at once
	Capture[K comparable, V any] struct {
		journal *Journal[K, V]
	}
)

// NewCapture returns a Capture that appends to the given Journal
func NewCapture[K comparable, V any](j *Journal[K, V]) *Capture[K, V] {
	return &Capture[K, V]{journal: j}
}

// Added records an Added entry and returns its sequence
func (c *Capture[K, V]) Added(key K, value V) int64 {
	var zero V
	return c.journal.Append(Added, key, zero, value)
}

// Updated records an Updated entry and returns its sequence
func (c *Capture[K, V]) Updated(key K, oldValue, newValue V) int64 {
	return c.journal.Append(Updated, key, oldValue, newValue)
}

// Removed records a Removed entry and returns its sequence
func (c *Capture[K, V]) Removed(key K, oldValue V) int64 {
	var zero V
	return c.journal.Append(Removed, key, oldValue, zero)
}

// Evicted records an Evicted entry and returns its sequence
func (c *Capture[K, V]) Evicted(key K, oldValue V) int64 {
	var zero V
	return c.journal.Append(Evicted, key, oldValue, zero)
}

// Expired records an Expired entry and returns its sequence
func (c *Capture[K, V]) Expired(key K, oldValue V) int64 {
	var zero V
	return c.journal.Append(Expired, key, oldValue, zero)
}

// Notify records the given Notification, discarding whichever value its
// Kind does not carry. A Notification with an unrecognized Kind is rejected
// with ErrUnknownKind and nothing is appended
func (c *Capture[K, V]) Notify(n Notification[K, V]) (int64, error) {
	if !n.Kind.valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, n.Kind)
	}
	var zero V
	oldValue, newValue := n.OldValue, n.NewValue
	if !n.Kind.HasOldValue() {
		oldValue = zero
	}
	if !n.Kind.HasNewValue() {
		newValue = zero
	}
	return c.journal.Append(n.Kind, n.Key, oldValue, newValue), nil
}

// Consume records every Notification received from ch until it is closed.
// Notifications that Notify rejects are logged and skipped
func (c *Capture[K, V]) Consume(ch <-chan Notification[K, V]) {
	for n := range ch {
		if _, err := c.Notify(n); err != nil {
			c.journal.logger.Warn("Skipped store notification",
				zap.Any("key", n.Key),
				zap.Error(err),
			)
		}
	}
}

func (c *Capture[K, V]) EntryAdded(key K, value V) {
	c.Added(key, value)
}

func (c *Capture[K, V]) EntryUpdated(key K, oldValue, newValue V) {
	c.Updated(key, oldValue, newValue)
}

func (c *Capture[K, V]) EntryRemoved(key K, oldValue V) {
	c.Removed(key, oldValue)
}

func (c *Capture[K, V]) EntryEvicted(key K, oldValue V) {
	c.Evicted(key, oldValue)
}

func (c *Capture[K, V]) EntryExpired(key K, oldValue V) {
	c.Expired(key, oldValue)
}

var _ Listener[string, string] = (*Capture[string, string])(nil)
