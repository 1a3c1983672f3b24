package journal

import (
	"sync"
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"
	"go.uber.org/zap"
)

type (
	// MemoryStore is a keyed in-memory map that publishes its mutations to
	// registered Listeners and Consumers. When bounded by capacity it evicts
	// the least recently used key, and when configured with a TTL keys
	// expire. It is safe for concurrent use
	MemoryStore[K comparable, V any] struct {
		*notifier[K, V]
		logger   *zap.Logger
		clock    func() time.Time
		items    *recency[K, V]
		ttl      time.Duration
		capacity int
		mu       sync.Mutex
	}

	// ListenerID identifies a registered Listener so it can be removed
	ListenerID uint64

	// notifier publishes store changes to a caravan topic. Each Listener is
	// fed by its own topic consumer on its own goroutine, so a Listener may
	// call back into the store that notified it
	notifier[K comparable, V any] struct {
		topic     topic.Topic[Notification[K, V]]
		producer  topic.Producer[Notification[K, V]]
		listeners map[ListenerID]topic.Consumer[Notification[K, V]]
		nextID    ListenerID
		mu        sync.Mutex
		wg        sync.WaitGroup
		closeOnce sync.Once
	}
)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore[K comparable, V any](
	cfg StoreConfig,
) (*MemoryStore[K, V], error) {
	if cfg.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	return &MemoryStore[K, V]{
		notifier: newNotifier[K, V](),
		logger:   loggerOrNop(cfg.Logger),
		clock:    clockOrNow(cfg.Clock),
		items:    newRecency[K, V](),
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
	}, nil
}

// Put stores value under key, returning the previous value if one existed
func (s *MemoryStore[K, V]) Put(key K, value V) (V, bool) {
	s.mu.Lock()
	now := s.clock()

	var changes []Notification[K, V]
	changes = s.expireKey(changes, key, now)

	item := &storeItem[K, V]{key: key, value: value}
	if s.ttl > 0 {
		item.expires = now.Add(s.ttl)
	}

	var prev V
	old, existed := s.items.put(item)
	if existed {
		prev = old.value
		changes = appendChange(changes, Updated, key, old.value, value)
	} else {
		changes = appendChange(changes, Added, key, prev, value)
	}

	for s.capacity > 0 && s.items.len() > s.capacity {
		ev, _ := s.items.evictLast()
		changes = appendChange(
			changes, Evicted, ev.key, ev.value, ev.value,
		)
		s.logger.Debug("Store entry evicted", zap.Any("key", ev.key))
	}

	s.unlockAndPublish(changes)
	return prev, existed
}

// Get returns the value stored under key. An expired key is removed and
// reported as Expired
func (s *MemoryStore[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	changes := s.expireKey(nil, key, s.clock())

	var res V
	item, ok := s.items.get(key)
	if ok {
		s.items.touch(key)
		res = item.value
	}

	s.unlockAndPublish(changes)
	return res, ok
}

// Remove deletes key, returning the value it held
func (s *MemoryStore[K, V]) Remove(key K) (V, bool) {
	return s.drop(key, Removed)
}

// Evict deletes key as if capacity pressure had removed it
func (s *MemoryStore[K, V]) Evict(key K) (V, bool) {
	return s.drop(key, Evicted)
}

// Expire removes every key whose TTL has elapsed and returns how many were
// removed
func (s *MemoryStore[K, V]) Expire() int {
	s.mu.Lock()
	var changes []Notification[K, V]
	for _, item := range s.items.expired(s.clock()) {
		s.items.remove(item.key)
		changes = appendChange(
			changes, Expired, item.key, item.value, item.value,
		)
	}
	s.unlockAndPublish(changes)
	return len(changes)
}

// Close unregisters every Listener and stops publishing. The store must
// not be mutated afterward
func (s *MemoryStore[K, V]) Close() {
	s.closeNotifier()
}

// Clear removes every key without notifying Listeners
func (s *MemoryStore[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.clear()
}

// Len returns the number of stored keys, including any that have expired
// but not yet been swept
func (s *MemoryStore[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.len()
}

// Snapshot returns a copy of the current contents
func (s *MemoryStore[K, V]) Snapshot() map[K]V {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[K]V, s.items.len())
	s.items.each(func(item *storeItem[K, V]) {
		res[item.key] = item.value
	})
	return res
}

func (s *MemoryStore[K, V]) drop(key K, kind Kind) (V, bool) {
	s.mu.Lock()
	changes := s.expireKey(nil, key, s.clock())

	var res V
	item, ok := s.items.remove(key)
	if ok {
		res = item.value
		changes = appendChange(changes, kind, key, item.value, res)
	}

	s.unlockAndPublish(changes)
	return res, ok
}

func (s *MemoryStore[K, V]) expireKey(
	changes []Notification[K, V], key K, now time.Time,
) []Notification[K, V] {
	item, ok := s.items.get(key)
	if !ok || !item.expiredAt(now) {
		return changes
	}
	s.items.remove(key)
	return appendChange(changes, Expired, key, item.value, item.value)
}

// unlockAndPublish publishes changes and then releases the store lock.
// Publishing under the lock keeps notifications in mutation order
func (s *MemoryStore[K, V]) unlockAndPublish(
	changes []Notification[K, V],
) {
	defer s.mu.Unlock()
	s.publish(changes)
}

func newNotifier[K comparable, V any]() *notifier[K, V] {
	t := caravan.NewTopic[Notification[K, V]]()
	return &notifier[K, V]{
		topic:     t,
		producer:  t.NewProducer(),
		listeners: map[ListenerID]topic.Consumer[Notification[K, V]]{},
	}
}

// NewConsumer returns a topic consumer that receives every subsequent
// change. Its Receive channel can be handed to Capture.Consume. The caller
// must Close it when done
func (n *notifier[K, V]) NewConsumer() topic.Consumer[Notification[K, V]] {
	return n.topic.NewConsumer()
}

// AddListener registers l for every subsequent change. Notifications are
// delivered to l in mutation order on a goroutine owned by the store
func (n *notifier[K, V]) AddListener(l Listener[K, V]) ListenerID {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := n.topic.NewConsumer()
	n.nextID++
	n.listeners[n.nextID] = c

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for change := range c.Receive() {
			notify(l, change)
		}
	}()
	return n.nextID
}

// RemoveListener unregisters the Listener with the given ID, returning
// false if no such Listener exists
func (n *notifier[K, V]) RemoveListener(id ListenerID) bool {
	n.mu.Lock()
	c, ok := n.listeners[id]
	delete(n.listeners, id)
	n.mu.Unlock()

	if ok {
		c.Close()
	}
	return ok
}

// closeNotifier unregisters every Listener, waits for their goroutines to
// finish, and stops publishing. Undelivered notifications are discarded
func (n *notifier[K, V]) closeNotifier() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		consumers := n.listeners
		n.listeners = map[ListenerID]topic.Consumer[Notification[K, V]]{}
		n.mu.Unlock()

		for _, c := range consumers {
			c.Close()
		}
		n.wg.Wait()
		n.producer.Close()
	})
}

func (n *notifier[K, V]) publish(changes []Notification[K, V]) {
	for _, c := range changes {
		n.producer.Send() <- c
	}
}

func appendChange[K comparable, V any](
	changes []Notification[K, V], kind Kind, key K, oldValue, newValue V,
) []Notification[K, V] {
	var zero V
	if !kind.HasOldValue() {
		oldValue = zero
	}
	if !kind.HasNewValue() {
		newValue = zero
	}
	return append(changes, Notification[K, V]{
		Key:      key,
		OldValue: oldValue,
		NewValue: newValue,
		Kind:     kind,
	})
}

func notify[K comparable, V any](l Listener[K, V], n Notification[K, V]) {
	switch n.Kind {
	case Added:
		l.EntryAdded(n.Key, n.NewValue)
	case Updated:
		l.EntryUpdated(n.Key, n.OldValue, n.NewValue)
	case Removed:
		l.EntryRemoved(n.Key, n.OldValue)
	case Evicted:
		l.EntryEvicted(n.Key, n.OldValue)
	case Expired:
		l.EntryExpired(n.Key, n.OldValue)
	}
}
