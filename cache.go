package journal

import (
	"container/list"
	"time"
)

type (
	// recency keeps store items in least-recently-used order. It is not safe
	// for concurrent use; MemoryStore guards it
	recency[K comparable, V any] struct {
		index map[K]*list.Element
		order *list.List
	}

	storeItem[K comparable, V any] struct {
		expires time.Time
		key     K
		value   V
	}
)

func newRecency[K comparable, V any]() *recency[K, V] {
	return &recency[K, V]{
		index: map[K]*list.Element{},
		order: list.New(),
	}
}

func (r *recency[K, V]) get(key K) (*storeItem[K, V], bool) {
	elem, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*storeItem[K, V]), true
}

func (r *recency[K, V]) touch(key K) {
	if elem, ok := r.index[key]; ok {
		r.order.MoveToFront(elem)
	}
}

// put stores the item at the front and returns the item it replaced
func (r *recency[K, V]) put(item *storeItem[K, V]) (*storeItem[K, V], bool) {
	if elem, ok := r.index[item.key]; ok {
		prev := elem.Value.(*storeItem[K, V])
		elem.Value = item
		r.order.MoveToFront(elem)
		return prev, true
	}
	r.index[item.key] = r.order.PushFront(item)
	return nil, false
}

func (r *recency[K, V]) remove(key K) (*storeItem[K, V], bool) {
	elem, ok := r.index[key]
	if !ok {
		return nil, false
	}
	r.order.Remove(elem)
	delete(r.index, key)
	return elem.Value.(*storeItem[K, V]), true
}

// evictLast removes the least recently used item
func (r *recency[K, V]) evictLast() (*storeItem[K, V], bool) {
	back := r.order.Back()
	if back == nil {
		return nil, false
	}
	item := back.Value.(*storeItem[K, V])
	r.order.Remove(back)
	delete(r.index, item.key)
	return item, true
}

// expired returns every item whose deadline is at or before now, oldest
// access first
func (r *recency[K, V]) expired(now time.Time) []*storeItem[K, V] {
	var res []*storeItem[K, V]
	for e := r.order.Back(); e != nil; e = e.Prev() {
		item := e.Value.(*storeItem[K, V])
		if item.expiredAt(now) {
			res = append(res, item)
		}
	}
	return res
}

// each visits items from most to least recently used
func (r *recency[K, V]) each(fn func(*storeItem[K, V])) {
	for e := r.order.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*storeItem[K, V]))
	}
}

func (r *recency[K, V]) len() int {
	return r.order.Len()
}

func (r *recency[K, V]) clear() {
	r.index = map[K]*list.Element{}
	r.order.Init()
}

func (i *storeItem[K, V]) expiredAt(now time.Time) bool {
	return !i.expires.IsZero() && !now.Before(i.expires)
}
