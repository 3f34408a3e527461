package util

import (
	"fmt"
	"strings"
	"sync"
)

/*
LRU is a fixed-capacity cache that evicts the least recently used entry. Entries
live on a circular doubly linked list threaded through a sentinel; the entry
after the sentinel is the most recently used.
*/

////////////////////////////////////////////////////////////////////////////////

// LRU is a simple LRU cache. It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	entries  map[K]*lruEntry[K, V]
	sentinel *lruEntry[K, V]
	capacity int
	mtx      *sync.Mutex
}

type lruEntry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *lruEntry[K, V]
}

// NewLRU returns a new LRU cache holding at most capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	sentinel := &lruEntry[K, V]{}
	sentinel.prev = sentinel
	sentinel.next = sentinel
	return &LRU[K, V]{
		entries:  make(map[K]*lruEntry[K, V]),
		sentinel: sentinel,
		capacity: capacity,
		mtx:      &sync.Mutex{},
	}
}

func (lru *LRU[K, V]) unlink(e *lruEntry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (lru *LRU[K, V]) pushFront(e *lruEntry[K, V]) {
	e.prev = lru.sentinel
	e.next = lru.sentinel.next
	lru.sentinel.next.prev = e
	lru.sentinel.next = e
}

// Put adds or replaces the value for key, marking it most recently used.
func (lru *LRU[K, V]) Put(key K, value V) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.put(key, value)
}

func (lru *LRU[K, V]) put(key K, value V) {
	if e, ok := lru.entries[key]; ok {
		e.value = value
		lru.unlink(e)
		lru.pushFront(e)
		return
	}
	e := &lruEntry[K, V]{key: key, value: value}
	lru.entries[key] = e
	lru.pushFront(e)
	for len(lru.entries) > lru.capacity {
		oldest := lru.sentinel.prev
		lru.unlink(oldest)
		delete(lru.entries, oldest.key)
	}
}

// Get returns the value for key and marks it most recently used.
func (lru *LRU[K, V]) Get(key K) (V, bool) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	e, ok := lru.entries[key]
	if !ok {
		var v V
		return v, false
	}
	lru.unlink(e)
	lru.pushFront(e)
	return e.value, true
}

// GetOrLoad returns the cached value for key, calling load to produce and cache
// it on a miss. Errors from load are returned and nothing is cached. Load runs
// without the cache locked, so concurrent misses on one key may each call it.
func (lru *LRU[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := lru.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	lru.Put(key, v)
	return v, nil
}

// Len returns the number of cached entries.
func (lru *LRU[K, V]) Len() int {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	return len(lru.entries)
}

// String returns the entries from most to least recently used.
func (lru *LRU[K, V]) String() string {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "(%d/%d) [", len(lru.entries), lru.capacity)
	for e := lru.sentinel.next; e != lru.sentinel; e = e.next {
		if e != lru.sentinel.next {
			sb.WriteString(" ")
		}
		fmt.Fprintf(sb, "%v:%v", e.key, e.value)
	}
	sb.WriteString("]")
	return sb.String()
}
