package cache

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/vtree/internal/ir"
)

// Entry is an immutable cached snapshot. Callers must not modify Doc.
type Entry struct {
	Doc        *ir.Document
	Generation uint64
}

// Cache maps page keys to entries.
//
// The map itself is guarded by an RWMutex and only changes when a key is
// first created or removed. Replacing an entry swaps a per-key atomic
// pointer under the read lock.
type Cache struct {
	mu    sync.RWMutex
	slots map[Key]*atomic.Pointer[Entry]
	n     atomic.Int64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{slots: make(map[Key]*atomic.Pointer[Entry])}
}

// Get returns the entry for k.
func (c *Cache) Get(k Key) (Entry, bool) {
	c.mu.RLock()
	slot, ok := c.slots[k]
	c.mu.RUnlock()
	if !ok {
		cacheMisses.Inc()
		return Entry{}, false
	}
	e := slot.Load()
	if e == nil {
		cacheMisses.Inc()
		return Entry{}, false
	}
	cacheHits.Inc()
	return *e, true
}

// Insert replaces the entry for k unconditionally.
func (c *Cache) Insert(k Key, e Entry) {
	c.withSlot(k, func(slot *atomic.Pointer[Entry]) {
		if slot.Swap(&e) == nil {
			c.added(1)
		}
	})
	cacheInserts.Inc()
}

// InsertIfNewer stores e only if no entry for k exists or the existing
// entry has a lower generation. Reports whether e was stored.
func (c *Cache) InsertIfNewer(k Key, e Entry) bool {
	next := &e
	stored := false
	c.withSlot(k, func(slot *atomic.Pointer[Entry]) {
		for {
			cur := slot.Load()
			if cur != nil && cur.Generation >= e.Generation {
				return
			}
			if slot.CompareAndSwap(cur, next) {
				if cur == nil {
					c.added(1)
				}
				stored = true
				return
			}
		}
	})
	if !stored {
		cacheStale.Inc()
		return false
	}
	cacheInserts.Inc()
	return true
}

// Remove deletes the entry for k and reports whether it existed.
func (c *Cache) Remove(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[k]
	if !ok {
		return false
	}
	delete(c.slots, k)
	if slot.Load() == nil {
		return false
	}
	c.added(-1)
	return true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return int(c.n.Load())
}

// Keys returns the cached keys in sorted order.
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	out := make([]Key, 0, len(c.slots))
	for k, slot := range c.slots {
		if slot.Load() != nil {
			out = append(out, k)
		}
	}
	c.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = make(map[Key]*atomic.Pointer[Entry])
	c.added(-c.n.Load())
}

// withSlot runs f on the slot for k, creating it if needed. f runs under
// the read lock so that Remove and Clear never race a store into a slot
// that is no longer in the map.
func (c *Cache) withSlot(k Key, f func(*atomic.Pointer[Entry])) {
	for {
		c.mu.RLock()
		if slot, ok := c.slots[k]; ok {
			f(slot)
			c.mu.RUnlock()
			return
		}
		c.mu.RUnlock()

		c.mu.Lock()
		if _, ok := c.slots[k]; !ok {
			c.slots[k] = &atomic.Pointer[Entry]{}
		}
		c.mu.Unlock()
	}
}

// added adjusts the entry count. The gauge sums every cache in the process.
func (c *Cache) added(delta int64) {
	c.n.Add(delta)
	cacheEntries.Add(float64(delta))
}
