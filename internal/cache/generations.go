package cache

import (
	"sync"
	"sync/atomic"
)

// Generations hands out per-page generation numbers. Each call to Next for
// a key returns a value strictly greater than every earlier value for that
// key, so a newer edit can always be told apart from an older one.
//
// Thread-safety: safe for concurrent use.
type Generations struct {
	mu       sync.Mutex
	counters map[Key]*atomic.Uint64
}

// NewGenerations creates an empty counter set.
func NewGenerations() *Generations {
	return &Generations{counters: make(map[Key]*atomic.Uint64)}
}

func (g *Generations) counter(k Key) *atomic.Uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.counters[k]
	if !ok {
		c = &atomic.Uint64{}
		g.counters[k] = c
	}
	return c
}

// Next returns the next generation for k, starting at 1.
func (g *Generations) Next(k Key) uint64 {
	return g.counter(k).Add(1)
}

// Current returns the last generation issued for k, 0 if none.
func (g *Generations) Current(k Key) uint64 {
	g.mu.Lock()
	c, ok := g.counters[k]
	g.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// Observe raises k's counter to at least gen. Used when resuming from
// persisted snapshots so new generations continue above them.
func (g *Generations) Observe(k Key, gen uint64) {
	c := g.counter(k)
	for {
		cur := c.Load()
		if cur >= gen || c.CompareAndSwap(cur, gen) {
			return
		}
	}
}
