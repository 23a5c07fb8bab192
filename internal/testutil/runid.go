package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs generates predictable pipeline run ids for tests:
// "run-0001", "run-0002", ...
//
// This keeps log output and golden comparisons deterministic.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix defaults to "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Count returns how many ids were generated.
func (g *SequentialRunIDs) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
