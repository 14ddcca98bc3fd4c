package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator issues commit IDs "<prefix>-001", "<prefix>-002", ...
//
// Golden traces depend on commit IDs, so harness runs and tests install
// one of these in place of the UUIDv7 default.
//
// Thread-safety: Safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "commit".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "commit"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}

// FixedGenerator returns the same ID every time.
type FixedGenerator struct {
	id string
}

// NewFixedGenerator creates a generator returning id, or "commit-fixed"
// when id is empty.
func NewFixedGenerator(id string) FixedGenerator {
	if id == "" {
		id = "commit-fixed"
	}
	return FixedGenerator{id: id}
}

// Generate returns the fixed ID.
func (g FixedGenerator) Generate() string {
	return g.id
}
