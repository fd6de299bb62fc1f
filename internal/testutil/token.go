package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates predictable cascade tokens: prefix-1,
// prefix-2, and so on. It satisfies cascade.TokenGenerator.
//
// Journals key cascades by token, so tests need distinct tokens per
// cascade; a sequence keeps golden output byte-identical across runs.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix becomes
// "cascade".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "cascade"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
