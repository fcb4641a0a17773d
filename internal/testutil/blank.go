package testutil

import (
	"strconv"
	"sync"
)

// SequenceBlankGenerator mints blank node labels "<prefix>1", "<prefix>2", ...
//
// This makes inference with blank-node conclusions deterministic, so the
// same scenario produces byte-identical quads and golden traces.
// Implements infer.BlankNodeGenerator.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequenceBlankGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceBlankGenerator creates a generator. An empty prefix defaults to "g".
//
// The first call to Generate returns prefix+"1".
func NewSequenceBlankGenerator(prefix string) *SequenceBlankGenerator {
	if prefix == "" {
		prefix = "g"
	}
	return &SequenceBlankGenerator{prefix: prefix}
}

// Generate returns the next label.
func (g *SequenceBlankGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + strconv.Itoa(g.n)
}

// Count returns the number of labels generated so far.
func (g *SequenceBlankGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. After Reset, Generate returns prefix+"1".
func (g *SequenceBlankGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
