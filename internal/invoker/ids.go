package invoker

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces delivery record IDs.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 strings.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7. Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs, for deterministic traces.
// Once the list is exhausted it continues with "<prefix>-<n>".
type FixedGenerator struct {
	mu     sync.Mutex
	ids    []string
	prefix string
	n      int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(prefix string, ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids, prefix: prefix}
}

// Generate returns the next ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return g.prefix + "-" + strconv.Itoa(g.n)
}
