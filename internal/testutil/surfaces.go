package testutil

import (
	"sync"

	"github.com/roach88/txcomplete/internal/surface"
)

// Surfaces keeps test surfaces strongly reachable. Callback handles hold
// surfaces through weak references, so a surface created inline in a test
// can be collected before its handle is finalized.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Surfaces struct {
	mu     sync.Mutex
	byName map[string]*surface.Surface
	kept   []*surface.Surface
}

// NewSurfaces creates an empty pool.
func NewSurfaces() *Surfaces {
	return &Surfaces{byName: make(map[string]*surface.Surface)}
}

// Get returns the surface called name, creating it on first use.
func (p *Surfaces) Get(name string) *surface.Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byName[name]
	if !ok {
		s = surface.New(name)
		p.byName[name] = s
	}
	return s
}

// Keep pins a surface created elsewhere and returns it.
func (p *Surfaces) Keep(s *surface.Surface) *surface.Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kept = append(p.kept, s)
	return s
}

// Destroy destroys the named surface. It stays pinned, so refs to it fail
// to promote because it was destroyed rather than collected.
func (p *Surfaces) Destroy(name string) {
	p.Get(name).Destroy()
}

// Len returns how many surfaces the pool holds.
func (p *Surfaces) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byName) + len(p.kept)
}
