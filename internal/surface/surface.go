package surface

import (
	"sync/atomic"
	"weak"
)

// Surface is a client-owned drawing target.
type Surface struct {
	name      string
	destroyed atomic.Bool
}

// New creates a live surface.
func New(name string) *Surface {
	return &Surface{name: name}
}

// Name returns the surface's debug name.
func (s *Surface) Name() string {
	return s.name
}

// Destroy marks the surface as released by its owner. Refs stop promoting
// immediately, without waiting for the garbage collector.
func (s *Surface) Destroy() {
	s.destroyed.Store(true)
}

// Alive reports whether Destroy has not been called.
func (s *Surface) Alive() bool {
	return !s.destroyed.Load()
}

// Ref is a non-owning reference to a Surface. The zero Ref never promotes.
type Ref struct {
	p weak.Pointer[Surface]
}

// WeakRef returns a Ref to s. A nil s yields the zero Ref.
func WeakRef(s *Surface) Ref {
	if s == nil {
		return Ref{}
	}
	return Ref{p: weak.Make(s)}
}

// Promote returns the referenced surface, or nil if it has been destroyed
// or collected.
func (r Ref) Promote() *Surface {
	s := r.p.Value()
	if s == nil || !s.Alive() {
		return nil
	}
	return s
}
