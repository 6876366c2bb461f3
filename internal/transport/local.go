package transport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
)

// ErrListenerDead is returned by a killed LocalListener.
var ErrListenerDead = errors.New("listener is dead")

// LocalListener is an in-process invoker.Listener.
type LocalListener struct {
	id callback.ListenerID

	mu         sync.Mutex
	dead       bool
	recipients []invoker.DeathRecipient
	received   []invoker.ListenerStats
	onDeliver  func(invoker.ListenerStats)
}

// LocalOption configures a LocalListener.
type LocalOption func(*LocalListener)

// WithDeliveryHook calls fn with every notification the listener accepts,
// in delivery order, while the listener's lock is held. fn must not call
// back into the listener.
func WithDeliveryHook(fn func(invoker.ListenerStats)) LocalOption {
	return func(l *LocalListener) {
		l.onDeliver = fn
	}
}

var _ invoker.Listener = (*LocalListener)(nil)

// NewLocalListener creates a live listener with a fresh UUIDv7 identity.
func NewLocalListener(opts ...LocalOption) *LocalListener {
	return NewNamedListener(callback.ListenerID(uuid.Must(uuid.NewV7()).String()), opts...)
}

// NewNamedListener creates a live listener with the given identity.
func NewNamedListener(id callback.ListenerID, opts ...LocalOption) *LocalListener {
	l := &LocalListener{id: id}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ID returns the listener's identity.
func (l *LocalListener) ID() callback.ListenerID {
	return l.id
}

// OnTransactionCompleted records stats. Returns ErrListenerDead once the
// listener has been killed.
func (l *LocalListener) OnTransactionCompleted(_ context.Context, stats invoker.ListenerStats) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dead {
		return fmt.Errorf("deliver to %s: %w", l.id, ErrListenerDead)
	}
	l.received = append(l.received, stats)
	if l.onDeliver != nil {
		l.onDeliver(stats)
	}
	return nil
}

// LinkToDeath subscribes r. Linking to a dead listener fails.
func (l *LocalListener) LinkToDeath(r invoker.DeathRecipient) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dead {
		return fmt.Errorf("link to %s: %w", l.id, ErrListenerDead)
	}
	l.recipients = append(l.recipients, r)
	return nil
}

// UnlinkToDeath removes one subscription of r, if present.
func (l *LocalListener) UnlinkToDeath(r invoker.DeathRecipient) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := slices.Index(l.recipients, r); i >= 0 {
		l.recipients = slices.Delete(l.recipients, i, i+1)
	}
}

// IsAlive reports whether Kill has not yet been called.
func (l *LocalListener) IsAlive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.dead
}

// Kill marks the listener dead and notifies every linked recipient. The
// recipients are called without holding the listener's lock. Killing a
// dead listener does nothing.
func (l *LocalListener) Kill() {
	l.mu.Lock()
	if l.dead {
		l.mu.Unlock()
		return
	}
	l.dead = true
	recipients := l.recipients
	l.recipients = nil
	l.mu.Unlock()

	for _, r := range recipients {
		r.ListenerDied(l.id)
	}
}

// Received returns a copy of every notification delivered so far, oldest
// first.
func (l *LocalListener) Received() []invoker.ListenerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.received)
}

// Linked returns the number of active death subscriptions.
func (l *LocalListener) Linked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recipients)
}
