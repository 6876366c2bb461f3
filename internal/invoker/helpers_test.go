package invoker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/surface"
	"github.com/roach88/txcomplete/internal/testutil"
)

// fakeListener records notifications and death subscriptions.
type fakeListener struct {
	id callback.ListenerID

	mu         sync.Mutex
	received   []ListenerStats
	recipients []DeathRecipient
	links      int
	unlinks    int
	dead       bool
	linkErr    error
	sendErr    error
}

func newFakeListener(id string) *fakeListener {
	return &fakeListener{id: callback.ListenerID(id)}
}

func (l *fakeListener) ID() callback.ListenerID { return l.id }

func (l *fakeListener) OnTransactionCompleted(_ context.Context, stats ListenerStats) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sendErr != nil {
		return l.sendErr
	}
	l.received = append(l.received, stats)
	return nil
}

func (l *fakeListener) LinkToDeath(r DeathRecipient) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.linkErr != nil {
		return l.linkErr
	}
	if l.dead {
		return errors.New("listener is dead")
	}
	l.links++
	l.recipients = append(l.recipients, r)
	return nil
}

func (l *fakeListener) UnlinkToDeath(r DeathRecipient) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlinks++
	for i, got := range l.recipients {
		if got == r {
			l.recipients = append(l.recipients[:i], l.recipients[i+1:]...)
			break
		}
	}
}

func (l *fakeListener) IsAlive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.dead
}

// kill marks the listener dead and notifies linked recipients.
func (l *fakeListener) kill() {
	l.mu.Lock()
	l.dead = true
	recipients := append([]DeathRecipient(nil), l.recipients...)
	l.recipients = nil
	l.mu.Unlock()

	for _, r := range recipients {
		r.ListenerDied(l.id)
	}
}

func (l *fakeListener) notifications() []ListenerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ListenerStats(nil), l.received...)
}

// deliveredLeads flattens every received batch to its leading sequence
// number, in delivery order.
func (l *fakeListener) deliveredLeads() []int64 {
	var out []int64
	for _, n := range l.notifications() {
		for _, ts := range n.TransactionStats {
			out = append(out, ts.CallbackIDs[0].Seq)
		}
	}
	return out
}

// memRecorder keeps audit records in memory.
type memRecorder struct {
	mu         sync.Mutex
	deliveries []DeliveryRecord
	events     []ListenerEvent
}

func (r *memRecorder) RecordDelivery(_ context.Context, rec DeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, rec)
	return nil
}

func (r *memRecorder) RecordListenerEvent(_ context.Context, ev ListenerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func newTestInvoker(t *testing.T, opts ...Option) *Invoker {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(NewFixedGenerator("delivery")),
	}
	return New(append(base, opts...)...)
}

func present(seqs ...int64) callback.IDs {
	ids := make(callback.IDs, len(seqs))
	for i, s := range seqs {
		ids[i] = callback.ID{Seq: s, Kind: callback.KindPresent}
	}
	return ids
}

func commit(seqs ...int64) callback.IDs {
	ids := make(callback.IDs, len(seqs))
	for i, s := range seqs {
		ids[i] = callback.ID{Seq: s, Kind: callback.KindCommit}
	}
	return ids
}

// pinned keeps every surface a test hands to a handle reachable.
var pinned = testutil.NewSurfaces()

func pin(s *surface.Surface) *surface.Surface {
	return pinned.Keep(s)
}

func latchedHandle(l Listener, ids callback.IDs, s *surface.Surface, latch int64) *CallbackHandle {
	h := NewCallbackHandle(l, ids, pin(s))
	h.LatchTimeNs = latch
	return h
}

// registerBatch starts and ends a registration, registering one pending
// handle per surface in between. Returns the handles.
func registerBatch(t *testing.T, inv *Invoker, l Listener, ids callback.IDs, surfaces ...*surface.Surface) []*CallbackHandle {
	t.Helper()
	b := Batch{Listener: l, CallbackIDs: ids}
	if err := inv.StartRegistration(b); err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	handles := make([]*CallbackHandle, 0, len(surfaces))
	for _, s := range surfaces {
		h := latchedHandle(l, ids, s, 100)
		if err := inv.RegisterPendingHandle(h); err != nil {
			t.Fatalf("RegisterPendingHandle: %v", err)
		}
		handles = append(handles, h)
	}
	if err := inv.EndRegistration(b); err != nil {
		t.Fatalf("EndRegistration: %v", err)
	}
	return handles
}
