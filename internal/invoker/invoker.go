package invoker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/surface"
)

// Invoker is the completion-callback coordinator.
//
// Thread-safety: every exported method is safe for concurrent use.
//
// INVARIANTS:
//   - Each listener's batches stay in registration order, oldest first
//   - A listener is linked for death at most once, while it has ledger entries
//   - Pending counts are positive; an entry at zero is removed
//   - The present fence is cleared at the end of every SendCallbacks sweep
type Invoker struct {
	mu           sync.Mutex
	registering  *registrationTracker
	ledger       *ledger
	pending      *pendingCounter
	presentFence *surface.Fence
	closed       bool

	logger   *slog.Logger
	recorder Recorder
	metrics  Metrics
	idGen    IDGenerator
	seq      *callback.Sequencer // audit record ordering
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(inv *Invoker) {
		inv.logger = l
	}
}

// WithRecorder sets the audit recorder. Default: none.
func WithRecorder(r Recorder) Option {
	return func(inv *Invoker) {
		inv.recorder = r
	}
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m Metrics) Option {
	return func(inv *Invoker) {
		inv.metrics = m
	}
}

// WithIDGenerator sets the delivery record ID generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(inv *Invoker) {
		inv.idGen = g
	}
}

// WithSequencer sets the sequencer stamping audit records. Use
// callback.NewSequencerAt to resume after an existing audit log.
func WithSequencer(s *callback.Sequencer) Option {
	return func(inv *Invoker) {
		inv.seq = s
	}
}

// New creates an Invoker.
func New(opts ...Option) *Invoker {
	inv := &Invoker{
		registering: newRegistrationTracker(),
		ledger:      newLedger(),
		pending:     newPendingCounter(),
		logger:      slog.Default(),
		recorder:    noopRecorder{},
		metrics:     noopMetrics{},
		idGen:       UUIDv7Generator{},
		seq:         callback.NewSequencer(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// StartRegistration marks b as registering and reserves its ledger slot.
//
// The first registration of a listener with no ledger entries links it for
// death notification; if linking fails, nothing is recorded and an
// ErrCodeDeathSubscriptionFailed error is returned. Starting a batch that
// is already registering is a no-op.
func (inv *Invoker) StartRegistration(b Batch) error {
	id := b.Listener.ID()

	inv.mu.Lock()
	if inv.closed {
		inv.mu.Unlock()
		return errClosed
	}

	key := b.Identity().Key()
	if inv.registering.contains(key) {
		inv.mu.Unlock()
		return nil
	}

	var audit auditLog
	if inv.ledger.get(id) == nil {
		if err := b.Listener.LinkToDeath(inv); err != nil {
			inv.mu.Unlock()
			inv.logger.Error("cannot add callback because linkToDeath failed",
				"listener", id, "error", err)
			inv.metrics.ObserveError(string(ErrCodeDeathSubscriptionFailed))
			return newDeathSubscriptionError(id, b.CallbackIDs, err)
		}
		audit.events = append(audit.events, ListenerEvent{
			Seq:      inv.seq.Next(),
			Listener: id,
			Kind:     EventLinked,
		})
	}

	inv.registering.begin(key)
	inv.ledger.append(b.Listener, b.CallbackIDs)
	inv.metrics.SetLedgerListeners(inv.ledger.len())
	inv.mu.Unlock()

	inv.metrics.ObserveRegistration()
	inv.flush(context.Background(), &audit)
	return nil
}

// EndRegistration declares that every surface and pending handle of b has
// been recorded. Returns ErrCodeUnknownRegistrationEnd if b is not
// registering.
func (inv *Invoker) EndRegistration(b Batch) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.closed {
		return errClosed
	}
	if !inv.registering.end(b.Identity().Key()) {
		inv.logger.Error("cannot end a registration that does not exist",
			"listener", b.Listener.ID(), "ids", b.CallbackIDs.Key())
		inv.metrics.ObserveError(string(ErrCodeUnknownRegistrationEnd))
		return newUnknownRegistrationEndError(b.Listener.ID(), b.CallbackIDs)
	}
	return nil
}

// IsRegistering reports whether the batch is between StartRegistration
// and EndRegistration.
func (inv *Invoker) IsRegistering(listener callback.ListenerID, ids callback.IDs) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.isRegisteringLocked(listener, ids)
}

func (inv *Invoker) isRegisteringLocked(listener callback.ListenerID, ids callback.IDs) bool {
	return inv.registering.contains(callback.ListenerCallbacks{Listener: listener, CallbackIDs: ids}.Key())
}

// RegisterPendingHandle counts h as outstanding for its batch. The batch
// stays undeliverable until a finalize call consumes h. Returns
// ErrCodeNotRegistered if the batch has no ledger entry.
func (inv *Invoker) RegisterPendingHandle(h *CallbackHandle) error {
	id := h.listenerID()

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.closed {
		return errClosed
	}
	if inv.ledger.find(id, h.CallbackIDs) == nil {
		inv.logger.Error("cannot find transaction stats",
			"listener", id, "ids", h.CallbackIDs.Key())
		inv.metrics.ObserveError(string(ErrCodeNotRegistered))
		return newNotRegisteredError(id, h.CallbackIDs)
	}

	inv.pending.add(id, h.CallbackIDs)
	inv.metrics.SetPendingHandles(inv.pending.total)
	return nil
}

// PendingCount returns the number of outstanding handles for the batch.
func (inv *Invoker) PendingCount(listener callback.ListenerID, ids callback.IDs) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.pending.count(listener, ids)
}

// AddPresentFence supplies the present fence for the current cycle. It is
// attached to every present-gated batch delivered by the next
// SendCallbacks, which then clears it.
func (inv *Invoker) AddPresentFence(f *surface.Fence) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.presentFence = f
}

// HasPresentFence reports whether a fence is set for the current cycle.
func (inv *Invoker) HasPresentFence() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.presentFence != nil
}

// Stats returns a copy of the ledger entries for listener, oldest first.
// It is an introspection read, not a batch lookup: nil means the listener
// holds no ledger entries, either because it never registered or because
// everything it registered has been delivered or dropped. Handle-level
// operations report unknown batches as ErrCodeNotRegistered.
func (inv *Invoker) Stats(listener callback.ListenerID) []TransactionStats {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	ll := inv.ledger.get(listener)
	if ll == nil {
		return nil
	}
	out := make([]TransactionStats, len(ll.entries))
	for i, ts := range ll.entries {
		out[i] = ts.clone()
	}
	return out
}

// Listeners returns the IDs of listeners with ledger entries, in first
// registration order.
func (inv *Invoker) Listeners() []callback.ListenerID {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]callback.ListenerID, len(inv.ledger.order))
	copy(out, inv.ledger.order)
	return out
}

// Close releases the death subscription of every listener that still has
// ledger entries. Later mutating calls return ErrCodeClosed.
func (inv *Invoker) Close() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.closed {
		return nil
	}
	inv.closed = true
	for _, ll := range inv.ledger.listeners() {
		ll.listener.UnlinkToDeath(inv)
	}
	return nil
}

// flush hands accumulated audit records to the recorder. Must be called
// without the lock held.
func (inv *Invoker) flush(ctx context.Context, audit *auditLog) {
	if audit.empty() {
		return
	}
	for _, ev := range audit.events {
		if err := inv.recorder.RecordListenerEvent(ctx, ev); err != nil {
			inv.logger.Warn("failed to record listener event",
				"listener", ev.Listener, "kind", ev.Kind, "error", err)
		}
	}
	for _, rec := range audit.deliveries {
		if err := inv.recorder.RecordDelivery(ctx, rec); err != nil {
			inv.logger.Warn("failed to record delivery",
				"listener", rec.Listener, "id", rec.ID, "error", err)
		}
	}
}

func (ts *TransactionStats) clone() TransactionStats {
	out := TransactionStats{
		CallbackIDs:  ts.CallbackIDs.Clone(),
		LatchTimeNs:  ts.LatchTimeNs,
		PresentFence: ts.PresentFence,
	}
	if ts.SurfaceStats != nil {
		out.SurfaceStats = make([]surface.Stats, len(ts.SurfaceStats))
		copy(out.SurfaceStats, ts.SurfaceStats)
	}
	return out
}
