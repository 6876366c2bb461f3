package invoker

import (
	"context"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/surface"
)

// NotLatched is the latch time of a batch no handle has been merged into.
const NotLatched int64 = -1

// Listener is a remote callback target.
//
// Implementations must be safe for concurrent use and must not call back
// into the Invoker from any of these methods.
type Listener interface {
	// ID returns the listener's identity. Equal IDs are the same listener.
	ID() callback.ListenerID

	// OnTransactionCompleted delivers one notification carrying one or
	// more completed batches, oldest first.
	OnTransactionCompleted(ctx context.Context, stats ListenerStats) error

	// LinkToDeath subscribes r to this listener's death.
	LinkToDeath(r DeathRecipient) error

	// UnlinkToDeath cancels a LinkToDeath subscription.
	UnlinkToDeath(r DeathRecipient)

	// IsAlive reports whether the listener can still be reached.
	IsAlive() bool
}

// DeathRecipient is notified when a linked listener dies.
type DeathRecipient interface {
	ListenerDied(id callback.ListenerID)
}

// Batch names one transaction's callbacks for one listener.
type Batch struct {
	Listener    Listener
	CallbackIDs callback.IDs
}

// Identity returns the listener-independent identity of the batch.
func (b Batch) Identity() callback.ListenerCallbacks {
	return callback.ListenerCallbacks{Listener: b.Listener.ID(), CallbackIDs: b.CallbackIDs}
}

// CallbackHandle is produced by the application pipeline, one per affected
// surface per transaction, and consumed by exactly one finalize call.
type CallbackHandle struct {
	Listener    Listener
	CallbackIDs callback.IDs
	Surface     surface.Ref

	LatchTimeNs                   int64
	AcquireTimeNs                 int64
	PreviousReleaseFence          *surface.Fence
	TransformHint                 uint32
	CurrentMaxAcquiredBufferCount uint32
	FrameNumber                   uint64
	GPUCompositionDoneFence       *surface.Fence
	CompositorTiming              surface.CompositorTiming
	RefreshStartTimeNs            int64
	DequeueReadyTimeNs            int64
	PreviousReleaseCallbackID     surface.ReleaseCallbackID
}

// NewCallbackHandle creates a handle for surface s. Only a weak reference
// to s is kept.
func NewCallbackHandle(l Listener, ids callback.IDs, s *surface.Surface) *CallbackHandle {
	return &CallbackHandle{
		Listener:    l,
		CallbackIDs: ids,
		Surface:     surface.WeakRef(s),
		LatchTimeNs: NotLatched,
	}
}

func (h *CallbackHandle) listenerID() callback.ListenerID {
	return h.Listener.ID()
}

// TransactionStats is the ledger entry for one registered batch.
type TransactionStats struct {
	CallbackIDs  callback.IDs
	LatchTimeNs  int64
	PresentFence *surface.Fence
	SurfaceStats []surface.Stats
}

func newTransactionStats(ids callback.IDs) *TransactionStats {
	return &TransactionStats{
		CallbackIDs: ids.Clone(),
		LatchTimeNs: NotLatched,
	}
}

// Latched reports whether any handle has been merged.
func (ts *TransactionStats) Latched() bool {
	return ts.LatchTimeNs >= 0
}

// ListenerStats is one outbound notification: every batch delivered to a
// listener by one SendCallbacks sweep, oldest first.
type ListenerStats struct {
	Listener         callback.ListenerID
	TransactionStats []TransactionStats
}
