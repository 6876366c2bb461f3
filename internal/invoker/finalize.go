package invoker

import (
	"slices"

	"github.com/roach88/txcomplete/internal/surface"
)

// FinalizeOnCommitHandles consumes the handles whose batch is commit-only
// and returns the rest, untouched and in order, for FinalizePendingHandles.
//
// Processing stops at the first failing handle. Handles before it stay
// merged; remaining then also holds every handle after it.
func (inv *Invoker) FinalizeOnCommitHandles(handles []*CallbackHandle) (remaining []*CallbackHandle, err error) {
	if len(handles) == 0 {
		return nil, nil
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.closed {
		return handles, errClosed
	}

	for i, h := range handles {
		if !h.CallbackIDs.IsCommit() {
			remaining = append(remaining, h)
			continue
		}
		if err := inv.finalizeLocked(h, nil, PathCommit); err != nil {
			return append(remaining, handles[i+1:]...), err
		}
	}
	return remaining, nil
}

// FinalizePendingHandles consumes handles on the present path, attaching
// jankData to every surviving surface. Processing stops at the first
// failing handle; handles before it stay merged.
func (inv *Invoker) FinalizePendingHandles(handles []*CallbackHandle, jankData []surface.JankData) error {
	if len(handles) == 0 {
		return nil
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.closed {
		return errClosed
	}

	for _, h := range handles {
		if err := inv.finalizeLocked(h, jankData, PathPresent); err != nil {
			return err
		}
	}
	return nil
}

// RegisterUnpresentedHandle merges a handle that will never be presented.
// It bypasses the pending counter and carries no jank data.
func (inv *Invoker) RegisterUnpresentedHandle(h *CallbackHandle) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.closed {
		return errClosed
	}

	ts, err := inv.lookupLocked(h)
	if err != nil {
		return err
	}
	inv.metrics.ObserveFinalize(PathUnpresented, inv.merge(ts, h, nil))
	return nil
}

// finalizeLocked resolves one pending handle and merges h into its batch.
// The batch is looked up before anything is mutated.
func (inv *Invoker) finalizeLocked(h *CallbackHandle, jankData []surface.JankData, path string) error {
	ts, err := inv.lookupLocked(h)
	if err != nil {
		return err
	}

	id := h.listenerID()
	switch inv.pending.resolve(id, h.CallbackIDs) {
	case resolveNoBatch:
		inv.logger.Warn("there are more latched callbacks than there were registered callbacks",
			"listener", id, "ids", h.CallbackIDs.Key())
	case resolveNoListener:
		inv.logger.Warn("cannot find listener in pending transactions",
			"listener", id, "ids", h.CallbackIDs.Key())
	}
	inv.metrics.SetPendingHandles(inv.pending.total)

	inv.metrics.ObserveFinalize(path, inv.merge(ts, h, jankData))
	return nil
}

func (inv *Invoker) lookupLocked(h *CallbackHandle) (*TransactionStats, error) {
	id := h.listenerID()
	ts := inv.ledger.find(id, h.CallbackIDs)
	if ts == nil {
		inv.logger.Error("could not find transaction stats",
			"listener", id, "ids", h.CallbackIDs.Key())
		inv.metrics.ObserveError(string(ErrCodeNotRegistered))
		return nil, newNotRegisteredError(id, h.CallbackIDs)
	}
	return ts, nil
}

// merge records h's latch time in ts and, if the surface still exists,
// appends its stats. Reports whether surface stats were appended.
func (inv *Invoker) merge(ts *TransactionStats, h *CallbackHandle, jankData []surface.JankData) bool {
	ts.LatchTimeNs = h.LatchTimeNs

	// A destroyed surface means its client no longer holds it; there is
	// nobody on that side to read its stats.
	s := h.Surface.Promote()
	if s == nil {
		inv.logger.Debug("surface gone, omitting stats",
			"listener", h.listenerID(), "ids", h.CallbackIDs.Key())
		return false
	}

	ts.SurfaceStats = append(ts.SurfaceStats, surface.Stats{
		Surface:                       s,
		AcquireTimeNs:                 h.AcquireTimeNs,
		PreviousReleaseFence:          h.PreviousReleaseFence,
		TransformHint:                 h.TransformHint,
		CurrentMaxAcquiredBufferCount: h.CurrentMaxAcquiredBufferCount,
		EventStats: surface.FrameEventStats{
			FrameNumber:             h.FrameNumber,
			GPUCompositionDoneFence: h.GPUCompositionDoneFence.Snapshot(),
			CompositorTiming:        h.CompositorTiming,
			RefreshStartTimeNs:      h.RefreshStartTimeNs,
			DequeueReadyTimeNs:      h.DequeueReadyTimeNs,
		},
		JankData:                  slices.Clone(jankData),
		PreviousReleaseCallbackID: h.PreviousReleaseCallbackID,
	})
	return true
}
