package invoker

import (
	"context"
	"errors"

	"github.com/roach88/txcomplete/internal/callback"
)

// SendCallbacks delivers every batch that has become deliverable.
//
// For each listener, batches are taken oldest first up to (not including)
// the first one that is still registering, still has pending handles, or
// is latched, present-gated and no present fence is set. The taken batches
// leave the ledger before the listener is called and go out in a single
// notification. A listener left without batches is unlinked and forgotten.
// A listener found dead loses every batch it had, without notification.
//
// The present fence is cleared when the sweep ends. SendCallbacks is
// idempotent and safe to call speculatively.
//
// Delivery failures are returned joined; they never restore ledger state.
func (inv *Invoker) SendCallbacks(ctx context.Context) error {
	var (
		audit auditLog
		errs  []error
	)

	inv.mu.Lock()
	for _, ll := range inv.ledger.listeners() {
		n := inv.deliverablePrefixLocked(ll)
		if n == 0 {
			continue
		}

		id := ll.listener.ID()
		taken := ll.popFront(n)
		bundle := ListenerStats{
			Listener:         id,
			TransactionStats: make([]TransactionStats, len(taken)),
		}
		for i, ts := range taken {
			bundle.TransactionStats[i] = *ts
		}

		if !ll.listener.IsAlive() {
			dropped := n + inv.ledger.remove(id)
			inv.pending.dropListener(id)
			inv.logger.Info("listener dead, dropping batches",
				"listener", id, "batches", dropped)
			inv.metrics.ObserveDroppedBatches(dropped)
			audit.events = append(audit.events, ListenerEvent{
				Seq:            inv.seq.Next(),
				Listener:       id,
				Kind:           EventDropped,
				DroppedBatches: dropped,
			})
			continue
		}

		rec := DeliveryRecord{
			ID:       inv.idGen.Generate(),
			Seq:      inv.seq.Next(),
			Listener: id,
			Stats:    bundle,
			Status:   DeliveryDelivered,
		}
		if err := ll.listener.OnTransactionCompleted(ctx, bundle); err != nil {
			inv.logger.Warn("transaction completed notification failed",
				"listener", id, "batches", n, "error", err)
			inv.metrics.ObserveError(string(ErrCodeListenerUnreachable))
			rec.Status = DeliveryFailed
			rec.Error = err.Error()
			errs = append(errs, newListenerUnreachableError(id, err))
		} else {
			inv.logger.Debug("transaction completed notification sent",
				"listener", id, "batches", n)
		}
		inv.metrics.ObserveDelivery(n, rec.Status == DeliveryDelivered)
		audit.deliveries = append(audit.deliveries, rec)

		if len(ll.entries) == 0 {
			ll.listener.UnlinkToDeath(inv)
			inv.ledger.remove(id)
			audit.events = append(audit.events, ListenerEvent{
				Seq:      inv.seq.Next(),
				Listener: id,
				Kind:     EventUnlinked,
			})
		}
	}

	inv.presentFence = nil
	inv.metrics.SetLedgerListeners(inv.ledger.len())
	inv.metrics.SetPendingHandles(inv.pending.total)
	inv.mu.Unlock()

	inv.flush(ctx, &audit)
	return errors.Join(errs...)
}

// deliverablePrefixLocked returns how many of ll's oldest batches are
// deliverable, attaching the present fence to the gated ones.
func (inv *Invoker) deliverablePrefixLocked(ll *listenerLedger) int {
	id := ll.listener.ID()
	for i, ts := range ll.entries {
		// A registering batch may still gain surfaces or pending handles.
		if inv.isRegisteringLocked(id, ts.CallbackIDs) {
			return i
		}

		// Batches of one listener go out in order; an unresolved one
		// holds back everything behind it.
		if inv.pending.has(id, ts.CallbackIDs) {
			return i
		}

		if ts.Latched() && !ts.CallbackIDs.IsCommit() {
			if inv.presentFence == nil {
				return i
			}
			ts.PresentFence = inv.presentFence
		}
	}
	return len(ll.entries)
}

// ListenerDied implements DeathRecipient. Every batch of the listener is
// dropped without notification, along with its pending handles.
// Registration marks are kept so the producer's EndRegistration calls
// still pair up.
func (inv *Invoker) ListenerDied(id callback.ListenerID) {
	inv.mu.Lock()
	dropped := inv.ledger.remove(id)
	inv.pending.dropListener(id)
	inv.metrics.SetLedgerListeners(inv.ledger.len())
	inv.metrics.SetPendingHandles(inv.pending.total)
	ev := ListenerEvent{
		Seq:            inv.seq.Next(),
		Listener:       id,
		Kind:           EventDied,
		DroppedBatches: dropped,
	}
	inv.mu.Unlock()

	inv.logger.Info("listener died", "listener", id, "dropped_batches", dropped)
	inv.metrics.ObserveListenerDeath()
	if dropped > 0 {
		inv.metrics.ObserveDroppedBatches(dropped)
	}
	inv.flush(context.Background(), &auditLog{events: []ListenerEvent{ev}})
}
