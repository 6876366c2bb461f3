package invoker

import (
	"slices"

	"github.com/roach88/txcomplete/internal/callback"
)

// listenerLedger holds one listener's batches in registration order.
type listenerLedger struct {
	listener Listener
	entries  []*TransactionStats
}

// ledger maps listeners to their in-flight batches. Listeners are kept in
// first-registration order so sweeps are deterministic.
type ledger struct {
	order []callback.ListenerID
	byID  map[callback.ListenerID]*listenerLedger
}

func newLedger() *ledger {
	return &ledger{byID: make(map[callback.ListenerID]*listenerLedger)}
}

func (l *ledger) get(id callback.ListenerID) *listenerLedger {
	return l.byID[id]
}

// append adds a batch slot for listener, creating its record if needed.
func (l *ledger) append(listener Listener, ids callback.IDs) *TransactionStats {
	id := listener.ID()
	ll := l.byID[id]
	if ll == nil {
		ll = &listenerLedger{listener: listener}
		l.byID[id] = ll
		l.order = append(l.order, id)
	}
	ts := newTransactionStats(ids)
	ll.entries = append(ll.entries, ts)
	return ts
}

// find searches back to front because the most recent batches are at the
// back. Matching compares leading sequence numbers only.
func (l *ledger) find(id callback.ListenerID, ids callback.IDs) *TransactionStats {
	ll := l.byID[id]
	if ll == nil {
		return nil
	}
	for i := len(ll.entries) - 1; i >= 0; i-- {
		if ll.entries[i].CallbackIDs.Compare(ids) == 0 {
			return ll.entries[i]
		}
	}
	return nil
}

// remove drops the listener's record and returns how many batches it held.
func (l *ledger) remove(id callback.ListenerID) int {
	ll := l.byID[id]
	if ll == nil {
		return 0
	}
	delete(l.byID, id)
	if i := slices.Index(l.order, id); i >= 0 {
		l.order = slices.Delete(l.order, i, i+1)
	}
	return len(ll.entries)
}

// listeners returns the records in first-registration order. The slice is
// a snapshot; callers may remove records while iterating it.
func (l *ledger) listeners() []*listenerLedger {
	out := make([]*listenerLedger, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

func (l *ledger) len() int {
	return len(l.byID)
}

// popFront removes the first n batches of ll and returns them.
func (ll *listenerLedger) popFront(n int) []*TransactionStats {
	out := slices.Clone(ll.entries[:n])
	clear(ll.entries[:n])
	ll.entries = ll.entries[n:]
	if len(ll.entries) == 0 {
		ll.entries = nil
	}
	return out
}
