package invoker

import "github.com/roach88/txcomplete/internal/callback"

// resolveOutcome says what resolve found.
type resolveOutcome int

const (
	resolvedPending resolveOutcome = iota
	resolveNoListener
	resolveNoBatch
)

// pendingCounter counts, per batch, the completion handles that have been
// registered but not yet finalized. A batch with an entry is not
// deliverable; entries are removed at zero, never left at or below it.
type pendingCounter struct {
	byListener map[callback.ListenerID]map[string]int
	total      int
}

func newPendingCounter() *pendingCounter {
	return &pendingCounter{byListener: make(map[callback.ListenerID]map[string]int)}
}

func (p *pendingCounter) add(listener callback.ListenerID, ids callback.IDs) {
	batches := p.byListener[listener]
	if batches == nil {
		batches = make(map[string]int)
		p.byListener[listener] = batches
	}
	batches[ids.Key()]++
	p.total++
}

func (p *pendingCounter) resolve(listener callback.ListenerID, ids callback.IDs) resolveOutcome {
	batches, ok := p.byListener[listener]
	if !ok {
		return resolveNoListener
	}

	outcome := resolveNoBatch
	key := ids.Key()
	if n, ok := batches[key]; ok {
		if n <= 1 {
			delete(batches, key)
		} else {
			batches[key] = n - 1
		}
		p.total--
		outcome = resolvedPending
	}

	if len(batches) == 0 {
		delete(p.byListener, listener)
	}
	return outcome
}

func (p *pendingCounter) has(listener callback.ListenerID, ids callback.IDs) bool {
	batches, ok := p.byListener[listener]
	if !ok {
		return false
	}
	_, ok = batches[ids.Key()]
	return ok
}

func (p *pendingCounter) count(listener callback.ListenerID, ids callback.IDs) int {
	return p.byListener[listener][ids.Key()]
}

// dropListener forgets every pending handle of listener and returns how
// many there were.
func (p *pendingCounter) dropListener(listener callback.ListenerID) int {
	dropped := 0
	for _, n := range p.byListener[listener] {
		dropped += n
	}
	delete(p.byListener, listener)
	p.total -= dropped
	return dropped
}
