package invoker

import "github.com/roach88/txcomplete/internal/callback"

// registrationTracker holds the batches whose producer has not yet called
// EndRegistration. A registering batch may still gain surfaces or pending
// handles, so it is never delivered.
type registrationTracker struct {
	inProgress map[callback.BatchKey]struct{}
}

func newRegistrationTracker() *registrationTracker {
	return &registrationTracker{inProgress: make(map[callback.BatchKey]struct{})}
}

// begin marks key in progress. Returns false if it already was.
func (r *registrationTracker) begin(key callback.BatchKey) bool {
	if _, ok := r.inProgress[key]; ok {
		return false
	}
	r.inProgress[key] = struct{}{}
	return true
}

// end clears the mark. Returns false if key was not in progress.
func (r *registrationTracker) end(key callback.BatchKey) bool {
	if _, ok := r.inProgress[key]; !ok {
		return false
	}
	delete(r.inProgress, key)
	return true
}

func (r *registrationTracker) contains(key callback.BatchKey) bool {
	_, ok := r.inProgress[key]
	return ok
}

func (r *registrationTracker) len() int {
	return len(r.inProgress)
}
