// Package invoker coordinates transaction completion callbacks.
//
// Clients submit transactions tagged with callback IDs. The application
// pipeline registers each transaction's batch here, emits one completion
// handle per affected surface, and the presentation pipeline supplies a
// present fence once the frame is on screen. The Invoker reconciles those
// signals and notifies every listener, exactly once per batch and strictly
// in registration order, when its batches are complete.
//
// # Batch Lifecycle
//
//	Registering --EndRegistration--> Accumulating --(no pending handles,
//	fence or commit-only)--> Deliverable --SendCallbacks--> Delivered
//
// A batch is Deliverable once it is no longer registering, has no
// outstanding pending handles, and is either commit-only, never latched, or
// a present fence has been supplied for the current cycle.
//
// # Ordering
//
// SendCallbacks scans each listener's batches oldest first and stops at the
// first batch that is not Deliverable. Everything before that point goes
// out in one notification. A listener therefore never sees batch N before
// batch N-1, even if N resolved first. Across listeners there is no
// ordering.
//
// # Concurrency
//
// One mutex guards the registration set, the ledger, the pending counters
// and the present fence. Listener delivery happens with the mutex held so
// that a listener's notifications cannot interleave with mutation of its
// queue. A slow listener therefore stalls producers; wrap it in
// transport.QueuedListener to deliver off the lock.
//
// Listener implementations must not call back into the Invoker from
// OnTransactionCompleted, LinkToDeath or UnlinkToDeath. Death notifications
// (ListenerDied) take the same mutex and may arrive from any goroutine.
//
// Audit records are handed to the Recorder after the mutex is released.
package invoker
