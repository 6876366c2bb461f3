// Package transport provides invoker.Listener implementations.
//
// LocalListener is an in-process listener: it records every notification
// it receives and supports death linking, so tests and the scenario harness
// can kill it and watch the invoker react.
//
// QueuedListener wraps another listener and moves delivery off the
// invoker's lock. OnTransactionCompleted only enqueues; Run drains the
// queue in FIFO order, so per-listener ordering is unchanged.
package transport
