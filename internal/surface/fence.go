package surface

import "sync/atomic"

// SignalTimePending is the signal time of a fence that has not fired yet.
const SignalTimePending int64 = -1

// Fence is a synchronization point produced by the rendering pipeline. It
// signals once, recording the time (nanoseconds) at which it fired.
type Fence struct {
	name       string
	signalTime atomic.Int64
}

// NewFence creates an unsignaled fence.
func NewFence(name string) *Fence {
	f := &Fence{name: name}
	f.signalTime.Store(SignalTimePending)
	return f
}

// NewSignaledFence creates a fence that has already fired at t.
func NewSignaledFence(name string, t int64) *Fence {
	f := &Fence{name: name}
	f.signalTime.Store(t)
	return f
}

// Name returns the fence's debug name. Nil-safe.
func (f *Fence) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

// Signal fires the fence at t. Later calls are ignored.
func (f *Fence) Signal(t int64) {
	f.signalTime.CompareAndSwap(SignalTimePending, t)
}

// SignalTime returns when the fence fired, or SignalTimePending.
// A nil fence reports SignalTimePending.
func (f *Fence) SignalTime() int64 {
	if f == nil {
		return SignalTimePending
	}
	return f.signalTime.Load()
}

// Snapshot returns a detached copy frozen at the fence's current state.
// Nil-safe.
func (f *Fence) Snapshot() *Fence {
	if f == nil {
		return nil
	}
	return NewSignaledFence(f.name, f.signalTime.Load())
}
