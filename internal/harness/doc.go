// Package harness runs scripted scenarios against a fresh invoker and
// checks the notifications that come out.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: present_gating
//	description: "A latched present batch waits for the present fence"
//	listeners: [A]
//	surfaces: [s1]
//	handles:
//	  h1: { listener: A, ids: ["1p"], surface: s1, latch_ns: 100 }
//	steps:
//	  - { op: start, listener: A, ids: ["1p"] }
//	  - { op: pending, handle: h1 }
//	  - { op: end, listener: A, ids: ["1p"] }
//	  - { op: finalize_present, handles: [h1] }
//	  - { op: send }
//	  - { op: present_fence, fence: { name: F1, signal_ns: 500 } }
//	  - { op: send }
//	assertions:
//	  - { type: delivered, listener: A, ids: ["1p"] }
//	  - { type: delivery_count, listener: A, count: 1 }
//
// Callback IDs are written as "<seq>p" (present) or "<seq>c" (commit).
// Handles are created once, so the same handle can be registered as
// pending and later finalized, as the real pipeline does.
//
// # Step Operations
//
//   - start, end: StartRegistration / EndRegistration of (listener, ids)
//   - pending: RegisterPendingHandle(handle)
//   - unpresented: RegisterUnpresentedHandle(handle)
//   - finalize_commit: FinalizeOnCommitHandles(handles)
//   - finalize_present: FinalizePendingHandles(handles, jank)
//   - present_fence: AddPresentFence(fence)
//   - send: SendCallbacks
//   - kill: kill a listener (fires death notification)
//   - destroy: destroy a surface
//
// # Assertion Types
//
//   - delivered: listener received a batch with exactly these ids
//   - not_delivered: listener never received a batch with these ids
//   - delivery_count: listener received exactly count notifications
//   - error: step failed with code
//
// A step error not covered by an error assertion fails the scenario.
//
// # Determinism
//
// Each run uses a fresh invoker, a fixed delivery ID generator and a
// logical sequencer starting at zero, so traces are stable for golden
// file comparison.
package harness
