// Package surface holds the per-surface telemetry that rides along with a
// completed transaction: fences, frame event timings, jank samples, and the
// weak back-reference to the surface itself.
//
// Surfaces are owned by their client and may be destroyed at any moment.
// Completion bookkeeping only ever holds a Ref, resolved with Promote at the
// point the stats are merged. A failed promotion means the surface is gone
// and its stats are omitted.
package surface
