package invoker

import "github.com/roach88/txcomplete/internal/surface"

// Summary renders the notification as plain values (strings, int64, bool,
// []any, map[string]any) suitable for canonical JSON. Absent fences are
// omitted rather than rendered as null.
func (ls ListenerStats) Summary() map[string]any {
	batches := make([]any, len(ls.TransactionStats))
	for i, ts := range ls.TransactionStats {
		batches[i] = ts.Summary()
	}
	return map[string]any{
		"listener": string(ls.Listener),
		"batches":  batches,
	}
}

// Summary renders one batch. See ListenerStats.Summary.
func (ts TransactionStats) Summary() map[string]any {
	ids := make([]any, len(ts.CallbackIDs))
	for i, id := range ts.CallbackIDs {
		ids[i] = id.String()
	}
	surfaces := make([]any, len(ts.SurfaceStats))
	for i, ss := range ts.SurfaceStats {
		surfaces[i] = surfaceSummary(ss)
	}

	m := map[string]any{
		"callback_ids":  ids,
		"latch_time_ns": ts.LatchTimeNs,
		"surfaces":      surfaces,
	}
	if ts.PresentFence != nil {
		m["present_fence"] = fenceSummary(ts.PresentFence)
	}
	return m
}

func surfaceSummary(ss surface.Stats) map[string]any {
	m := map[string]any{
		"surface":                    ss.Surface.Name(),
		"acquire_time_ns":            ss.AcquireTimeNs,
		"transform_hint":             int64(ss.TransformHint),
		"max_acquired_buffer_count":  int64(ss.CurrentMaxAcquiredBufferCount),
		"frame_number":               int64(ss.EventStats.FrameNumber),
		"jank_frames":                int64(len(ss.JankData)),
		"previous_release_buffer_id": int64(ss.PreviousReleaseCallbackID.BufferID),
	}
	if ss.PreviousReleaseFence != nil {
		m["previous_release_fence"] = fenceSummary(ss.PreviousReleaseFence)
	}
	if ss.EventStats.GPUCompositionDoneFence != nil {
		m["gpu_composition_done_fence"] = fenceSummary(ss.EventStats.GPUCompositionDoneFence)
	}
	return m
}

func fenceSummary(f *surface.Fence) map[string]any {
	return map[string]any{
		"name":           f.Name(),
		"signal_time_ns": f.SignalTime(),
	}
}
