package surface

// CompositorTiming describes the compositor's frame cadence at latch.
type CompositorTiming struct {
	DeadlineNs       int64 `json:"deadline_ns"`
	IntervalNs       int64 `json:"interval_ns"`
	PresentLatencyNs int64 `json:"present_latency_ns"`
}

// FrameEventStats are the frame-level timings reported for one surface.
type FrameEventStats struct {
	FrameNumber             uint64           `json:"frame_number"`
	GPUCompositionDoneFence *Fence           `json:"-"`
	CompositorTiming        CompositorTiming `json:"compositor_timing"`
	RefreshStartTimeNs      int64            `json:"refresh_start_time_ns"`
	DequeueReadyTimeNs      int64            `json:"dequeue_ready_time_ns"`
}

// JankType is a bitmask of reasons a frame missed its deadline.
type JankType uint32

const (
	JankNone                        JankType = 0
	JankDisplayHAL                  JankType = 1 << 0
	JankCompositorDeadlineMissed    JankType = 1 << 1
	JankCompositorCPUDeadlineMissed JankType = 1 << 2
	JankAppDeadlineMissed           JankType = 1 << 3
	JankPredictionError             JankType = 1 << 4
	JankSchedulingError             JankType = 1 << 5
	JankBufferStuffing              JankType = 1 << 6
	JankUnknown                     JankType = 1 << 7
)

// JankData is one frame's jank classification, gathered on the present
// path.
type JankData struct {
	FrameVsyncID        int64    `json:"frame_vsync_id" yaml:"frame_vsync_id"`
	JankType            JankType `json:"jank_type" yaml:"jank_type"`
	FrameIntervalNs     int64    `json:"frame_interval_ns" yaml:"frame_interval_ns"`
	ScheduledAppFrameNs int64    `json:"scheduled_app_frame_ns" yaml:"scheduled_app_frame_ns"`
	ActualAppFrameNs    int64    `json:"actual_app_frame_ns" yaml:"actual_app_frame_ns"`
}

// ReleaseCallbackID names the buffer whose release the client is waiting
// on.
type ReleaseCallbackID struct {
	BufferID    uint64 `json:"buffer_id"`
	FrameNumber uint64 `json:"frame_number"`
}

// Stats is the per-surface outcome attached to a completed transaction.
type Stats struct {
	Surface                       *Surface          `json:"-"`
	AcquireTimeNs                 int64             `json:"acquire_time_ns"`
	PreviousReleaseFence          *Fence            `json:"-"`
	TransformHint                 uint32            `json:"transform_hint"`
	CurrentMaxAcquiredBufferCount uint32            `json:"current_max_acquired_buffer_count"`
	EventStats                    FrameEventStats   `json:"event_stats"`
	JankData                      []JankData        `json:"jank_data"`
	PreviousReleaseCallbackID     ReleaseCallbackID `json:"previous_release_callback_id"`
}
