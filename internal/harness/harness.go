package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
	"github.com/roach88/txcomplete/internal/surface"
	"github.com/roach88/txcomplete/internal/transport"
)

// Options configures a run. The zero value runs silently with no audit
// log and synchronous delivery.
type Options struct {
	Logger    *slog.Logger
	Recorder  invoker.Recorder
	Metrics   invoker.Metrics
	Sequencer *callback.Sequencer

	// IDGenerator defaults to a FixedGenerator prefixed with the
	// scenario name.
	IDGenerator invoker.IDGenerator

	// Async routes every listener through a transport.QueuedListener,
	// flushed after each send step.
	Async          bool
	QueueWarnDepth int
}

// Harness executes one scenario.
type Harness struct {
	inv       *invoker.Invoker
	logger    *slog.Logger
	listeners map[string]*transport.LocalListener
	targets   map[string]invoker.Listener
	queued    []*transport.QueuedListener
	surfaces  map[string]*surface.Surface
	handles   map[string]*invoker.CallbackHandle
	result    *Result

	// Index and op of the running step, stamped on trace events.
	step int
	op   string
}

// Run executes scenario against a fresh invoker and evaluates its
// assertions. An error means the run itself could not proceed; scenario
// failures are reported through Result.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	h, err := newHarness(scenario, opts)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		h.step, h.op = i, step.Op
		if err := h.execute(ctx, step); err != nil {
			h.logger.Debug("step failed", "step", i, "op", step.Op, "error", err)
			h.result.Trace = append(h.result.Trace, TraceEvent{
				Type:    EventError,
				Step:    i,
				Op:      step.Op,
				Code:    invoker.CodeOf(err),
				Message: err.Error(),
			})
		}
	}

	if err := h.inv.Close(); err != nil {
		return nil, fmt.Errorf("close invoker: %w", err)
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func newHarness(scenario *Scenario, opts Options) (*Harness, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = invoker.NewFixedGenerator(scenario.Name)
	}

	invOpts := []invoker.Option{
		invoker.WithLogger(logger),
		invoker.WithIDGenerator(idGen),
	}
	if opts.Recorder != nil {
		invOpts = append(invOpts, invoker.WithRecorder(opts.Recorder))
	}
	if opts.Metrics != nil {
		invOpts = append(invOpts, invoker.WithMetrics(opts.Metrics))
	}
	if opts.Sequencer != nil {
		invOpts = append(invOpts, invoker.WithSequencer(opts.Sequencer))
	}

	h := &Harness{
		inv:       invoker.New(invOpts...),
		logger:    logger,
		listeners: make(map[string]*transport.LocalListener, len(scenario.Listeners)),
		targets:   make(map[string]invoker.Listener, len(scenario.Listeners)),
		surfaces:  make(map[string]*surface.Surface, len(scenario.Surfaces)),
		handles:   make(map[string]*invoker.CallbackHandle, len(scenario.Handles)),
		result:    NewResult(),
	}

	for _, name := range scenario.Listeners {
		l := transport.NewNamedListener(callback.ListenerID(name), transport.WithDeliveryHook(h.observe))
		h.listeners[name] = l
		h.targets[name] = l
		if opts.Async {
			q := transport.NewQueuedListener(l,
				transport.WithQueueLogger(logger),
				transport.WithWarnDepth(opts.QueueWarnDepth),
			)
			h.queued = append(h.queued, q)
			h.targets[name] = q
		}
	}

	for _, name := range scenario.Surfaces {
		h.surfaces[name] = surface.New(name)
	}

	for name, spec := range scenario.Handles {
		handle, err := h.buildHandle(spec)
		if err != nil {
			return nil, fmt.Errorf("handle %s: %w", name, err)
		}
		h.handles[name] = handle
	}

	return h, nil
}

func (h *Harness) buildHandle(spec HandleSpec) (*invoker.CallbackHandle, error) {
	ids, err := callback.ParseIDs(spec.IDs)
	if err != nil {
		return nil, err
	}

	// A missing surface yields a nil *Surface and so a Ref that never
	// promotes.
	handle := invoker.NewCallbackHandle(h.targets[spec.Listener], ids, h.surfaces[spec.Surface])
	if spec.LatchNs != nil {
		handle.LatchTimeNs = *spec.LatchNs
	}
	handle.AcquireTimeNs = spec.AcquireNs
	handle.FrameNumber = spec.FrameNumber
	handle.TransformHint = spec.TransformHint
	handle.CurrentMaxAcquiredBufferCount = spec.MaxAcquiredBufferCount
	handle.PreviousReleaseFence = spec.PreviousReleaseFence.build()
	handle.GPUCompositionDoneFence = spec.GPUCompositionFence.build()
	handle.PreviousReleaseCallbackID = surface.ReleaseCallbackID{
		BufferID:    spec.PreviousReleaseBuffer,
		FrameNumber: spec.FrameNumber,
	}
	return handle, nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.Op {
	case OpStart:
		b, err := h.batch(step)
		if err != nil {
			return err
		}
		return h.inv.StartRegistration(b)
	case OpEnd:
		b, err := h.batch(step)
		if err != nil {
			return err
		}
		return h.inv.EndRegistration(b)
	case OpPending:
		return h.inv.RegisterPendingHandle(h.handles[step.Handle])
	case OpUnpresented:
		return h.inv.RegisterUnpresentedHandle(h.handles[step.Handle])
	case OpFinalizeCommit:
		_, err := h.inv.FinalizeOnCommitHandles(h.handleList(step.Handles))
		return err
	case OpFinalizePresent:
		return h.inv.FinalizePendingHandles(h.handleList(step.Handles), step.Jank)
	case OpPresentFence:
		h.inv.AddPresentFence(step.Fence.build())
		return nil
	case OpSend:
		err := h.inv.SendCallbacks(ctx)
		for _, q := range h.queued {
			q.Flush(ctx)
		}
		return err
	case OpKill:
		h.listeners[step.Listener].Kill()
		return nil
	case OpDestroy:
		h.surfaces[step.Surface].Destroy()
		return nil
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) batch(step Step) (invoker.Batch, error) {
	ids, err := callback.ParseIDs(step.IDs)
	if err != nil {
		return invoker.Batch{}, err
	}
	return invoker.Batch{Listener: h.targets[step.Listener], CallbackIDs: ids}, nil
}

func (h *Harness) handleList(names []string) []*invoker.CallbackHandle {
	out := make([]*invoker.CallbackHandle, len(names))
	for i, name := range names {
		out[i] = h.handles[name]
	}
	return out
}

// observe is the delivery hook of every LocalListener.
func (h *Harness) observe(stats invoker.ListenerStats) {
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Type:     EventNotification,
		Step:     h.step,
		Op:       h.op,
		Listener: stats.Listener,
		Stats:    stats,
		Summary:  stats.Summary(),
	})
}
