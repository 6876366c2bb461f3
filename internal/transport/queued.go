package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
)

// ErrQueueClosed is returned when delivering to a closed QueuedListener.
var ErrQueueClosed = errors.New("delivery queue closed")

// DefaultQueueWarnDepth is the queue length at which enqueues start
// logging warnings.
const DefaultQueueWarnDepth = 256

// QueuedListener defers delivery to an inner listener. Death linking and
// liveness pass straight through.
type QueuedListener struct {
	inner     invoker.Listener
	queue     *queue[invoker.ListenerStats]
	logger    *slog.Logger
	warnDepth int
}

var _ invoker.Listener = (*QueuedListener)(nil)

// QueueOption configures a QueuedListener.
type QueueOption func(*QueuedListener)

// WithQueueLogger sets the logger for delivery failures and depth warnings.
func WithQueueLogger(l *slog.Logger) QueueOption {
	return func(q *QueuedListener) {
		q.logger = l
	}
}

// WithWarnDepth sets the queue length that triggers a warning per enqueue.
// Values <= 0 are ignored.
func WithWarnDepth(n int) QueueOption {
	return func(q *QueuedListener) {
		if n > 0 {
			q.warnDepth = n
		}
	}
}

// NewQueuedListener wraps inner. Call Run to start delivering.
func NewQueuedListener(inner invoker.Listener, opts ...QueueOption) *QueuedListener {
	q := &QueuedListener{
		inner:     inner,
		queue:     newQueue[invoker.ListenerStats](),
		logger:    slog.Default(),
		warnDepth: DefaultQueueWarnDepth,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *QueuedListener) ID() callback.ListenerID {
	return q.inner.ID()
}

// OnTransactionCompleted enqueues stats and returns immediately.
func (q *QueuedListener) OnTransactionCompleted(_ context.Context, stats invoker.ListenerStats) error {
	n, ok := q.queue.Enqueue(stats)
	if !ok {
		return ErrQueueClosed
	}
	if n >= q.warnDepth {
		q.logger.Warn("delivery queue backing up",
			"listener", q.inner.ID(),
			"depth", n,
		)
	}
	return nil
}

func (q *QueuedListener) LinkToDeath(r invoker.DeathRecipient) error {
	return q.inner.LinkToDeath(r)
}

func (q *QueuedListener) UnlinkToDeath(r invoker.DeathRecipient) {
	q.inner.UnlinkToDeath(r)
}

func (q *QueuedListener) IsAlive() bool {
	return q.inner.IsAlive()
}

// Len returns the number of notifications waiting for delivery.
func (q *QueuedListener) Len() int {
	return q.queue.Len()
}

// Close stops accepting notifications. Run delivers what is already
// queued and then returns nil.
func (q *QueuedListener) Close() {
	q.queue.Close()
}

// Run delivers queued notifications in order until ctx is done or the
// listener is closed and drained. Delivery failures are logged and do not
// stop the loop.
func (q *QueuedListener) Run(ctx context.Context) error {
	for {
		q.drain(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-q.queue.Wait():
			if !ok {
				q.drain(ctx)
				return nil
			}
		}
	}
}

// Flush delivers everything queued so far on the calling goroutine. It is
// the synchronous alternative to Run; do not use both on one listener.
func (q *QueuedListener) Flush(ctx context.Context) {
	q.drain(ctx)
}

func (q *QueuedListener) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		stats, ok := q.queue.TryDequeue()
		if !ok {
			return
		}
		if err := q.inner.OnTransactionCompleted(ctx, stats); err != nil {
			q.logger.Error("queued delivery failed",
				"listener", q.inner.ID(),
				"batches", len(stats.TransactionStats),
				"error", err,
			)
		}
	}
}
