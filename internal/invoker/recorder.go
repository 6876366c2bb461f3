package invoker

import (
	"context"

	"github.com/roach88/txcomplete/internal/callback"
)

// DeliveryStatus is the outcome of one notification attempt.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryRecord describes one notification attempt.
type DeliveryRecord struct {
	ID       string
	Seq      int64
	Listener callback.ListenerID
	Stats    ListenerStats
	Status   DeliveryStatus
	Error    string
}

// ListenerEventKind names a listener lifecycle transition.
type ListenerEventKind string

const (
	// EventLinked: first batch registered, death subscription taken.
	EventLinked ListenerEventKind = "linked"
	// EventUnlinked: last batch delivered, death subscription released.
	EventUnlinked ListenerEventKind = "unlinked"
	// EventDied: death notification received.
	EventDied ListenerEventKind = "died"
	// EventDropped: found dead during a sweep.
	EventDropped ListenerEventKind = "dropped"
)

// ListenerEvent describes one listener lifecycle transition.
type ListenerEvent struct {
	Seq            int64
	Listener       callback.ListenerID
	Kind           ListenerEventKind
	DroppedBatches int
}

// Recorder receives audit records. Calls happen after the invoker's lock
// is released; failures are logged and otherwise ignored.
type Recorder interface {
	RecordDelivery(ctx context.Context, rec DeliveryRecord) error
	RecordListenerEvent(ctx context.Context, ev ListenerEvent) error
}

type noopRecorder struct{}

func (noopRecorder) RecordDelivery(context.Context, DeliveryRecord) error { return nil }
func (noopRecorder) RecordListenerEvent(context.Context, ListenerEvent) error { return nil }

// auditLog accumulates records under the lock for a later flush.
type auditLog struct {
	deliveries []DeliveryRecord
	events     []ListenerEvent
}

func (a *auditLog) empty() bool {
	return a == nil || (len(a.deliveries) == 0 && len(a.events) == 0)
}
