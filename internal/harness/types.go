package harness

import (
	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
)

// Trace event types.
const (
	EventNotification = "notification"
	EventError        = "error"
)

// TraceEvent is one observable outcome of a step: a notification a
// listener received, or a step error.
type TraceEvent struct {
	Type string
	Step int
	Op   string

	// Notification fields. Summary is captured at delivery time so fence
	// state cannot drift before the trace is rendered.
	Listener callback.ListenerID
	Stats    invoker.ListenerStats
	Summary  map[string]any

	// Error fields.
	Code    invoker.ErrorCode
	Message string
}

// canonical renders the event for golden comparison. Error messages are
// left out; the code identifies the failure.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"type": e.Type,
		"step": e.Step,
		"op":   e.Op,
	}
	switch e.Type {
	case EventNotification:
		for k, v := range e.Summary {
			m[k] = v
		}
	case EventError:
		m["code"] = string(e.Code)
	}
	return m
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held and no step failed unexpectedly.
	Pass bool

	// Trace holds notifications and step errors in the order they happened.
	Trace []TraceEvent

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Notifications returns every notification listener received, in order.
func (r *Result) Notifications(listener callback.ListenerID) []invoker.ListenerStats {
	var out []invoker.ListenerStats
	for _, e := range r.Trace {
		if e.Type == EventNotification && e.Listener == listener {
			out = append(out, e.Stats)
		}
	}
	return out
}

// StepErrors returns the error events, in step order.
func (r *Result) StepErrors() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventError {
			out = append(out, e)
		}
	}
	return out
}
