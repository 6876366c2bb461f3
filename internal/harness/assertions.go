package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", describeEvent(event))
	}

	return buf.String()
}

func describeEvent(e TraceEvent) string {
	switch e.Type {
	case EventNotification:
		batches := make([]string, len(e.Stats.TransactionStats))
		for i, ts := range e.Stats.TransactionStats {
			batches[i] = "[" + ts.CallbackIDs.Key() + "]"
		}
		return fmt.Sprintf("[step %d %s] %s <- %s", e.Step, e.Op, e.Listener, strings.Join(batches, " "))
	case EventError:
		return fmt.Sprintf("[step %d %s] error %s", e.Step, e.Op, e.Message)
	default:
		return fmt.Sprintf("[step %d %s] %s", e.Step, e.Op, e.Type)
	}
}

// deliveredIDs reports whether listener received a batch with exactly ids.
func deliveredIDs(result *Result, listener callback.ListenerID, ids callback.IDs) bool {
	for _, n := range result.Notifications(listener) {
		for _, ts := range n.TransactionStats {
			if ts.CallbackIDs.Equal(ids) {
				return true
			}
		}
	}
	return false
}

func assertDelivered(result *Result, a Assertion, want bool) error {
	ids, err := callback.ParseIDs(a.IDs)
	if err != nil {
		return err
	}
	listener := callback.ListenerID(a.Listener)
	if deliveredIDs(result, listener, ids) == want {
		return nil
	}

	expected, actual := "delivered", "never delivered"
	if !want {
		expected, actual = "never delivered", "delivered"
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("batch [%s] %s to %s", ids.Key(), expected, listener),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func assertDeliveryCount(result *Result, a Assertion) error {
	got := len(result.Notifications(callback.ListenerID(a.Listener)))
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d notifications to %s", a.Count, a.Listener),
		Actual:   fmt.Sprintf("%d notifications", got),
		Trace:    result.Trace,
	}
}

func assertStepError(result *Result, a Assertion) error {
	for _, e := range result.StepErrors() {
		if e.Step != *a.Step {
			continue
		}
		if e.Code == invoker.ErrorCode(a.Code) {
			return nil
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("step %d fails with %s", *a.Step, a.Code),
			Actual:   fmt.Sprintf("failed with %s", e.Code),
			Trace:    result.Trace,
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("step %d fails with %s", *a.Step, a.Code),
		Actual:   "step succeeded",
		Trace:    result.Trace,
	}
}

// EvaluateAssertions checks every assertion against the result and
// returns failure messages. Step errors that no error assertion expects
// are failures too.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	expected := make(map[int]bool)
	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertDelivered:
			err = assertDelivered(result, a, true)
		case AssertNotDelivered:
			err = assertDelivered(result, a, false)
		case AssertDeliveryCount:
			err = assertDeliveryCount(result, a)
		case AssertError:
			if a.Step == nil {
				err = fmt.Errorf("assertion[%d]: error requires step", i)
				break
			}
			expected[*a.Step] = true
			err = assertStepError(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	for _, e := range result.StepErrors() {
		if !expected[e.Step] {
			errors = append(errors, fmt.Sprintf("step %d (%s): unexpected error: %s", e.Step, e.Op, e.Message))
		}
	}

	return errors
}
