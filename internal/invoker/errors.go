package invoker

import (
	"errors"
	"fmt"

	"github.com/roach88/txcomplete/internal/callback"
)

// ErrorCode categorizes invoker errors.
type ErrorCode string

const (
	// ErrCodeNotRegistered indicates a handle or pending registration
	// referenced a batch with no ledger entry.
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"

	// ErrCodeUnknownRegistrationEnd indicates EndRegistration without a
	// matching StartRegistration.
	ErrCodeUnknownRegistrationEnd ErrorCode = "UNKNOWN_REGISTRATION_END"

	// ErrCodeDeathSubscriptionFailed indicates the listener could not be
	// linked for death notification. The registration was not recorded.
	ErrCodeDeathSubscriptionFailed ErrorCode = "DEATH_SUBSCRIPTION_FAILED"

	// ErrCodeListenerUnreachable indicates a notification could not be
	// delivered. The batches are already gone from the ledger.
	ErrCodeListenerUnreachable ErrorCode = "LISTENER_UNREACHABLE"

	// ErrCodeClosed indicates the invoker has been closed.
	ErrCodeClosed ErrorCode = "CLOSED"
)

// Error is the error type returned by every Invoker operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Listener identifies the affected listener, if any.
	Listener callback.ListenerID

	// CallbackIDs identifies the affected batch, if any.
	CallbackIDs callback.IDs

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Listener != "" {
		msg += fmt.Sprintf(" (listener=%s", e.Listener)
		if len(e.CallbackIDs) > 0 {
			msg += fmt.Sprintf(", ids=%s", e.CallbackIDs.Key())
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotRegistered reports whether err is an ErrCodeNotRegistered error.
func IsNotRegistered(err error) bool {
	return CodeOf(err) == ErrCodeNotRegistered
}

// IsUnknownRegistrationEnd reports whether err is an
// ErrCodeUnknownRegistrationEnd error.
func IsUnknownRegistrationEnd(err error) bool {
	return CodeOf(err) == ErrCodeUnknownRegistrationEnd
}

// IsDeathSubscriptionFailed reports whether err is an
// ErrCodeDeathSubscriptionFailed error.
func IsDeathSubscriptionFailed(err error) bool {
	return CodeOf(err) == ErrCodeDeathSubscriptionFailed
}

// IsListenerUnreachable reports whether err (or any error joined into it)
// is an ErrCodeListenerUnreachable error.
func IsListenerUnreachable(err error) bool {
	return CodeOf(err) == ErrCodeListenerUnreachable
}

// IsClosed reports whether err is an ErrCodeClosed error.
func IsClosed(err error) bool {
	return CodeOf(err) == ErrCodeClosed
}

func newNotRegisteredError(listener callback.ListenerID, ids callback.IDs) *Error {
	return &Error{
		Code:        ErrCodeNotRegistered,
		Message:     "no transaction stats for batch; StartRegistration must come first",
		Listener:    listener,
		CallbackIDs: ids.Clone(),
	}
}

func newUnknownRegistrationEndError(listener callback.ListenerID, ids callback.IDs) *Error {
	return &Error{
		Code:        ErrCodeUnknownRegistrationEnd,
		Message:     "cannot end a registration that does not exist",
		Listener:    listener,
		CallbackIDs: ids.Clone(),
	}
}

func newDeathSubscriptionError(listener callback.ListenerID, ids callback.IDs, cause error) *Error {
	return &Error{
		Code:        ErrCodeDeathSubscriptionFailed,
		Message:     "cannot add callback because linking for death notification failed",
		Listener:    listener,
		CallbackIDs: ids.Clone(),
		Err:         cause,
	}
}

func newListenerUnreachableError(listener callback.ListenerID, cause error) *Error {
	return &Error{
		Code:     ErrCodeListenerUnreachable,
		Message:  "transaction completed notification not delivered",
		Listener: listener,
		Err:      cause,
	}
}

var errClosed = &Error{Code: ErrCodeClosed, Message: "invoker is closed"}
