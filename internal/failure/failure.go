// Package failure classifies the errors a workflow step can end with.
//
// Configuration and validation failures are raised before any request is
// sent. Network and backend failures come back from the remote services.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the class of a failure.
type Kind int

const (
	// Unknown is returned by KindOf for errors that were never classified.
	Unknown Kind = iota
	ConfigurationMissing
	NetworkFailure
	BackendFailure
	ValidationFailure
)

func (k Kind) String() string {
	switch k {
	case ConfigurationMissing:
		return "configuration missing"
	case NetworkFailure:
		return "network failure"
	case BackendFailure:
		return "backend failure"
	case ValidationFailure:
		return "validation failure"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Step names the workflow step (may be empty)
// and Status carries the HTTP status for backend failures.
type Error struct {
	Kind    Kind
	Step    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Step != "" {
		return fmt.Sprintf("%s: %s: %s", e.Step, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the short, dismissible text shown to the user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case ConfigurationMissing:
		return "Configuration missing: " + e.Message
	case ValidationFailure:
		return e.Message
	case NetworkFailure:
		return "Could not reach the server. Check your connection and try again."
	case BackendFailure:
		if e.Status != 0 && (e.Status < 200 || e.Status > 299) {
			return fmt.Sprintf("The server rejected the request (HTTP %d). Try again.", e.Status)
		}
		// The server answered but reported a failure of its own.
		if e.Message != "" {
			return e.Message
		}
		return "The server returned an unexpected response. Try again."
	default:
		return e.Error()
	}
}

// New returns a classified error with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithStep returns err with its Step set, when err is classified.
func WithStep(err error, step string) error {
	var fe *Error
	if errors.As(err, &fe) {
		cp := *fe
		cp.Step = step
		return &cp
	}
	return err
}

// KindOf reports the kind of err, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the user-facing message for any error.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.UserMessage()
	}
	return err.Error()
}
