package types

import "errors"

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindDriver         ErrKind = iota + 1 // tag out of range, command rejected, session failure
	ErrKindDecode                            // tag payload did not parse to an identifier
	ErrKindInvalidPayload                    // text cannot be encoded; rejected before any I/O
	ErrKindSubmission                        // network or remote failure while submitting
	ErrKindPersistence                       // durable store read/write failure
	ErrKindState                             // operation not valid in the current workflow state
)

var kindNames = map[ErrKind]string{
	ErrKindDriver:         "driver",
	ErrKindDecode:         "decode",
	ErrKindInvalidPayload: "invalid payload",
	ErrKindSubmission:     "submission",
	ErrKindPersistence:    "persistence",
	ErrKindState:          "state",
}

func (k ErrKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks. Implementations return fresh *Error values
// carrying context; compare against these by kind.
var (
	// ErrDriver indicates the tag driver failed (disconnect, timeout, NAK).
	ErrDriver = &Error{Kind: ErrKindDriver, Msg: "tag driver error"}
	// ErrDecode indicates the tag payload is not a valid identifier.
	ErrDecode = &Error{Kind: ErrKindDecode, Msg: "tag payload decode error"}
	// ErrInvalidPayload indicates text that cannot be written to a tag.
	ErrInvalidPayload = &Error{Kind: ErrKindInvalidPayload, Msg: "invalid tag payload"}
	// ErrSubmission indicates the remote service did not accept a record.
	ErrSubmission = &Error{Kind: ErrKindSubmission, Msg: "submission failed"}
	// ErrPersistence indicates the durable store could not be read or written.
	ErrPersistence = &Error{Kind: ErrKindPersistence, Msg: "queue persistence error"}
	// ErrState indicates a workflow operation was called out of order.
	ErrState = &Error{Kind: ErrKindState, Msg: "invalid workflow state"}
)

// Driver wraps err as a driver error.
func Driver(msg string, err error) error {
	return &Error{Kind: ErrKindDriver, Msg: msg, Err: err}
}

// Decode returns a decode error.
func Decode(msg string, err error) error {
	return &Error{Kind: ErrKindDecode, Msg: msg, Err: err}
}

// InvalidPayload returns an invalid payload error.
func InvalidPayload(msg string) error {
	return &Error{Kind: ErrKindInvalidPayload, Msg: msg}
}

// Submission wraps err as a submission error.
func Submission(msg string, err error) error {
	return &Error{Kind: ErrKindSubmission, Msg: msg, Err: err}
}

// Persistence wraps err as a persistence error.
func Persistence(msg string, err error) error {
	return &Error{Kind: ErrKindPersistence, Msg: msg, Err: err}
}

// State returns a workflow state error.
func State(msg string) error {
	return &Error{Kind: ErrKindState, Msg: msg}
}

// KindOf reports the ErrKind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
