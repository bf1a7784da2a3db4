package session

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure for the transport boundary.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindInvalid
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	}
	return "unknown"
}

// Reason narrows a Kind so callers can show distinct messages.
type Reason string

const (
	ReasonNotYetOpen    Reason = "not_yet_open"
	ReasonEnded         Reason = "ended"
	ReasonFull          Reason = "full"
	ReasonNotHost       Reason = "not_host"
	ReasonUnknownAction Reason = "unknown_action"
	ReasonInvalidPolicy Reason = "invalid_policy"
)

// Error is returned by every session operation that fails for a domain
// reason. Message is safe to show to the caller; Err is for logs only.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("session: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or zero when err is not a session error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// ReasonOf returns the Reason of err, or "" when there is none.
func ReasonOf(err error) Reason {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

func errWorkshopNotFound() *Error {
	return &Error{Kind: KindNotFound, Message: "Workshop not found"}
}

func errForbidden(reason Reason, message string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason, Message: message}
}

func errInvalid(reason Reason, message string) *Error {
	return &Error{Kind: KindInvalid, Reason: reason, Message: message}
}

func errUpstream(err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: "Video service unavailable", Err: err}
}
