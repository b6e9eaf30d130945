// Package apperr defines the structured error taxonomy every RPC boundary in
// this repo maps its failures onto, and the translation to gRPC status codes.
package apperr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a failure the way the external interfaces need to see it.
type Kind string

const (
	InvalidArgument Kind = "InvalidArgument"
	PayloadTooLarge Kind = "PayloadTooLarge"
	Unavailable     Kind = "Unavailable"
	Timeout         Kind = "Timeout"
	NotFound        Kind = "NotFound"
	Internal        Kind = "Internal"
	Cancelled       Kind = "Cancelled"
)

// Error is the structured error every core operation may return. Callers at
// an RPC boundary convert it into the operation's result shape; it is never
// allowed to cross that boundary as a bare Go error.
type Error struct {
	Kind    Kind
	Message string
	Reason  string // optional: human-readable cause, e.g. disconnect reason
	cause   error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a structured error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind to an underlying error, preserving it for errors.Is/As.
func Wrap(kind Kind, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: cause.Error(), cause: cause}
}

// WithReason returns a copy of e carrying a reason string (used for Cancelled).
func (e *Error) WithReason(reason string) *Error {
	cp := *e
	cp.Reason = reason
	return &cp
}

// KindOf extracts the Kind from err, defaulting to Internal for anything not
// produced through this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// IsRetryable reports whether operations in this repo should retry err
// automatically. Only connection-class and timeout-class failures qualify;
// semantic rejections (InvalidArgument, NotFound, Cancelled) never do.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case Unavailable, Timeout:
		return true
	default:
		return false
	}
}

// GRPCCode maps a Kind onto the canonical gRPC status code carrying the same
// meaning, for transports that speak gRPC status conventions.
func GRPCCode(k Kind) codes.Code {
	switch k {
	case InvalidArgument:
		return codes.InvalidArgument
	case PayloadTooLarge:
		return codes.ResourceExhausted
	case Unavailable:
		return codes.Unavailable
	case Timeout:
		return codes.DeadlineExceeded
	case NotFound:
		return codes.NotFound
	case Cancelled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a *status.Status carrying the mapped gRPC code.
func ToStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	var ae *Error
	if errors.As(err, &ae) {
		return status.New(GRPCCode(ae.Kind), ae.Error())
	}
	return status.New(codes.Internal, err.Error())
}

// HTTPStatus maps a Kind onto the REST facade's status code.
func HTTPStatus(k Kind) int {
	switch k {
	case InvalidArgument:
		return 400
	case PayloadTooLarge:
		return 413
	case Unavailable:
		return 503
	case Timeout:
		return 504
	case NotFound:
		return 404
	case Cancelled:
		return 499
	default:
		return 500
	}
}
