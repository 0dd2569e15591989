package errs

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
)

type Kind int

const (
	Unknown Kind = iota
	Configuration
	Parse
	Transport
	Geometry
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Parse:
		return "parse"
	case Transport:
		return "transport"
	case Geometry:
		return "geometry"
	}
	return "unknown"
}

// Error is a classified failure. Op names the operation that failed, e.g. "fetch /v1/3dtiles/root.json".
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Temporary marks transport failures worth retrying (network errors, 429, 5xx).
	Temporary bool
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg += " [" + e.Op + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause from github.com/pkg/errors walk through classified errors.
func (e *Error) Cause() error {
	return e.Err
}

func New(kind Kind, op string, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: errors.WithStack(err)}
}

func Wrapf(kind Kind, op string, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: errors.Wrapf(err, format, args...)}
}

// Temporary builds a retryable transport error.
func Temporary(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Transport, Op: op, Err: errors.WithStack(err), Temporary: true}
}

func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether err is a temporary transport failure. A request that hit its own timeout is
// retryable; a cancelled caller is not.
func Retryable(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == Transport && e.Temporary
}

// IsCancelled reports whether err is the caller's context error. Classified errors never are, even when they
// wrap context.DeadlineExceeded as http.Client timeouts do.
func IsCancelled(err error) bool {
	if err == nil || KindOf(err) != Unknown {
		return false
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
