// Package kind defines the closed error taxonomy shared by every layer of
// the data-reduction engine, aliasing the legacy numeric error codes to
// abstract kinds so callers can branch on failure class without parsing
// messages.
package kind

import (
	"errors"
	"fmt"
)

// Kind is one of a fixed set of failure classes produced anywhere in the
// engine.
type Kind int

const (
	// NullInput marks a required argument that was absent (nil pointer,
	// empty slice where one is mandatory).
	NullInput Kind = iota
	// IllegalInput marks an argument present but out of its valid range.
	IllegalInput
	// OutOfRange marks an index exceeding container bounds.
	OutOfRange
	// Incompatible marks a dimension or shape mismatch between cooperating
	// objects.
	Incompatible
	// InvalidType marks a polymorphic operation invoked on the wrong
	// variant.
	InvalidType
	// DataNotFound marks insufficient distinct samples to identify a fit.
	DataNotFound
	// SingularMatrix marks ill-conditioned or rank-deficient normal
	// equations.
	SingularMatrix
	// DivisionByZero marks an explicit zero divisor or zero pivot.
	DivisionByZero
	// Continue marks an iterative procedure that did not converge within
	// its cap; callers may inspect the best-known result.
	Continue
	// Unsupported marks a valid but unimplemented combination of inputs.
	Unsupported
	// FileIO marks a failure in the underlying FITS I/O backend.
	FileIO
)

func (k Kind) String() string {
	switch k {
	case NullInput:
		return "null-input"
	case IllegalInput:
		return "illegal-input"
	case OutOfRange:
		return "access-out-of-range"
	case Incompatible:
		return "incompatible-input"
	case InvalidType:
		return "invalid-type"
	case DataNotFound:
		return "data-not-found"
	case SingularMatrix:
		return "singular-matrix"
	case DivisionByZero:
		return "division-by-zero"
	case Continue:
		return "continue"
	case Unsupported:
		return "unsupported-mode"
	case FileIO:
		return "file-io"
	default:
		return "unknown-kind"
	}
}

// Error is the result type every numerical and I/O kernel in the engine
// returns on failure. Diag carries an optional diagnostic payload, e.g.
// the last Newton-Raphson iterate on a Continue failure.
type Error struct {
	Kind Kind
	Msg  string
	Diag any
	err  error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// New builds an *Error of the given kind with a formatted message.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// WithDiag attaches a diagnostic payload and returns the same error for
// chaining at the call site, e.g. `return kind.New(kind.Continue, "...").WithDiag(x)`.
func (e *Error) WithDiag(diag any) *Error {
	e.Diag = diag
	return e
}

// Wrap builds an *Error of the given kind that also records an underlying
// cause for errors.Unwrap/errors.Is chains.
func Wrap(k Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
