// Package eval provides the FHIRPath expression evaluator.
package eval

import (
	"fmt"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
)

// ErrorCode classifies evaluation errors. Spec-permitted "no result" cases
// are not errors; they propagate as the empty collection.
type ErrorCode int

const (
	// ErrType indicates an operand type not accepted by an operation that
	// does not allow empty propagation.
	ErrType ErrorCode = iota
	// ErrArity indicates a wrong number of arguments to a function.
	ErrArity
	// ErrMultiItem indicates a multi-element collection where a singleton
	// was required.
	ErrMultiItem
	// ErrIncompatibleUnits indicates quantity dimensions that do not match.
	ErrIncompatibleUnits
	// ErrTerminology indicates a terminology provider failure or absence.
	ErrTerminology
	// ErrCancelled indicates host cancellation.
	ErrCancelled
	// ErrUnknownName indicates an unresolved function or variable name.
	ErrUnknownName
	// ErrParse indicates an invalid literal or expression form.
	ErrParse
	// ErrInternal indicates an invariant violation.
	ErrInternal
)

// String returns the stable code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrType:
		return "TypeError"
	case ErrArity:
		return "ArityError"
	case ErrMultiItem:
		return "MultiItem"
	case ErrIncompatibleUnits:
		return "IncompatibleUnits"
	case ErrTerminology:
		return "TerminologyError"
	case ErrCancelled:
		return "Cancelled"
	case ErrUnknownName:
		return "UnknownName"
	case ErrParse:
		return "ParseError"
	case ErrInternal:
		return "Internal"
	default:
		return "UnknownError"
	}
}

// Severity grades diagnostics for host rendering.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Error is a structured evaluation error: a stable code, a message, and
// the source span of the offending node when available.
type Error struct {
	Code       ErrorCode
	Severity   Severity
	Message    string
	Span       ast.Span
	HasSpan    bool
	Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.HasSpan {
		return fmt.Sprintf("%s at %d..%d: %s", e.Code, e.Span.Start, e.Span.End, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates an evaluation error. The format string follows
// fmt.Sprintf.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Message: message}
}

// WithSpan attaches a source span to the error, keeping the first one set.
func (e *Error) WithSpan(span ast.Span) *Error {
	if !e.HasSpan {
		e.Span = span
		e.HasSpan = true
	}
	return e
}

// WithUnderlying attaches an underlying error.
func (e *Error) WithUnderlying(err error) *Error {
	e.Underlying = err
	return e
}

// Helper constructors for common errors.

// TypeErrorf creates a type mismatch error.
func TypeErrorf(expected, actual, operation string) *Error {
	return NewError(ErrType, "expected %s, got %s in %s", expected, actual, operation)
}

// ArityError reports a wrong argument count for a function.
func ArityError(funcName string, expected, actual int) *Error {
	return NewError(ErrArity, "function '%s' expects %d arguments, got %d", funcName, expected, actual)
}

// MultiItemError reports a multi-element collection in singleton position.
func MultiItemError(count int) *Error {
	return NewError(ErrMultiItem, "expected single value, got %d elements", count)
}

// IncompatibleUnitsError reports a quantity dimension mismatch.
func IncompatibleUnitsError(left, right string) *Error {
	return NewError(ErrIncompatibleUnits, "incompatible units: '%s' and '%s'", left, right)
}

// UnknownFunctionError reports an unresolved function name.
func UnknownFunctionError(name string) *Error {
	return NewError(ErrUnknownName, "unknown function '%s'", name)
}

// UnknownVariableError reports an unresolved variable name.
func UnknownVariableError(name string) *Error {
	return NewError(ErrUnknownName, "undefined variable '%%%s'", name)
}

// CancelledError reports host cancellation.
func CancelledError(cause error) *Error {
	return NewError(ErrCancelled, "evaluation cancelled").WithUnderlying(cause)
}

// InvalidOperationError reports operand types an operator cannot accept.
func InvalidOperationError(op, leftType, rightType string) *Error {
	return NewError(ErrType, "cannot apply '%s' to %s and %s", op, leftType, rightType)
}
