package eval

import (
	"errors"
	"fmt"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// DiagnosticKind classifies evaluator diagnostics.
type DiagnosticKind int

const (
	// NotImplemented marks a tree shape or operator outside the
	// supported subset.
	NotImplemented DiagnosticKind = iota
	// ReferenceUnresolved marks a name or label that resolves nowhere.
	ReferenceUnresolved
	// InternalInvariant marks a broken evaluator invariant. It is never
	// caught by evaluated try handlers.
	InternalInvariant
)

func (k DiagnosticKind) String() string {
	switch k {
	case NotImplemented:
		return "not implemented"
	case ReferenceUnresolved:
		return "reference unresolved"
	case InternalInvariant:
		return "internal invariant"
	}
	return "unknown"
}

// Diagnostic is an evaluator error with a classified kind and a
// human-readable description of the offending construct.
type Diagnostic struct {
	Kind DiagnosticKind
	Msg  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Msg)
}

func notImplemented(format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: NotImplemented, Msg: fmt.Sprintf(format, args...)}
}

func referenceUnresolved(format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: ReferenceUnresolved, Msg: fmt.Sprintf(format, args...)}
}

func internalInvariant(format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: InternalInvariant, Msg: fmt.Sprintf(format, args...)}
}

// Throw is a runtime exception raised by evaluated code. It is always
// user-catchable.
type Throw struct {
	Payload *Carrier
}

func (t *Throw) Error() string {
	if t.Payload != nil && t.Payload.HasValue {
		s, err := toString(t.Payload.Value)
		if err == nil {
			return "uncaught: " + s
		}
	}
	return "uncaught exception"
}

// typeError builds a thrown TypeError-like value.
func typeError(format string, args ...interface{}) *Throw {
	return &Throw{Payload: FromValue(String("TypeError: " + fmt.Sprintf(format, args...)))}
}

// rangeError builds a thrown RangeError-like value.
func rangeError(format string, args ...interface{}) *Throw {
	return &Throw{Payload: FromValue(String("RangeError: " + fmt.Sprintf(format, args...)))}
}

// catchable reports whether an error may be intercepted by an evaluated
// try handler. Internal invariants short-circuit every handler.
func catchable(err error) bool {
	var t *Throw
	if errors.As(err, &t) {
		return true
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Kind != InternalInvariant
	}
	return false
}

// stateError decorates a propagating error with the residual prefix a
// block had accumulated when the error was raised, plus the original
// faulting statement and the unreached remainder. Try handlers use it
// to rebuild the failed body.
type stateError struct {
	err      error
	Residual []syntax.Statement
}

func (e *stateError) Error() string { return e.err.Error() }
func (e *stateError) Unwrap() error { return e.err }

func withErrorState(err error, residual []syntax.Statement) error {
	return &stateError{err: err, Residual: residual}
}

// errorState extracts the outermost recorded residual, if any.
func errorState(err error) ([]syntax.Statement, bool) {
	var se *stateError
	if errors.As(err, &se) {
		return se.Residual, true
	}
	return nil, false
}
