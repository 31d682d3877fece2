package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBuild    Phase = "build"    // leaf graph construction
	PhaseValidate Phase = "validate" // pre-lift graph validation
	PhaseLift     Phase = "lift"     // region lifting
	PhaseParse    Phase = "parse"    // graph text/YAML parsing
	PhaseEmit     Phase = "emit"     // wasm emission
	PhaseRuntime  Phase = "runtime"  // emitted code execution
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindMalformedGraph  Kind = "malformed_graph"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindNotFound        Kind = "not_found"
	KindInvalidData     Kind = "invalid_data"
	KindUnsupported     Kind = "unsupported"
	KindInternal        Kind = "internal"
	KindFuelExhausted   Kind = "fuel_exhausted"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Region string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Region != "" {
		b.WriteString(": region ")
		b.WriteString(e.Region)
	}

	if e.Detail != "" {
		if e.Region != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path (function, block, ...)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Region sets the offending region label
func (b *Builder) Region(label string) *Builder {
	b.err.Region = label
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidArgument creates an invalid argument error
func InvalidArgument(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Detail: detail,
	}
}

// MalformedGraph creates a malformed graph error for the named region
func MalformedGraph(region string, detail string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindMalformedGraph,
		Region: region,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Internal creates an error for a broken internal invariant
func Internal(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
	}
}

// FuelExhausted creates an error for an execution that ran past its visit budget
func FuelExhausted(fuel int) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindFuelExhausted,
		Detail: fmt.Sprintf("exceeded %d block visits", fuel),
		Value:  fuel,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
