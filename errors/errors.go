package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in generation the error occurred
type Phase string

const (
	PhaseLayout   Phase = "layout"   // size/alignment calculation
	PhaseFlatten  Phase = "flatten"  // core signature flattening
	PhaseLower    Phase = "lower"    // host value to flat representation
	PhaseLift     Phase = "lift"     // flat representation to host value
	PhaseEmit     Phase = "emit"     // statement and file emission
	PhaseValidate Phase = "validate" // input contract validation
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupported    Kind = "unsupported"
	KindArity          Kind = "arity"
	KindInvalidVariant Kind = "invalid_variant"
	KindInvalidData    Kind = "invalid_data"
	KindOverflow       Kind = "overflow"
	KindNotFound       Kind = "not_found"
	KindDuplicate      Kind = "duplicate"
)

// Error is the structured error type used throughout the generator
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Function string
	WitType  string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.WitType != "" {
		b.WriteString(": WIT type ")
		b.WriteString(e.WitType)
	}

	if e.Detail != "" {
		if e.WitType != "" {
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

// Path sets the type path within the function being translated
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Function sets the name of the function whose translation failed
func (b *Builder) Function(name string) *Builder {
	b.err.Function = name
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
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

// Unsupported creates an unsupported-feature error. These are hard stops:
// the offending function fails generation, other functions are unaffected.
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Arity creates an error for an unsupported parameter or result shape
func Arity(phase Phase, function, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindArity,
		Function: function,
		Detail:   detail,
	}
}

// InvalidDiscriminant creates an out-of-range discriminant error for
// variants and enums
func InvalidDiscriminant(phase Phase, path []string, disc, numCases int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		Detail: fmt.Sprintf("discriminant %d out of range (cases %d)", disc, numCases),
	}
}

// Overflow creates an overflow error for layout or flattening arithmetic
func Overflow(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: detail,
		Cause:  cause,
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

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Duplicate creates a duplicate-declaration error
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q already declared", what, name),
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
