package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad       Phase = "load"       // definition and manifest loading
	PhaseCodec      Phase = "codec"      // slot reads and writes
	PhaseIntern     Phase = "intern"     // string pool operations
	PhaseReflect    Phase = "reflect"    // definition lookup
	PhaseParse      Phase = "parse"      // text to typed storage
	PhaseBuiltin    Phase = "builtin"    // builtin call adapter
	PhaseTrampoline Phase = "trampoline" // VM callbacks from host code
	PhaseHost       Phase = "host"       // builtin registration
	PhaseRuntime    Phase = "runtime"    // executor and instance operations
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfRange        Kind = "out_of_range"
	KindUnknownField      Kind = "unknown_field"
	KindUnknownDefinition Kind = "unknown_definition"
	KindMalformedInput    Kind = "malformed_input"
	KindConfiguration     Kind = "configuration"
	KindUnsupported       Kind = "unsupported"
	KindNotInitialized    Kind = "not_initialized"
	KindInvalidInput      Kind = "invalid_input"
	KindRegistration      Kind = "registration"
	KindNotFound          Kind = "not_found"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	VMType string
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

	if e.VMType != "" {
		b.WriteString(": VM type ")
		b.WriteString(e.VMType)
	}

	if e.Detail != "" {
		if e.VMType != "" {
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

// Fatal reports whether the error aborts the current VM execution.
// Only a missed definition lookup is a soft result.
func (e *Error) Fatal() bool {
	return e.Kind != KindUnknownDefinition
}

// IsFatal reports whether err must abort the current VM execution.
// Errors that are not *Error are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Fatal()
	}
	return true
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
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

// Path sets the definition path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// VMType sets the VM type name
func (b *Builder) VMType(t string) *Builder {
	b.err.VMType = t
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

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, expected, actual string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		VMType: actual,
		Detail: fmt.Sprintf("expected %s", expected),
	}
}

// OutOfRange creates an out of range error
func OutOfRange(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfRange,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of range (length %d)", index, length),
		Value:  index,
	}
}

// UnknownField creates an unknown field error
func UnknownField(phase Phase, id int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownField,
		Detail: fmt.Sprintf("couldn't match field %d", id),
		Value:  id,
	}
}

// UnknownDefinition creates a soft lookup miss
func UnknownDefinition(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownDefinition,
		Path:   []string{name},
		Detail: fmt.Sprintf("no definition named %q", name),
	}
}

// MalformedInput creates a malformed input error
func MalformedInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedInput,
		Detail: detail,
	}
}

// Configuration creates a definition table corruption error
func Configuration(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConfiguration,
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

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
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

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a builtin registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register builtin %s", name),
		Cause:  cause,
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

// Load creates a load error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindConfiguration,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingBuiltin is a progs builtin declaration with no host implementation
type MissingBuiltin struct {
	Name   string
	Number int32
}

// MissingBuiltinsError is returned when binding finds builtins the host does not provide
type MissingBuiltinsError struct {
	Builtins []MissingBuiltin
}

// NewMissingBuiltinsError creates an error from a name to builtin number map
func NewMissingBuiltinsError(missing map[string]int32) *MissingBuiltinsError {
	result := &MissingBuiltinsError{
		Builtins: make([]MissingBuiltin, 0, len(missing)),
	}
	for name, num := range missing {
		result.Builtins = append(result.Builtins, MissingBuiltin{Name: name, Number: num})
	}
	sort.Slice(result.Builtins, func(i, j int) bool {
		return result.Builtins[i].Number < result.Builtins[j].Number
	})
	return result
}

func (e *MissingBuiltinsError) Error() string {
	if len(e.Builtins) == 0 {
		return "[host] registration: no builtins specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d builtin(s):", len(e.Builtins)))
	for _, m := range e.Builtins {
		b.WriteString("\n  - #")
		b.WriteString(fmt.Sprint(m.Number))
		b.WriteByte(' ')
		b.WriteString(m.Name)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingBuiltinsError) Is(target error) bool {
	_, ok := target.(*MissingBuiltinsError)
	return ok
}
