package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Error is the typed error raised for a single diagnostic condition.
// It carries the key, an optional cause, and structured context.
type Error struct {
	Key     Key
	Context map[string]any
	Cause   error
}

// NewError creates an Error for the given key and context.
func NewError(key Key, ctx map[string]any) *Error {
	return &Error{Key: key, Context: ctx}
}

// WrapError creates an Error wrapping an underlying cause.
func WrapError(key Key, cause error, ctx map[string]any) *Error {
	return &Error{Key: key, Context: ctx, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("rigging: ")
	b.WriteString(e.Key.String())
	if len(e.Context) > 0 {
		b.WriteString(" (")
		b.WriteString(formatContext(e.Context))
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Detail describes one per-component failure inside an aggregate error.
type Detail struct {
	// Token is the name of the failed component's token.
	Token string

	// Phase is the phase during which the failure occurred (start/stop/destroy).
	Phase string

	// Hook is the lifecycle hook that failed, if any.
	Hook string

	// Err is the underlying failure.
	Err error

	// TimedOut is true when the failure was a budget exhaustion.
	TimedOut bool

	// Rollback is true when the failure occurred while unwinding a
	// partially started system, not during the original phase.
	Rollback bool
}

// AggregateError is the sole error type raised from a full phase. It wraps
// an ordered list of every per-component failure, including rollback
// failures for the start phase.
type AggregateError struct {
	Key     Key
	Details []Detail
	Context map[string]any
}

// NewAggregate creates an AggregateError for the given key and details.
func NewAggregate(key Key, details []Detail, ctx map[string]any) *AggregateError {
	return &AggregateError{Key: key, Details: details, Context: ctx}
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	var b strings.Builder
	b.WriteString("rigging: ")
	b.WriteString(e.Key.String())
	fmt.Fprintf(&b, " (%d failure", len(e.Details))
	if len(e.Details) != 1 {
		b.WriteString("s")
	}
	b.WriteString(")")
	for _, d := range e.Details {
		b.WriteString("; ")
		b.WriteString(d.Token)
		if d.Hook != "" {
			b.WriteString(".")
			b.WriteString(d.Hook)
		}
		if d.Rollback {
			b.WriteString(" [rollback]")
		}
		if d.TimedOut {
			b.WriteString(" [timeout]")
		}
		if d.Err != nil {
			b.WriteString(": ")
			b.WriteString(d.Err.Error())
		}
	}
	return b.String()
}

// Unwrap exposes each detail's underlying error for errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Details))
	for _, d := range e.Details {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return errs
}

// formatContext renders context as sorted key=value pairs.
func formatContext(ctx map[string]any) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return strings.Join(parts, " ")
}
