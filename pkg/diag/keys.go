package diag

// Key identifies one diagnostic condition. Keys are stable: callers may
// switch on them, and the message table maps each key to a severity and
// a human-readable template.
type Key int

const (
	// KeyUnknown is the zero key, used when no specific key applies.
	KeyUnknown Key = iota

	// KeyDuplicateToken — the same token was registered twice.
	KeyDuplicateToken

	// KeyUnknownToken — a lookup referenced a token that was never registered.
	KeyUnknownToken

	// KeyUnknownDependency — a registration depends on an unregistered token.
	KeyUnknownDependency

	// KeyDependencyCycle — the dependency graph contains a cycle.
	KeyDependencyCycle

	// KeyInvalidProvider — a provider failed its registration shape check.
	KeyInvalidProvider

	// KeyAsyncProvider — a provider returned a pending (channel) result;
	// providers must be synchronous, async setup belongs in lifecycle hooks.
	KeyAsyncProvider

	// KeyResolveCycle — provider resolution re-entered a token being resolved.
	KeyResolveCycle

	// KeyInvalidTransition — a lifecycle transition is not allowed from the
	// current state.
	KeyInvalidTransition

	// KeyHookFailed — a lifecycle hook returned an error.
	KeyHookFailed

	// KeyHookTimeout — a lifecycle hook exceeded its time budget.
	KeyHookTimeout

	// KeyStartFailed — the start phase failed; carries per-component details.
	KeyStartFailed

	// KeyStopFailed — the stop phase failed; carries per-component details.
	KeyStopFailed

	// KeyDestroyFailed — the destroy phase failed; carries per-component details.
	KeyDestroyFailed
)

// Severity classifies how a diagnostic is logged.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

// message pairs a severity with a static description template.
type message struct {
	severity Severity
	text     string
}

// messages is the diagnostic message table, assembled once at startup.
// Context supplied at failure time is attached as structured fields,
// never interpolated into the text.
var messages = map[Key]message{
	KeyUnknown:           {SeverityError, "unclassified failure"},
	KeyDuplicateToken:    {SeverityError, "component token registered twice"},
	KeyUnknownToken:      {SeverityError, "unknown component token"},
	KeyUnknownDependency: {SeverityError, "dependency references an unregistered token"},
	KeyDependencyCycle:   {SeverityError, "dependency graph contains a cycle"},
	KeyInvalidProvider:   {SeverityError, "provider failed registration shape check"},
	KeyAsyncProvider:     {SeverityError, "provider returned an asynchronous result"},
	KeyResolveCycle:      {SeverityError, "provider resolution cycle"},
	KeyInvalidTransition: {SeverityError, "illegal lifecycle transition"},
	KeyHookFailed:        {SeverityError, "lifecycle hook failed"},
	KeyHookTimeout:       {SeverityError, "lifecycle hook exceeded its time budget"},
	KeyStartFailed:       {SeverityError, "start phase failed"},
	KeyStopFailed:        {SeverityError, "stop phase failed"},
	KeyDestroyFailed:     {SeverityError, "destroy phase failed"},
}

// String returns the key's message table text.
func (k Key) String() string {
	if m, ok := messages[k]; ok {
		return m.text
	}
	return messages[KeyUnknown].text
}

// SeverityOf returns the severity the message table assigns to the key.
func SeverityOf(k Key) Severity {
	if m, ok := messages[k]; ok {
		return m.severity
	}
	return SeverityError
}
