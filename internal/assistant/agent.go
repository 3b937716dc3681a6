package assistant

import "context"

// Outcome is the tagged result of a task agent handling a message: either
// a user-facing reply or an explicit decline. A decline is the only way
// an agent participates in cross-agent reflection and is distinct from an
// error, which signals an actual failure.
type Outcome struct {
	declined bool
	text     string
}

// Handled wraps a user-facing reply.
func Handled(text string) Outcome {
	return Outcome{text: text}
}

// Declined signals that the message belongs to a different domain.
func Declined() Outcome {
	return Outcome{declined: true}
}

// IsDeclined reports whether the agent declined the message.
func (o Outcome) IsDeclined() bool { return o.declined }

// Text returns the reply for a handled outcome, empty for a decline.
func (o Outcome) Text() string { return o.text }

// TaskAgent is a domain-specific message handler backed by an LLM
// tool-calling loop over a closed operation set.
type TaskAgent interface {
	// Domain identifies the agent.
	Domain() Domain

	// Handle processes one user message against the shared session. It
	// returns Declined when the message belongs to another domain; errors
	// are reserved for genuine failures.
	Handle(ctx context.Context, message string, session *Session) (Outcome, error)
}
