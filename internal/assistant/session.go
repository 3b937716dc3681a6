// Package assistant implements the conversation core: shared session
// state, message classification, the LLM tool-calling loop and the
// orchestrator that routes each turn to a task agent.
package assistant

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mvaldes/atlasbot/internal/assistant/resolve"
	"github.com/mvaldes/atlasbot/internal/provider"
)

// Domain identifies which task agent owns a conversation turn.
type Domain string

const (
	DomainNone     Domain = ""
	DomainIssue    Domain = "issue"
	DomainWiki     Domain = "wiki"
	DomainIncident Domain = "incident"
	DomainUnsure   Domain = "unsure"
)

// DefaultHistoryCap bounds the shared history length.
const DefaultHistoryCap = 20

// Turn is one entry in the shared conversation history.
type Turn struct {
	Role  provider.Role
	Text  string
	Agent Domain // which agent produced an assistant turn, if any
	At    time.Time
}

// WorkingMemory is a task agent's private view of the conversation:
// the last search results and the item currently under discussion.
type WorkingMemory struct {
	Candidates resolve.CandidateSet
	Current    *resolve.Candidate
}

// SetCandidates replaces the candidate set wholesale. Previous results
// are never merged in.
func (m *WorkingMemory) SetCandidates(set resolve.CandidateSet) {
	m.Candidates = set
}

// SetCurrent records the item the user is currently discussing.
func (m *WorkingMemory) SetCurrent(c resolve.Candidate) {
	m.Current = &c
}

// Session holds all per-conversation state. Each chat session owns an
// independent Session; nothing here is shared across sessions.
type Session struct {
	ID            string
	ReferenceDate time.Time
	ActiveDomain  Domain

	historyCap int
	turns      []Turn
	metadata   map[string]string
	memories   map[Domain]*WorkingMemory
}

// NewSession creates a session anchored at the given reference date.
// A historyCap of zero or less falls back to DefaultHistoryCap.
func NewSession(referenceDate time.Time, historyCap int) *Session {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	s := &Session{
		ID:            uuid.NewString(),
		ReferenceDate: referenceDate,
		historyCap:    historyCap,
		metadata:      make(map[string]string),
		memories:      make(map[Domain]*WorkingMemory),
	}
	s.metadata["fecha_actual"] = referenceDate.Format("2006-01-02")
	s.metadata["fecha_actual_larga"] = fmt.Sprintf("%s, %d de %s de %d",
		spanishWeekday(referenceDate.Weekday()),
		referenceDate.Day(),
		spanishMonth(referenceDate.Month()),
		referenceDate.Year())
	return s
}

// AppendUser records a user turn, evicting the oldest entries when the
// history exceeds its cap.
func (s *Session) AppendUser(text string) {
	s.append(Turn{Role: provider.RoleUser, Text: text, At: time.Now()})
}

// AppendAssistant records an assistant turn tagged with the agent that
// produced it.
func (s *Session) AppendAssistant(text string, agent Domain) {
	s.append(Turn{Role: provider.RoleAssistant, Text: text, Agent: agent, At: time.Now()})
}

func (s *Session) append(turn Turn) {
	s.turns = append(s.turns, turn)
	if excess := len(s.turns) - s.historyCap; excess > 0 {
		s.turns = append([]Turn{}, s.turns[excess:]...)
	}
}

// History returns a copy of the conversation turns, oldest first.
func (s *Session) History() []Turn {
	return append([]Turn{}, s.turns...)
}

// HistoryMessages converts the turns to provider messages.
func (s *Session) HistoryMessages() []provider.Message {
	messages := make([]provider.Message, 0, len(s.turns))
	for _, turn := range s.turns {
		messages = append(messages, provider.Message{Role: turn.Role, Content: turn.Text})
	}
	return messages
}

// Metadata returns the session's key-value metadata.
func (s *Session) Metadata() map[string]string {
	return s.metadata
}

// Memory returns the working memory for a domain, creating it on first use.
func (s *Session) Memory(domain Domain) *WorkingMemory {
	if m, ok := s.memories[domain]; ok {
		return m
	}
	m := &WorkingMemory{}
	s.memories[domain] = m
	return m
}

func spanishWeekday(wd time.Weekday) string {
	names := [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	return names[wd]
}

func spanishMonth(m time.Month) string {
	names := [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
	return names[m-1]
}
