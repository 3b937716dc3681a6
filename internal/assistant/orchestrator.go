package assistant

import (
	"context"
	"time"

	"github.com/mvaldes/atlasbot/internal/logging"
)

// CleanupSignal is a sentinel message used by the surrounding UI to
// request session teardown. It is handled as a fast-path no-op and never
// enters the conversation history.
const CleanupSignal = "$__cleanup_signal__"

const (
	genericApology   = "Lo siento, ha ocurrido un error inesperado procesando tu mensaje. ¿Puedes intentarlo de nuevo?"
	bothDeclinedText = "Lo siento, ni el asistente de Jira ni el de Confluence han podido atender tu petición. ¿Puedes reformularla?"
)

// IncidentFlow is the guided incident-report dialogue consumed by the
// orchestrator. While the flow is active it bypasses classification
// entirely.
type IncidentFlow interface {
	// Active reports whether a collection dialogue is in progress.
	Active() bool

	// Start begins a new dialogue anchored at the session's reference
	// date and returns the first question.
	Start(ctx context.Context, referenceDate time.Time) string

	// Handle processes one user reply and returns the next prompt.
	Handle(ctx context.Context, message string) string
}

// Orchestrator routes each user message to the right task agent and owns
// the shared conversation state. One instance serves one session; turns
// are processed strictly one at a time.
type Orchestrator struct {
	session    *Session
	classifier *Classifier
	issueAgent TaskAgent
	wikiAgent  TaskAgent
	incident   IncidentFlow
	metrics    *Metrics
	logger     *logging.Logger
}

// NewOrchestrator wires the orchestrator for one session.
func NewOrchestrator(session *Session, classifier *Classifier, issueAgent, wikiAgent TaskAgent, incident IncidentFlow, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		session:    session,
		classifier: classifier,
		issueAgent: issueAgent,
		wikiAgent:  wikiAgent,
		incident:   incident,
		metrics:    metrics,
		logger:     logging.GetLogger("orchestrator"),
	}
}

// Session returns the session this orchestrator serves.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// Process handles one user message to completion and returns exactly one
// reply. Every turn is appended to history, even when an agent fails.
func (o *Orchestrator) Process(ctx context.Context, message string) (reply string) {
	if message == CleanupSignal {
		o.logger.DebugWithFields("cleanup signal received", logging.Field("session", o.session.ID))
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while processing turn: %v", r)
			o.metrics.FailuresTotal.Inc()
			reply = genericApology
			o.session.AppendAssistant(reply, DomainNone)
		}
	}()

	o.session.AppendUser(message)

	// An active incident flow owns the conversation until it reaches a
	// terminal state.
	if o.incident.Active() {
		reply = o.incident.Handle(ctx, message)
		o.session.AppendAssistant(reply, DomainIncident)
		o.metrics.TurnsTotal.WithLabelValues(string(DomainIncident)).Inc()
		if !o.incident.Active() {
			o.session.ActiveDomain = DomainNone
		} else {
			o.session.ActiveDomain = DomainIncident
		}
		return reply
	}

	domain := o.resolveDomain(ctx, message)

	if domain == DomainIncident {
		reply = o.incident.Start(ctx, o.session.ReferenceDate)
		o.session.ActiveDomain = DomainIncident
		o.session.AppendAssistant(reply, DomainIncident)
		o.metrics.TurnsTotal.WithLabelValues(string(DomainIncident)).Inc()
		return reply
	}

	reply, responder := o.delegate(ctx, message, domain)
	o.session.ActiveDomain = responder
	o.session.AppendAssistant(reply, responder)
	o.metrics.TurnsTotal.WithLabelValues(string(responder)).Inc()
	return reply
}

// resolveDomain applies the sticky-routing rules on top of the fresh
// classification: an unsure result reuses the previously active domain,
// and with no previous domain the issue agent is the default. That
// default mirrors how most ambiguous requests in practice turn out to be
// about tasks, and is isolated here so it can be revisited.
func (o *Orchestrator) resolveDomain(ctx context.Context, message string) Domain {
	classified := o.classifier.Classify(ctx, message)
	if classified != DomainUnsure {
		return classified
	}
	if o.session.ActiveDomain == DomainIssue || o.session.ActiveDomain == DomainWiki {
		o.logger.DebugWithFields("classification unsure, keeping active domain",
			logging.Field("domain", string(o.session.ActiveDomain)))
		return o.session.ActiveDomain
	}
	return DomainIssue
}

// delegate runs the chosen agent and, when it declines, retries the same
// message once with the alternate agent. It returns the reply and the
// domain that actually produced it.
func (o *Orchestrator) delegate(ctx context.Context, message string, domain Domain) (string, Domain) {
	primary, alternate := o.issueAgent, o.wikiAgent
	if domain == DomainWiki {
		primary, alternate = o.wikiAgent, o.issueAgent
	}

	outcome, err := primary.Handle(ctx, message, o.session)
	if err != nil {
		o.logger.ErrorWithErr("task agent failed", err)
		o.metrics.FailuresTotal.Inc()
		return genericApology, DomainNone
	}
	if !outcome.IsDeclined() {
		return outcome.Text(), primary.Domain()
	}

	o.logger.InfoWithFields("agent declined, reflecting to alternate",
		logging.Field("from", string(primary.Domain())),
		logging.Field("to", string(alternate.Domain())))
	o.metrics.ReflectionsTotal.Inc()

	outcome, err = alternate.Handle(ctx, message, o.session)
	if err != nil {
		o.logger.ErrorWithErr("alternate agent failed", err)
		o.metrics.FailuresTotal.Inc()
		return bothDeclinedText, DomainNone
	}
	if outcome.IsDeclined() {
		return bothDeclinedText, DomainNone
	}
	return outcome.Text(), alternate.Domain()
}
