// Package wikiagent implements the Confluence-facing task agent: page
// search with relevance filtering, page retrieval and page creation.
package wikiagent

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvaldes/atlasbot/internal/assistant"
	"github.com/mvaldes/atlasbot/internal/confluence"
	"github.com/mvaldes/atlasbot/internal/logging"
	"github.com/mvaldes/atlasbot/internal/provider"
)

// Client is the subset of the Confluence client the agent consumes.
type Client interface {
	ListSpaces(ctx context.Context, limit int) ([]confluence.Space, error)
	Search(ctx context.Context, query, spaceKey string, limit int) ([]confluence.Page, error)
	GetPageByID(ctx context.Context, id string) (*confluence.Page, error)
	GetPageByTitle(ctx context.Context, spaceKey, title string) (*confluence.Page, error)
	CreatePage(ctx context.Context, spaceKey, title, storageBody string) (*confluence.Page, error)
}

// FilterFunc decides whether a page title is noise for the current
// search ("sprint planning" pages drowning out real documentation). It
// is pluggable so the heuristic can change without touching the agent.
type FilterFunc func(title string) bool

// ceremonyKeywords mark recurring agile-ceremony pages that crowd out
// real documentation in title searches.
var ceremonyKeywords = []string{
	"sprint goal", "sprint planning", "sprint review", "sprint retro", "daily scrum",
}

// DefaultFilter filters the usual agile-ceremony pages.
func DefaultFilter(title string) bool {
	lowered := strings.ToLower(title)
	for _, kw := range ceremonyKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Agent handles wiki-domain messages through an LLM tool-calling loop.
type Agent struct {
	client Client
	runner *assistant.Runner
	filter FilterFunc
	logger *logging.Logger
}

// Option configures the agent.
type Option func(*Agent)

// WithFilter replaces the relevance filter.
func WithFilter(filter FilterFunc) Option {
	return func(a *Agent) {
		a.filter = filter
	}
}

// New creates the wiki agent.
func New(p provider.Provider, client Client, opts ...Option) *Agent {
	a := &Agent{
		client: client,
		runner: assistant.NewRunner(p),
		filter: DefaultFilter,
		logger: logging.GetLogger("wiki-agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Domain implements assistant.TaskAgent.
func (a *Agent) Domain() assistant.Domain {
	return assistant.DomainWiki
}

// Handle implements assistant.TaskAgent. The current user message is the
// last entry of the session history.
func (a *Agent) Handle(ctx context.Context, _ string, session *assistant.Session) (assistant.Outcome, error) {
	registry := a.buildRegistry(session)
	return a.runner.Run(ctx, a.systemPrompt(session), session.HistoryMessages(), registry)
}

func (a *Agent) systemPrompt(session *assistant.Session) string {
	return fmt.Sprintf(`Eres el asistente de Confluence del equipo. Ayudas a buscar páginas wiki,
consultar su contenido y crear páginas nuevas.

Fecha actual: %s (%s).

Reglas:
- Usa las herramientas disponibles; nunca inventes páginas ni contenido.
- Al listar resultados numéralos empezando en 1; menciona cuántos resultados se filtraron por ser páginas de ceremonias (sprint planning, daily, etc.) para que el usuario pueda pedirlos explícitamente.
- Si la petición trata de issues de Jira, imputación de horas o incidentes, llama a decline_request.
- Responde siempre en el idioma del usuario.`,
		session.Metadata()["fecha_actual"],
		session.Metadata()["fecha_actual_larga"])
}
