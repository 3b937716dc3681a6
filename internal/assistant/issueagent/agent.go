// Package issueagent implements the Jira-facing task agent: issue search,
// details, comments, worklogs and workflow transitions.
package issueagent

import (
	"context"
	"fmt"

	"github.com/mvaldes/atlasbot/internal/assistant"
	"github.com/mvaldes/atlasbot/internal/jira"
	"github.com/mvaldes/atlasbot/internal/logging"
	"github.com/mvaldes/atlasbot/internal/provider"
)

// Client is the subset of the Jira client the agent consumes.
type Client interface {
	SearchAssigned(ctx context.Context, maxResults int) ([]jira.Issue, error)
	SearchByText(ctx context.Context, text string, maxResults int) ([]jira.Issue, error)
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
	AddComment(ctx context.Context, key, body string) error
	AddWorklog(ctx context.Context, key string, seconds int, comment, started string) error
	GetWorklogs(ctx context.Context, key string) ([]jira.Worklog, error)
	ListTransitions(ctx context.Context, key string) ([]jira.Transition, error)
	ApplyTransition(ctx context.Context, key, transitionID string) error
}

// Agent handles issue-domain messages through an LLM tool-calling loop.
type Agent struct {
	client Client
	runner *assistant.Runner
	logger *logging.Logger
}

// New creates the issue agent.
func New(p provider.Provider, client Client) *Agent {
	return &Agent{
		client: client,
		runner: assistant.NewRunner(p),
		logger: logging.GetLogger("issue-agent"),
	}
}

// Domain implements assistant.TaskAgent.
func (a *Agent) Domain() assistant.Domain {
	return assistant.DomainIssue
}

// Handle implements assistant.TaskAgent. The current user message is the
// last entry of the session history.
func (a *Agent) Handle(ctx context.Context, _ string, session *assistant.Session) (assistant.Outcome, error) {
	registry := a.buildRegistry(session)
	return a.runner.Run(ctx, a.systemPrompt(session), session.HistoryMessages(), registry)
}

func (a *Agent) systemPrompt(session *assistant.Session) string {
	return fmt.Sprintf(`Eres el asistente de Jira del equipo. Ayudas a consultar historias asignadas,
buscar issues, ver detalles, añadir comentarios, imputar horas y cambiar estados.

Fecha actual: %s (%s).

Reglas:
- Usa las herramientas disponibles; nunca inventes claves de issue ni datos.
- Cuando muestres una lista de issues, numérala empezando en 1 para que el usuario pueda referirse a "opción N".
- Si una fecha o duración es ambigua, pide aclaración en lugar de adivinar.
- Si la petición trata de páginas wiki, documentación o incidentes, llama a decline_request.
- Responde siempre en el idioma del usuario.`,
		session.Metadata()["fecha_actual"],
		session.Metadata()["fecha_actual_larga"])
}
