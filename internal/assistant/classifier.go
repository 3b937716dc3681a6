package assistant

import (
	"context"
	"strings"

	"github.com/mvaldes/atlasbot/internal/logging"
	"github.com/mvaldes/atlasbot/internal/provider"
)

const classifierPrompt = `Eres un clasificador de mensajes para un asistente de equipo.
Clasifica el mensaje del usuario en exactamente una de estas categorías:

- jira: tareas, historias, issues, worklogs, imputación de horas, transiciones de estado
- confluence: páginas wiki, documentación, búsqueda de documentos, espacios
- incidente: el usuario quiere reportar o registrar un incidente
- unsure: no está claro a qué categoría pertenece

Responde ÚNICAMENTE con la palabra de la categoría, sin explicación.`

// Classifier maps a user message to a conversation domain with a
// single-shot LLM call.
type Classifier struct {
	provider provider.Provider
	logger   *logging.Logger
}

// NewClassifier creates a classifier backed by the given provider.
func NewClassifier(p provider.Provider) *Classifier {
	return &Classifier{
		provider: p,
		logger:   logging.GetLogger("classifier"),
	}
}

// Classify returns the domain for a message. Provider failures and
// unrecognized labels both degrade to DomainUnsure so routing can fall
// back to the sticky domain.
func (c *Classifier) Classify(ctx context.Context, message string) Domain {
	resp, err := c.provider.Chat(ctx, classifierPrompt, []provider.Message{
		{Role: provider.RoleUser, Content: message},
	}, nil)
	if err != nil {
		c.logger.WarnWithFields("classification failed, treating as unsure", logging.Field("error", err.Error()))
		return DomainUnsure
	}

	label := strings.ToLower(strings.TrimSpace(resp.Content))
	domain := parseLabel(label)
	c.logger.DebugWithFields("classified message",
		logging.Field("label", label),
		logging.Field("domain", string(domain)))
	return domain
}

func parseLabel(label string) Domain {
	switch {
	case strings.Contains(label, "jira") || strings.Contains(label, "issue"):
		return DomainIssue
	case strings.Contains(label, "confluence") || strings.Contains(label, "wiki"):
		return DomainWiki
	case strings.Contains(label, "incidente") || strings.Contains(label, "incident"):
		return DomainIncident
	default:
		return DomainUnsure
	}
}
