package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mvaldes/atlasbot/internal/assistant/tools"
	"github.com/mvaldes/atlasbot/internal/logging"
	"github.com/mvaldes/atlasbot/internal/provider"
)

// DeclineToolName is the tool an agent's model calls to hand the message
// back to the orchestrator for cross-agent reflection.
const DeclineToolName = "decline_request"

// maxToolIterations bounds the tool-calling loop per turn.
const maxToolIterations = 8

// Runner drives the LLM tool-calling loop shared by the task agents.
type Runner struct {
	provider provider.Provider
	logger   *logging.Logger
}

// NewRunner creates a runner over the given provider.
func NewRunner(p provider.Provider) *Runner {
	return &Runner{
		provider: p,
		logger:   logging.GetLogger("runner"),
	}
}

// Run executes one turn: it sends the conversation (whose last entry is
// the current user message) to the model with the registry's tools,
// executes requested tool calls and feeds the results back until the
// model produces a text reply or declines.
func (r *Runner) Run(ctx context.Context, systemPrompt string, conversation []provider.Message, registry *tools.Registry) (Outcome, error) {
	messages := append([]provider.Message{}, conversation...)

	defs := append(registry.ToProviderTools(), declineToolDefinition())

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		resp, err := r.provider.Chat(ctx, systemPrompt, messages, defs)
		if err != nil {
			return Outcome{}, fmt.Errorf("model call failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return Handled(resp.Content), nil
		}

		results := make([]provider.ToolResultBlock, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			if call.Name == DeclineToolName {
				r.logger.DebugWithFields("agent declined message", logging.Field("tool", call.Name))
				return Declined(), nil
			}

			result := registry.Execute(ctx, call.Name, call.Input)
			r.logger.DebugWithFields("executed tool",
				logging.Field("tool", call.Name),
				logging.Field("success", result.Success),
				logging.Field("duration_ms", result.ExecutionTimeMs))

			encoded, err := json.Marshal(result)
			if err != nil {
				encoded = []byte(fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()))
			}
			results = append(results, provider.ToolResultBlock{
				ToolUseID: call.ID,
				Content:   string(encoded),
				IsError:   !result.Success,
			})
		}

		messages = append(messages,
			provider.Message{Role: provider.RoleAssistant, Content: resp.Content, ToolUse: resp.ToolCalls},
			provider.Message{Role: provider.RoleUser, ToolResult: results},
		)
	}

	return Outcome{}, fmt.Errorf("tool loop exceeded %d iterations", maxToolIterations)
}

func declineToolDefinition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        DeclineToolName,
		Description: "Llama a esta herramienta cuando la petición del usuario NO pertenece a tu dominio y otro agente debería atenderla. No expliques nada, solo invócala.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Motivo breve por el que no puedes atender la petición",
				},
			},
		},
	}
}
