// Package tools provides tool registry and execution for the assistant's task agents.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mvaldes/atlasbot/internal/logging"
	"github.com/mvaldes/atlasbot/internal/provider"
)

const (
	// MaxToolResponseBytes is the maximum size of a tool response in bytes.
	// Responses larger than this will be truncated to prevent context overflow.
	MaxToolResponseBytes = 50 * 1024
)

// truncatedData is used when tool output exceeds MaxToolResponseBytes.
// It preserves structure while indicating data was truncated.
type truncatedData struct {
	Truncated      bool   `json:"_truncated"`
	OriginalBytes  int    `json:"_original_bytes"`
	TruncatedBytes int    `json:"_truncated_bytes"`
	TruncationNote string `json:"_truncation_note"`
	PartialData    string `json:"partial_data"`
}

// truncateResult checks if the result data exceeds maxBytes and truncates
// it if necessary to prevent context overflow.
func truncateResult(result *Result, maxBytes int) *Result {
	if result == nil || result.Data == nil {
		return result
	}

	dataBytes, err := json.Marshal(result.Data)
	if err != nil {
		return result
	}

	if len(dataBytes) <= maxBytes {
		return result
	}

	partialDataBytes := maxBytes * 80 / 100
	partialData := string(dataBytes)
	if len(partialData) > partialDataBytes {
		partialData = partialData[:partialDataBytes]
	}

	truncated := &truncatedData{
		Truncated:      true,
		OriginalBytes:  len(dataBytes),
		TruncatedBytes: maxBytes,
		TruncationNote: fmt.Sprintf("Response truncated from %d to ~%d bytes to prevent context overflow. Consider using more specific filters to reduce result size.", len(dataBytes), maxBytes),
		PartialData:    partialData,
	}

	summary := result.Summary
	if summary != "" {
		summary = fmt.Sprintf("%s [TRUNCATED: %d->%d bytes]", summary, len(dataBytes), maxBytes)
	} else {
		summary = fmt.Sprintf("[TRUNCATED: %d->%d bytes]", len(dataBytes), maxBytes)
	}

	return &Result{
		Success:         result.Success,
		Data:            truncated,
		Error:           result.Error,
		Summary:         summary,
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
}

// Tool defines the interface for agent tools.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns JSON Schema for input validation.
	InputSchema() map[string]interface{}

	// Execute runs the tool with given input.
	Execute(ctx context.Context, input json.RawMessage) (*Result, error)
}

// Result represents the output of a tool execution.
type Result struct {
	// Success indicates if the tool executed successfully
	Success bool `json:"success"`

	// Data contains the tool's output (tool-specific structure)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details if Success is false
	Error string `json:"error,omitempty"`

	// Summary is a brief description of what happened (for display)
	Summary string `json:"summary,omitempty"`

	// ExecutionTimeMs is how long the tool took to run
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

// Registry manages tool registration and discovery.
type Registry struct {
	tools  map[string]Tool
	order  []string
	mu     sync.RWMutex
	logger *logging.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logging.GetLogger("tools"),
	}
}

// Register adds a tool to the registry, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.logger.DebugWithFields("registered tool", logging.Field("name", tool.Name()))
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// ToProviderTools converts registry tools to provider tool definitions.
func (r *Registry) ToProviderTools() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDefinition, 0, len(r.tools))
	for _, name := range r.order {
		tool := r.tools[name]
		defs = append(defs, provider.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return defs
}

// Execute runs a tool by name with the given input. Tool errors are
// converted to failed Results so the model always receives a structured
// response it can react to.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) *Result {
	tool, ok := r.Get(name)
	if !ok {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("tool %q not found", name),
		}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	if err != nil {
		return &Result{
			Success:         false,
			Error:           err.Error(),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}
	}

	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	return truncateResult(result, MaxToolResponseBytes)
}

// Func adapts a plain function into a Tool. It keeps the per-agent tool
// sets small where a dedicated struct per tool would add nothing.
type Func struct {
	ToolName        string
	ToolDescription string
	Schema          map[string]interface{}
	Run             func(ctx context.Context, input json.RawMessage) (*Result, error)
}

func (f *Func) Name() string                        { return f.ToolName }
func (f *Func) Description() string                 { return f.ToolDescription }
func (f *Func) InputSchema() map[string]interface{} { return f.Schema }

func (f *Func) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	return f.Run(ctx, input)
}

var _ Tool = (*Func)(nil)
