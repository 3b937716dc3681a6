package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockProvider implements Provider with pre-scripted responses for tests.
// Responses are consumed in order; each Chat call pops the next one.
type MockProvider struct {
	mu        sync.Mutex
	responses []*Response
	calls     []MockCall
	err       error
}

// MockCall records one Chat invocation for assertions.
type MockCall struct {
	Timestamp    time.Time
	SystemPrompt string
	Messages     []Message
	ToolNames    []string
}

// NewMockProvider creates a mock that replays the given responses in order.
func NewMockProvider(responses ...*Response) *MockProvider {
	return &MockProvider{responses: responses}
}

// Enqueue appends responses to the script.
func (m *MockProvider) Enqueue(responses ...*Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// FailWith makes every subsequent Chat call return err.
func (m *MockProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Chat implements Provider.Chat by replaying the scripted responses.
func (m *MockProvider) Chat(_ context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	toolNames := make([]string, 0, len(tools))
	for _, tool := range tools {
		toolNames = append(toolNames, tool.Name)
	}
	m.calls = append(m.calls, MockCall{
		Timestamp:    time.Now(),
		SystemPrompt: systemPrompt,
		Messages:     append([]Message{}, messages...),
		ToolNames:    toolNames,
	})

	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock provider: no scripted response for call %d", len(m.calls))
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// Name implements Provider.Name.
func (m *MockProvider) Name() string {
	return "mock"
}

// Model implements Provider.Model.
func (m *MockProvider) Model() string {
	return "mock-model"
}

// Calls returns a copy of the recorded Chat invocations.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// TextResponse builds a plain-text end-of-turn response.
func TextResponse(text string) *Response {
	return &Response{Content: text, StopReason: StopReasonEndTurn}
}

// ToolCallResponse builds a response requesting a single tool call.
func ToolCallResponse(id, name, inputJSON string) *Response {
	return &Response{
		ToolCalls: []ToolUseBlock{
			{ID: id, Name: name, Input: []byte(inputJSON)},
		},
		StopReason: StopReasonToolUse,
	}
}

var _ Provider = (*MockProvider)(nil)
