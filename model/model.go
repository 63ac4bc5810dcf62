package model

import (
	"context"
	"fmt"
	"sync"
)

// Prompt captures the normalized input handed to a provider adapter.
type Prompt struct {
	// System carries optional system instructions.
	System string `json:"system,omitempty"`

	// Text is the user prompt. Required.
	Text string `json:"text"`

	// MaxTokens caps the completion length. Zero means the adapter default.
	MaxTokens int64 `json:"max_tokens,omitempty"`

	// Temperature overrides the adapter default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
}

// TokenUsage captures token usage statistics for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the final result of a generation call.
type Completion struct {
	Text         string      `json:"text"`
	Model        string      `json:"model"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Generate(ctx context.Context, prompt Prompt) (Completion, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Canned completions are keyed by exact prompt text; unmatched prompts fall
// back to an echo of the input.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	err       error
	calls     []Prompt
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith makes every subsequent Generate call return err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the prompts seen so far, oldest first.
func (m *MockModel) Calls() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Prompt, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, prompt Prompt) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, prompt)

	if m.err != nil {
		return Completion{}, m.err
	}
	if prompt.Text == "" {
		return Completion{}, fmt.Errorf("empty prompt")
	}

	text, ok := m.responses[prompt.Text]
	if !ok {
		text = "echo: " + prompt.Text
	}
	return Completion{
		Text:         text,
		Model:        m.info.Name,
		FinishReason: "stop",
		Usage: &TokenUsage{
			PromptTokens:     len(prompt.Text) / 4,
			CompletionTokens: len(text) / 4,
			TotalTokens:      (len(prompt.Text) + len(text)) / 4,
		},
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
