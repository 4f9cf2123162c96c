package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotReady is returned by Checker implementations when the backend is
// reachable but cannot serve the configured model.
var ErrNotReady = errors.New("model backend not ready")

// Request is a single structured-output generation request.
type Request struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Seed        *int64  `json:"seed,omitempty"`
	// Schema, when set, asks the backend to constrain output to this JSON
	// schema. Backends without schema support fall back to plain JSON mode.
	Schema map[string]any `json:"schema,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the raw completion of one request.
type Response struct {
	Text         string      `json:"text"`
	Model        string      `json:"model,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "ollama", "openai", "anthropic", "mock"
}

// Model is the minimal interface the invoker drives. Implementations must be
// safe for concurrent use and must honour context cancellation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Checker is implemented by backends that can verify, before a run starts,
// that the service is reachable and the configured model is available.
type Checker interface {
	Ready(ctx context.Context) error
}

// GenerateFunc adapts a function into a scripted MockModel step.
type GenerateFunc func(ctx context.Context, req Request) (*Response, error)

// MockModel is an in-memory Model useful for tests and dry runs. Scripted
// steps are consumed in order; once exhausted the fallback answers.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	steps    []GenerateFunc
	fallback GenerateFunc
	requests []Request
	readyErr error
}

var (
	_ Model   = (*MockModel)(nil)
	_ Checker = (*MockModel)(nil)
)

// NewMockModel constructs a MockModel whose fallback echoes an empty object.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:     Info{Name: name, Provider: "mock"},
		fallback: Text("{}"),
	}
}

// Text returns a step answering with a fixed completion.
func Text(text string) GenerateFunc {
	return func(context.Context, Request) (*Response, error) {
		return &Response{Text: text, FinishReason: "stop"}, nil
	}
}

// Fail returns a step failing with err.
func Fail(err error) GenerateFunc {
	return func(context.Context, Request) (*Response, error) { return nil, err }
}

// AddResponse queues a scripted completion.
func (m *MockModel) AddResponse(text string) *MockModel { return m.AddStep(Text(text)) }

// AddError queues a scripted failure.
func (m *MockModel) AddError(err error) *MockModel { return m.AddStep(Fail(err)) }

// AddStep queues an arbitrary step.
func (m *MockModel) AddStep(fn GenerateFunc) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, fn)
	return m
}

// SetFallback replaces the answer used once the script is exhausted.
func (m *MockModel) SetFallback(fn GenerateFunc) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
	return m
}

// SetReadyError makes Ready fail with err.
func (m *MockModel) SetReadyError(err error) { m.mu.Lock(); m.readyErr = err; m.mu.Unlock() }

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	step := m.fallback
	if len(m.steps) > 0 {
		step = m.steps[0]
		m.steps = m.steps[1:]
	}
	m.mu.Unlock()

	if step == nil {
		return nil, fmt.Errorf("mock model %s: no response scripted", m.info.Name)
	}
	resp, err := step(ctx, req)
	if resp != nil && resp.Model == "" {
		resp.Model = m.info.Name
	}
	return resp, err
}

// Ready implements Checker.
func (m *MockModel) Ready(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyErr
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
