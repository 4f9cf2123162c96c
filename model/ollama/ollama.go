// Package ollama provides an implementation of model.Model backed by a local
// Ollama server's /api/generate endpoint. Structured output is requested via
// the "format" field (a JSON schema, or "json" when no schema is given).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hupe1980/agoramesh/model"
)

var tracer = otel.Tracer("agoramesh.model.ollama")

// DefaultBaseURL is the address of a local Ollama install.
const DefaultBaseURL = "http://localhost:11434"

// Options configure the Ollama adapter.
type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Model talks to Ollama over HTTP.
type Model struct {
	httpClient *http.Client
	baseURL    string
	opts       Options
}

var (
	_ model.Model   = (*Model)(nil)
	_ model.Checker = (*Model)(nil)
)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  any            `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewModel creates an Ollama adapter. Per-call deadlines come from the
// context; the HTTP client carries no timeout of its own by default.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL:    DefaultBaseURL,
		Model:      "llama3.1:8b",
		HTTPClient: &http.Client{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		opts:       opts,
	}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	ctx, span := tracer.Start(ctx, "ollama.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", m.opts.Model))

	options := map[string]any{
		"temperature": req.Temperature,
		"num_predict": req.MaxTokens,
	}
	if req.Seed != nil {
		options["seed"] = *req.Seed
	}
	var format any = "json"
	if len(req.Schema) > 0 {
		format = req.Schema
	}
	payload := generateRequest{
		Model:   m.opts.Model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  false,
		Format:  format,
		Options: options,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := m.do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	span.SetAttributes(attribute.Int("llm.eval_count", out.EvalCount))

	return &model.Response{
		Text:         out.Response,
		Model:        out.Model,
		FinishReason: out.DoneReason,
		Usage: &model.TokenUsage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

// Ready implements model.Checker. It lists the installed models and matches
// on the name before the tag, so "llama3.1" matches "llama3.1:8b".
func (m *Model) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create ollama request: %w", err)
	}
	body, err := m.do(httpReq)
	if err != nil {
		return err
	}
	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return fmt.Errorf("decode ollama tags: %w", err)
	}

	want := baseName(m.opts.Model)
	available := make([]string, 0, len(tags.Models))
	for _, t := range tags.Models {
		if baseName(t.Name) == want {
			return nil
		}
		available = append(available, t.Name)
	}
	return fmt.Errorf("%w: model %q not found (available: %s); run 'ollama pull %s'",
		model.ErrNotReady, m.opts.Model, strings.Join(available, ", "), m.opts.Model)
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "ollama"}
}

func (m *Model) do(req *http.Request) ([]byte, error) {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func baseName(name string) string {
	base, _, _ := strings.Cut(name, ":")
	return base
}
