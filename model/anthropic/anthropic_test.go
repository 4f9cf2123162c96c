package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/model"
)

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t, "sys", systemPrompt(model.Request{System: "sys"}))

	got := systemPrompt(model.Request{System: "sys", Schema: map[string]any{"type": "object"}})
	assert.Contains(t, got, "sys\n\n")
	assert.Contains(t, got, `{"type":"object"}`)
}

func TestModel_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-sonnet-20241022",
  "content": [{"type": "text", "text": "{\"stance\":\"B\"}"}],
  "stop_reason": "end_turn", "stop_sequence": null,
  "usage": {"input_tokens": 10, "output_tokens": 6}
}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	resp, err := m.Generate(context.Background(), model.Request{Prompt: "hi", MaxTokens: 64, Schema: map[string]any{"type": "object"}})
	require.NoError(t, err)
	assert.Equal(t, `{"stance":"B"}`, resp.Text)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
	assert.Equal(t, float64(64), body["max_tokens"])
	assert.NotEmpty(t, body["system"])
}
