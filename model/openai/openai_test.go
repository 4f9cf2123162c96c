package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/model"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"stance\":\"A\"}"}}],
  "usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
}`

func TestModel_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test"
	})
	resp, err := m.Generate(context.Background(), model.Request{
		System:      "sys",
		Prompt:      "hi",
		Temperature: 0.2,
		MaxTokens:   32,
		Seed:        core.Int64(5),
		Schema:      map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"stance":"A"}`, resp.Text)
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	assert.Equal(t, float64(5), body["seed"])
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestModel_Info(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "gpt-4.1"; o.APIKey = "test" })
	assert.Equal(t, model.Info{Name: "gpt-4.1", Provider: "openai"}, m.Info())
}
