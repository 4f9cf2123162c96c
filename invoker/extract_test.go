package invoker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		stance any
	}{
		{"whole text", `  {"stance": "A"}  `, "A"},
		{"json fence", "Here you go:\n```json\n{\"stance\": \"B\"}\n```", "B"},
		{"json fence wins over later bare object", "```json\n{\"stance\": \"B\"}\n```\n{\"stance\": \"C\"}", "B"},
		{"plain fence", "```\n{\"stance\": \"C\"}\n```", "C"},
		{"other language fence", "```javascript\n{\"stance\": \"C\"}\n```", "C"},
		{"embedded object", `I think {"stance": "A", "rationale": "a {tricky} \"quote\""} is right.`, "A"},
		{"skips invalid leading braces", `set {x} then {"stance": "B"}`, "B"},
		{"nested object", `prefix {"stance": "A", "meta": {"changed": true}} suffix`, "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := Extract(tt.text)
			if assert.True(t, ok) {
				assert.Equal(t, tt.stance, obj["stance"])
			}
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	for _, text := range []string{
		"",
		"no json here",
		`["an", "array"]`,
		`{"unterminated": `,
		"```json\nnot json\n```",
	} {
		_, ok := Extract(text)
		assert.False(t, ok, text)
	}
}

func TestExtract_NestedValues(t *testing.T) {
	obj, ok := Extract(`{"decision_meta": {"changed": true}, "n": 2}`)
	assert.True(t, ok)
	meta := obj["decision_meta"].(map[string]any)
	assert.Equal(t, true, meta["changed"])
	assert.Equal(t, float64(2), obj["n"])
}
