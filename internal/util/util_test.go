package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decision struct {
	Stance    string  `json:"stance" description:"chosen stance"`
	Rationale string  `json:"rationale"`
	Changed   bool    `json:"changed"`
	Reason    string  `json:"change_reason" enum:"X,Y"`
	Note      *string `json:"note"`
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor(decision{})
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"stance", "rationale", "changed", "change_reason"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, "boolean", props["changed"].(map[string]any)["type"])
	assert.Equal(t, []string{"X", "Y"}, props["change_reason"].(map[string]any)["enum"])
	assert.Equal(t, "chosen stance", props["stance"].(map[string]any)["description"])

	assert.True(t, Restrict(schema, "stance", []string{"A", "B"}))
	assert.False(t, Restrict(schema, "missing", []string{"A"}))
}

func TestValidate(t *testing.T) {
	schema := SchemaFor(&decision{})
	Restrict(schema, "stance", []string{"A", "B"})

	ok := map[string]any{"stance": "A", "rationale": "r", "changed": false, "change_reason": "X", "extra": 1}
	require.NoError(t, Validate(ok, schema))

	tests := []struct {
		name  string
		mut   func(m map[string]any)
		field string
	}{
		{"missing required", func(m map[string]any) { delete(m, "rationale") }, "rationale"},
		{"wrong type", func(m map[string]any) { m["changed"] = "yes" }, "changed"},
		{"enum violation", func(m map[string]any) { m["stance"] = "C" }, "stance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := map[string]any{}
			for k, v := range ok {
				m[k] = v
			}
			tt.mut(m)
			err := Validate(m, schema)
			var fErr *FieldError
			require.ErrorAs(t, err, &fErr)
			assert.Equal(t, tt.field, fErr.Field)
		})
	}
}

func TestValidate_DecodedSchema(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"required":   []any{"stance"},
		"properties": map[string]any{"stance": map[string]any{"type": "string", "enum": []any{"A"}}},
	}
	assert.Error(t, Validate(map[string]any{}, schema))
	assert.NoError(t, Validate(map[string]any{"stance": "A"}, schema))
}

func TestTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("t", `{{join " or " .Options}} & <more>{{range $i, $o := .Options}} {{inc $i}}{{end}}`)
	require.NoError(t, err)
	out, err := ExecuteTemplate(tmpl, map[string]any{"Options": []string{"A", "B"}})
	require.NoError(t, err)
	assert.Equal(t, "A or B & <more> 1 2", out, "prompts must not be HTML escaped")

	_, err = ParseTemplate("broken", "{{.Broken")
	assert.Error(t, err)
}
