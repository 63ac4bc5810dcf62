package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extractInput struct {
	Document string   `json:"document" description:"raw document text"`
	Language string   `json:"language,omitempty"`
	Limit    *int     `json:"limit"`
	Tags     []string `json:"tags,omitempty"`
	ignored  string   //nolint:unused
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor(extractInput{})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "string", "description": "raw document text"}, props["document"])
	assert.Equal(t, map[string]any{"type": "string"}, props["language"])
	assert.Equal(t, map[string]any{"type": "integer"}, props["limit"])
	assert.Equal(t, map[string]any{"type": "array"}, props["tags"])
	assert.NotContains(t, props, "ignored")

	// Only non-pointer fields without omitempty are required.
	assert.Equal(t, []string{"document"}, schema["required"])
}

func TestSchemaFor_NonStruct(t *testing.T) {
	schema := SchemaFor(42)
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestValidateFields(t *testing.T) {
	schema := SchemaFor(extractInput{})

	err := ValidateFields(map[string]any{"document": "text", "limit": 3}, schema)
	assert.NoError(t, err)

	err = ValidateFields(map[string]any{"limit": 3}, schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "document", verr.Field)
	assert.Contains(t, verr.Message, "missing")

	err = ValidateFields(map[string]any{"document": 7}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "document", verr.Field)
	assert.Contains(t, verr.Message, "expected type string")

	// JSON numbers arrive as float64; whole values count as integers.
	assert.NoError(t, ValidateFields(map[string]any{"document": "x", "limit": float64(3)}, schema))
	assert.Error(t, ValidateFields(map[string]any{"document": "x", "limit": 3.5}, schema))

	// Unknown fields pass through.
	assert.NoError(t, ValidateFields(map[string]any{"document": "x", "extra": true}, schema))
}

func TestValidateFields_RequiredFromJSON(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []any{"name"},
	}
	assert.Error(t, ValidateFields(map[string]any{}, schema))
	assert.NoError(t, ValidateFields(map[string]any{"name": "x"}, schema))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = RenderTemplate(
		"Summarize {{.doc}} in {{upper .lang}} using {{join \", \" .styles}}",
		map[string]any{"doc": "report", "lang": "en", "styles": []any{"bullet", "prose"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "Summarize report in EN using bullet, prose", out)

	out, err = RenderTemplate(`{{default "anonymous" .author}}`, map[string]any{"author": ""})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", out)

	_, err = RenderTemplate("{{.missing}}", map[string]any{})
	assert.Error(t, err)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
