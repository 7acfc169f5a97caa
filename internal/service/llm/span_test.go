package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONSpan(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		span, err := ExtractJSONSpan(`{"title": "x"}`)
		require.NoError(t, err)
		assert.Equal(t, `{"title": "x"}`, span)
	})

	t.Run("fenced object with prose", func(t *testing.T) {
		raw := "Here is your idea:\n```json\n{\"title\": \"x\", \"description\": \"y\"}\n```\nHope it helps!"
		span, err := ExtractJSONSpan(raw)
		require.NoError(t, err)

		var parsed map[string]string
		require.NoError(t, json.Unmarshal([]byte(span), &parsed))
		assert.Equal(t, "x", parsed["title"])
	})

	t.Run("braces inside string values", func(t *testing.T) {
		raw := `{"title": "a {weird} title", "description": "uses \"quotes\" and }"}`
		span, err := ExtractJSONSpan(raw)
		require.NoError(t, err)

		var parsed map[string]string
		require.NoError(t, json.Unmarshal([]byte(span), &parsed))
		assert.Equal(t, "a {weird} title", parsed["title"])
	})

	t.Run("array", func(t *testing.T) {
		span, err := ExtractJSONSpan("```\n[{\"a\": 1}, {\"a\": 2}]\n```")
		require.NoError(t, err)

		var parsed []map[string]int
		require.NoError(t, json.Unmarshal([]byte(span), &parsed))
		assert.Len(t, parsed, 2)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		_, err := ExtractJSONSpan("I could not produce an idea this time.")
		assert.Error(t, err)
	})

	t.Run("unbalanced JSON", func(t *testing.T) {
		_, err := ExtractJSONSpan(`{"title": "cut off`)
		assert.Error(t, err)
	})
}
