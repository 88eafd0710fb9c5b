package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "fenced json block",
			content: "Here is the result:\n```json\n{\"a\": 1}\n```\nDone.",
			want:    `{"a": 1}`,
		},
		{
			name:    "fence without language tag",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "surrounding prose",
			content: `Sure! {"a": 1} Hope that helps.`,
			want:    `{"a": 1}`,
		},
		{
			name:    "trailing comma removed",
			content: `{"a": 1, "b": 2,}`,
			want:    `{"a": 1, "b": 2}`,
		},
		{
			name:    "no json at all",
			content: "I cannot help with that.",
			want:    "",
		},
		{
			name:    "empty input",
			content: "",
			want:    "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSON(tc.content))
		})
	}
}

func TestExtractJSON_StripsComments(t *testing.T) {
	content := `{
	"url": "http://example.com", // keep the URL intact
	"count": 3, // trailing comment
}`

	out := ExtractJSON(content)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "http://example.com", parsed["url"])
	assert.Equal(t, float64(3), parsed["count"])
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare array",
			content: `[1, 2, 3]`,
			want:    `[1, 2, 3]`,
		},
		{
			name:    "fenced array",
			content: "```json\n[\"x\", \"y\"]\n```",
			want:    `["x", "y"]`,
		},
		{
			name:    "trailing comma",
			content: `[1, 2,]`,
			want:    `[1, 2]`,
		},
		{
			name:    "no array",
			content: "nothing here",
			want:    "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSONArray(tc.content))
		})
	}
}
