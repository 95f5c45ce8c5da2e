package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `{"id":"u1"}`, `{"id":"u1"}`},
		{"surrounding whitespace", "\n\n  {\"id\":\"u1\"}  \n", `{"id":"u1"}`},
		{"fence with language tag", "```json\n{\"id\":\"u1\"}\n```", `{"id":"u1"}`},
		{"fence without language tag", "```\n[{\"id\":\"u1\"}]\n```", `[{"id":"u1"}]`},
		{"fence without trailing newline", "```json\n{\"id\":\"u1\"}```", `{"id":"u1"}`},
		{"fence on one line", "```json{\"id\":\"u1\"}```", `{"id":"u1"}`},
		{"missing closing fence", "```json\n{\"id\":\"u1\"}", `{"id":"u1"}`},
		{"only closing fence", "{\"id\":\"u1\"}\n```", `{"id":"u1"}`},
		{"crlf line endings", "```json\r\n{\"id\":\"u1\"}\r\n```\r\n", `{"id":"u1"}`},
		{"think tags before fence", "<think>checking fields</think>\n```json\n{\"id\":\"u1\"}\n```", `{"id":"u1"}`},
		{"scalar body kept", "```true```", "true"},
		{"prose is untouched", "Sure! Here is the advice.", "Sure! Here is the advice."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnwrapFences(tt.input))
		})
	}
}

func TestUnwrapFences_Idempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1}\n```",
		"  [1,2,3]  ",
		"```\n{\"a\":\"```\"}\n```",
		"not json at all",
	}
	for _, in := range inputs {
		once := UnwrapFences(in)
		assert.Equal(t, once, UnwrapFences(once), in)
	}
}

func TestUnwrapFences_SameParseResultAsUnfenced(t *testing.T) {
	payload := `[{"id":"u1","sleep_analysis":"ok"},{"id":"u2","sleep_analysis":"short"}]`
	fenced := "```json\n" + payload + "\n```"

	var want, got any
	require.NoError(t, json.Unmarshal([]byte(UnwrapFences(payload)), &want))
	require.NoError(t, json.Unmarshal([]byte(UnwrapFences(fenced)), &got))
	assert.Equal(t, want, got)
}
