package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "json code block", input: "```json\n{\"urgency\": \"High\"}\n```", expected: `{"urgency": "High"}`},
		{name: "generic code block", input: "```\n{\"urgency\": \"High\"}\n```", expected: `{"urgency": "High"}`},
		{name: "plain JSON", input: `{"urgency": "Low"}`, expected: `{"urgency": "Low"}`},
		{name: "preamble", input: "Here is the analysis:\n{\"urgency\": \"Medium\"}", expected: `{"urgency": "Medium"}`},
		{name: "trailing text", input: "{\"urgency\": \"Low\"}\n\nLet me know if you need more.", expected: `{"urgency": "Low"}`},
		{name: "array with preamble", input: "Areas:\n[\"Tax\", \"Arbitration\"]", expected: `["Tax", "Arbitration"]`},
		{name: "escaped quotes", input: `Result: {"briefAdvice": "Say \"no\" to {threats}"}`, expected: `{"briefAdvice": "Say \"no\" to {threats}"}`},
		{name: "nested", input: "Out: {\"a\": {\"b\": {\"c\": 1}}}", expected: `{"a": {"b": {"c": 1}}}`},
		{name: "no JSON", input: "  nothing here  ", expected: "nothing here"},
		{name: "unbalanced", input: `{"a": 1`, expected: `{"a": 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"template": "Hello {name}!"}`, extractJSONObject(`{"template": "Hello {name}!"} tail`))
	assert.Equal(t, `[[1, 2], [3]]`, extractJSONArray(`[[1, 2], [3]] extra`))
	assert.Equal(t, "", extractJSONObject(""))
	assert.Equal(t, "", extractJSONObject("not json"))
	assert.Equal(t, "", extractJSONArray(`{"a": 1}`))
}
