package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"intent": "cpu"}`,
			want:  `{"intent": "cpu"}`,
		},
		{
			name:  "object wrapped in prose",
			input: "Sure, here you go:\n{\"intent\": \"memory\"}\nHope this helps!",
			want:  `{"intent": "memory"}`,
		},
		{
			name:  "nested braces balanced",
			input: `{"filters": {"env": "prod"}, "intent": "cpu"}`,
			want:  `{"filters": {"env": "prod"}, "intent": "cpu"}`,
		},
		{
			name:  "braces inside strings ignored",
			input: `{"note": "use {curly} carefully"}`,
			want:  `{"note": "use {curly} carefully"}`,
		},
		{
			name:  "escaped quote inside string",
			input: `{"note": "she said \"hi\" {"}`,
			want:  `{"note": "she said \"hi\" {"}`,
		},
		{
			name:  "no json at all",
			input: "I cannot help with that.",
			want:  "",
		},
		{
			name:  "unbalanced object",
			input: `{"intent": "cpu"`,
			want:  "",
		},
		{
			name:  "fenced code block",
			input: "```json\n{\"intent\": \"alerts\"}\n```",
			want:  `{"intent": "alerts"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}
