package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCodeBlock(t *testing.T) {
	text := "Here's a fix:\n```go\nfunc main() {\n\tprintln(\"hi\")\n}\n```\nHope that helps."
	code := ExtractCodeBlock(text)
	assert.Equal(t, "func main() {\n\tprintln(\"hi\")\n}", code)

	assert.Empty(t, ExtractCodeBlock("no code here"))
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		query string
		code  string
		want  ResponseType
	}{
		{"can you improve this?", "x := 1", ResponseTypeSuggestion},
		{"make it better", "x := 1", ResponseTypeSuggestion},
		{"fix this bug", "x := 1", ResponseTypeFix},
		{"why does this error?", "x := 1", ResponseTypeFix},
		{"write a sort function", "x := 1", ResponseTypeCode},
		{"implement a queue", "x := 1", ResponseTypeCode},
		{"what does this do?", "x := 1", ResponseTypeExplanation},
		{"fix this bug", "", ResponseTypeExplanation},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyResponse(tt.query, tt.code), "query=%q", tt.query)
	}
}

func TestAssist(t *testing.T) {
	o, c := newTestOrchestrator(t, "Try this instead:\n```python\nprint('fixed')\n```")

	resp, err := o.Assist(context.Background(), AssistRequest{
		Code:     "print('broken'",
		Language: "python",
		Query:    "fix the syntax error",
	})
	require.NoError(t, err)

	assert.Equal(t, ResponseTypeFix, resp.Type)
	assert.Equal(t, "print('fixed')", resp.Code)
	assert.Contains(t, c.user, "expert python programmer")
	assert.Contains(t, c.user, "print('broken'")
}

func TestAssist_ProseAnswer(t *testing.T) {
	o, _ := newTestOrchestrator(t, "This function sums a slice.")

	resp, err := o.Assist(context.Background(), AssistRequest{
		Code:     "func sum(xs []int) int { ... }",
		Language: "go",
		Query:    "what does this do?",
	})
	require.NoError(t, err)

	assert.Equal(t, ResponseTypeExplanation, resp.Type)
	assert.Empty(t, resp.Code)
}
