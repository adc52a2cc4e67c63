package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ResponseType classifies an assist answer for the client. The
// classification is a best-effort heuristic over the query and the answer
// text; a wrong guess only degrades metadata, never the answer itself.
type ResponseType string

const (
	ResponseTypeExplanation ResponseType = "explanation"
	ResponseTypeSuggestion  ResponseType = "suggestion"
	ResponseTypeFix         ResponseType = "fix"
	ResponseTypeCode        ResponseType = "code"
)

// AssistRequest is a code-aware question about a single file.
type AssistRequest struct {
	Code     string
	Language string
	Query    string
	Context  []ContextMessage
}

// AssistResponse is the answer plus extracted metadata.
type AssistResponse struct {
	Content string       `json:"content"`
	Type    ResponseType `json:"type"`
	Code    string       `json:"code,omitempty"`
}

const assistSystemPrompt = `You are an expert programming assistant. You help developers write better code by providing explanations, suggestions, improvements, and debugging help. Always be helpful, accurate, and concise.`

const (
	assistTemperature = 0.7
	assistMaxTokens   = 1000
)

func buildAssistPrompt(req AssistRequest) string {
	var sb strings.Builder

	if len(req.Context) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, msg := range req.Context {
			role := "Assistant"
			if msg.Role == "user" {
				role = "User"
			}
			fmt.Fprintf(&sb, "%s: %s\n", role, msg.Content)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "You are an expert %s programmer and coding assistant.\n\n", req.Language)
	fmt.Fprintf(&sb, "Current code (%s):\n```%s\n%s\n```\n\n", req.Language, req.Language, req.Code)
	fmt.Fprintf(&sb, "User query: %s\n\n", req.Query)
	sb.WriteString("Provide a helpful response. If the user is asking for code improvements, suggestions, or fixes, provide the modified code in a code block. Be concise but thorough.")
	return sb.String()
}

// Assist answers a code question. Completion failure is surfaced as a
// top-level error; heuristic failures are not errors at all.
func (o *Orchestrator) Assist(ctx context.Context, req AssistRequest) (*AssistResponse, error) {
	content, err := o.completer.Complete(ctx, assistSystemPrompt, buildAssistPrompt(req), assistTemperature, assistMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	code := ExtractCodeBlock(content)
	return &AssistResponse{
		Content: content,
		Type:    ClassifyResponse(req.Query, code),
		Code:    code,
	}, nil
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]*)\n(.*?)\n```")

// ExtractCodeBlock returns the first fenced code block in text, or "".
func ExtractCodeBlock(text string) string {
	m := codeBlockRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ClassifyResponse guesses a response type from the query's wording. The
// guess only applies when the answer actually carried code; prose-only
// answers are always explanations.
func ClassifyResponse(query, code string) ResponseType {
	if code == "" {
		return ResponseTypeExplanation
	}
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "improve") || strings.Contains(q, "better"):
		return ResponseTypeSuggestion
	case strings.Contains(q, "fix") || strings.Contains(q, "bug") || strings.Contains(q, "error"):
		return ResponseTypeFix
	case strings.Contains(q, "write") || strings.Contains(q, "create") || strings.Contains(q, "implement"):
		return ResponseTypeCode
	default:
		return ResponseTypeExplanation
	}
}
