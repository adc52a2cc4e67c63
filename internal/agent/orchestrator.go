// Package agent glues the completion service to the action parser and the
// execution engine, and reconciles resulting file state back to callers.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/workbench-dev/workbench/internal/action"
	"github.com/workbench-dev/workbench/internal/engine"
	"github.com/workbench-dev/workbench/internal/models"
)

// Completer is the completion service dependency: opaque, potentially slow,
// potentially empty-returning.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float64, maxTokens int64) (string, error)
}

// Mode selects how much initiative the agent takes.
type Mode string

const (
	ModeAutonomous Mode = "autonomous"
	ModeChat       Mode = "chat"
)

// Completion bounds for a full agent turn.
const (
	agentTemperature = 0.3
	agentMaxTokens   = 3000
)

// ContextMessage is one prior turn of the conversation.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one agent turn.
type Request struct {
	Message   string
	ProjectID string
	Files     []models.FileRecord
	Context   []ContextMessage
	Mode      Mode
}

// Response is the result of one agent turn: the raw assistant message, the
// parsed (now inert) action list for client display, the merged file list,
// and the execution transcript.
type Response struct {
	Message string              `json:"message"`
	Actions []action.Action     `json:"actions"`
	Files   []models.FileRecord `json:"files"`
	Output  string              `json:"output,omitempty"`
	Status  engine.Status       `json:"status"`
}

// Orchestrator runs agent turns.
type Orchestrator struct {
	completer Completer
	engine    *engine.Engine
}

// NewOrchestrator creates an orchestrator over the given completion service
// and execution engine.
func NewOrchestrator(c Completer, e *engine.Engine) *Orchestrator {
	return &Orchestrator{completer: c, engine: e}
}

const agentSystemPrompt = `You are an autonomous AI coding agent. You can read, create, edit, and delete files, run commands, and build complete applications.

Your capabilities:
1. Create new files with proper content
2. Edit existing files by modifying their content
3. Delete files when necessary
4. Run terminal commands and execute code
5. Build complete projects from scratch
6. Debug and fix issues
7. Explain code and concepts

When responding, you must structure your response as follows:
1. First, explain what you're going to do
2. Then, provide specific actions in this format:
   ACTION: create_file|edit_file|delete_file|run_command|create_project|explain
   TARGET: filename or command
   CONTENT: file content (for create/edit)
   REASONING: why you're taking this action

3. Provide your response message
4. Continue with next actions if needed

Example response format:
I'll create a simple web application with HTML, CSS, and JavaScript files.

ACTION: create_file
TARGET: index.html
CONTENT: <!DOCTYPE html>
<html>
<head>
    <title>My App</title>
</head>
<body>
    <h1>Hello World</h1>
</body>
</html>
REASONING: Creating the main HTML file for the web application

ACTION: create_file
TARGET: styles.css
CONTENT: body { font-family: Arial; margin: 0; padding: 20px; }
REASONING: Adding basic styling for the application

I've created a basic web application with HTML and CSS files. You can now open index.html in your browser to see the result.

Always be specific about file names and paths. Use appropriate file extensions and languages.`

// buildUserPrompt embeds conversation history and the current project files
// as context around the user's request.
func buildUserPrompt(req Request) string {
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

	if len(req.Files) > 0 {
		sb.WriteString("Current project files:\n")
		for i, f := range req.Files {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "File: %s\n```%s\n%s\n```\n", f.Name, f.Language, f.Content)
		}
	} else {
		sb.WriteString("No files in current project.\n")
	}

	fmt.Fprintf(&sb, "\nUser request: %s\n\n", req.Message)

	if req.Mode == ModeChat {
		sb.WriteString("Provide guidance and suggestions for this request.")
	} else {
		sb.WriteString("Work autonomously to complete this request. Create, edit, or delete files as needed. Run commands if necessary.")
	}
	return sb.String()
}

// Run performs one full agent turn: completion, parse, execute, merge. An
// upstream completion failure is the only error surfaced to the caller;
// everything downstream is absorbed into the response per the engine's
// partial-progress contract.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	if req.Mode == "" {
		req.Mode = ModeAutonomous
	}

	raw, err := o.completer.Complete(ctx, agentSystemPrompt, buildUserPrompt(req), agentTemperature, agentMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	actions := action.Parse(raw)
	result := o.engine.Execute(ctx, actions, req.ProjectID, req.Files)

	return &Response{
		Message: raw,
		Actions: actions,
		Files:   MergeFiles(req.Files, result),
		Output:  result.Output,
		Status:  result.Status,
	}, nil
}

// MergeFiles folds an execution result back into the caller's file
// snapshot: modified files replace by matching name, deleted files drop
// out, unmatched originals pass through unchanged, and new files append.
func MergeFiles(files []models.FileRecord, result engine.Result) []models.FileRecord {
	deleted := make(map[string]bool, len(result.DeletedFiles))
	for _, name := range result.DeletedFiles {
		deleted[name] = true
	}
	modified := make(map[string]models.FileRecord, len(result.ModifiedFiles))
	for _, f := range result.ModifiedFiles {
		modified[f.Name] = f
	}

	merged := make([]models.FileRecord, 0, len(files)+len(result.NewFiles))
	for _, f := range files {
		if deleted[f.Name] {
			continue
		}
		if m, ok := modified[f.Name]; ok {
			f.Content = m.Content
		}
		merged = append(merged, f)
	}
	merged = append(merged, result.NewFiles...)
	return merged
}
