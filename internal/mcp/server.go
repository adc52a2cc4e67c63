package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/workbench-dev/workbench/internal/agent"
	"github.com/workbench-dev/workbench/internal/engine"
	"github.com/workbench-dev/workbench/internal/models"
	"github.com/workbench-dev/workbench/internal/store"
)

// Server wraps the workbench data layer and exposes it as MCP tools.
type Server struct {
	store        store.Store
	engine       *engine.Engine
	orchestrator *agent.Orchestrator
}

// NewServer creates the MCP server wrapper. The orchestrator may be nil
// when no LLM is configured; the run_agent tool then reports an error.
func NewServer(s store.Store, e *engine.Engine, o *agent.Orchestrator) *Server {
	return &Server{
		store:        s,
		engine:       e,
		orchestrator: o,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("workbench", "1.0.0", server.WithToolCapabilities(true))

	// Register all tools
	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.listFilesTool())
	srv.AddTool(s.readFileTool())
	srv.AddTool(s.writeFileTool())
	srv.AddTool(s.deleteFileTool())
	srv.AddTool(s.executeCommandTool())
	srv.AddTool(s.runAgentTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// workbench_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("workbench_list_projects",
		mcp.WithDescription("List all workspace projects. Returns a JSON array of projects with id, name, description, and language."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	type projectOut struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Language    string `json:"language"`
	}

	out := make([]projectOut, len(projects))
	for i, p := range projects {
		out[i] = projectOut{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Language:    p.Language,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// workbench_list_files
func (s *Server) listFilesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("workbench_list_files",
		mcp.WithDescription("List the files of a project. Resolves the project by name or id. Returns a JSON array with id, name, path, and language."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id")),
	)
	return tool, s.handleListFiles
}

func (s *Server) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}

	p, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
	}

	files, err := s.store.ListFiles(ctx, p.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list files: %v", err)), nil
	}

	type fileOut struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Path     string `json:"path"`
		Language string `json:"language"`
	}

	out := make([]fileOut, len(files))
	for i, f := range files {
		out[i] = fileOut{ID: f.ID, Name: f.Name, Path: f.Path, Language: f.Language}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal files: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// workbench_read_file
func (s *Server) readFileTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("workbench_read_file",
		mcp.WithDescription("Read the content of a project file."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name within the project")),
	)
	return tool, s.handleReadFile
}

func (s *Server) handleReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}

	p, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
	}

	f, err := s.store.GetFileByName(ctx, p.ID, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("file not found: %s", name)), nil
	}
	return mcp.NewToolResultText(f.Content), nil
}

// workbench_write_file
func (s *Server) writeFileTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("workbench_write_file",
		mcp.WithDescription("Create or overwrite a project file with the given content. The file also lands in the project's execution directory."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name within the project")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full file content")),
	)
	return tool, s.handleWriteFile
}

func (s *Server) handleWriteFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	content := request.GetString("content", "")

	p, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
	}

	if existing, err := s.store.GetFileByName(ctx, p.ID, name); err == nil {
		existing.Content = content
		if err := s.store.UpdateFile(ctx, existing); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to update file: %v", err)), nil
		}
	} else {
		f := &models.FileRecord{ProjectID: p.ID, Name: name, Content: content}
		if err := s.store.CreateFile(ctx, f); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create file: %v", err)), nil
		}
	}

	if err := s.engine.Mirror().WriteFile(p.ID, name, content); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to mirror file: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("wrote %s (%d bytes)", name, len(content))), nil
}

// workbench_delete_file
func (s *Server) deleteFileTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("workbench_delete_file",
		mcp.WithDescription("Delete a project file by name."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name within the project")),
	)
	return tool, s.handleDeleteFile
}

func (s *Server) handleDeleteFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}

	p, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
	}

	if err := s.store.DeleteFileByName(ctx, p.ID, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete file: %v", err)), nil
	}
	if err := s.engine.Mirror().RemoveFile(p.ID, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to remove mirrored file: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", name)), nil
}

// workbench_execute_command
func (s *Server) executeCommandTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("workbench_execute_command",
		mcp.WithDescription("Run a shell command inside a project's execution directory. Returns a JSON object with output, error, exitCode, status, and duration in milliseconds."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id")),
		mcp.WithString("command", mcp.Required(), mcp.Description("Shell command to run")),
	)
	return tool, s.handleExecuteCommand
}

func (s *Server) handleExecuteCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	command, err := request.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: command"), nil
	}

	p, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
	}

	files, err := s.store.ListFiles(ctx, p.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list files: %v", err)), nil
	}
	records := make([]models.FileRecord, len(files))
	for i, f := range files {
		records[i] = *f
	}

	exec, err := s.engine.ExecuteCommand(ctx, p.ID, "", command, records)
	if err != nil && exec == nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to execute command: %v", err)), nil
	}

	out := map[string]any{
		"output":   exec.Output,
		"error":    exec.Error,
		"exitCode": exec.ExitCode,
		"status":   exec.Status,
		"duration": exec.Duration,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// workbench_run_agent
func (s *Server) runAgentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("workbench_run_agent",
		mcp.WithDescription("Run one autonomous agent turn against a project: the agent may create, edit, and delete files and run commands. Returns the agent message and execution transcript."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Instruction for the agent")),
	)
	return tool, s.handleRunAgent
}

func (s *Server) handleRunAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.orchestrator == nil {
		return mcp.NewToolResultError("LLM not configured: set the Anthropic API key"), nil
	}

	projectName, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}

	p, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
	}

	files, err := s.store.ListFiles(ctx, p.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list files: %v", err)), nil
	}
	records := make([]models.FileRecord, len(files))
	for i, f := range files {
		records[i] = *f
	}

	resp, err := s.orchestrator.Run(ctx, agent.Request{
		Message:   message,
		ProjectID: p.ID,
		Files:     records,
		Mode:      agent.ModeAutonomous,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("agent turn failed: %v", err)), nil
	}

	out := map[string]any{
		"message": resp.Message,
		"output":  resp.Output,
		"status":  resp.Status,
		"files":   len(resp.Files),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveProject tries to find a project by name first, then by ID.
func (s *Server) resolveProject(ctx context.Context, name string) (*models.Project, error) {
	if p, err := s.store.GetProjectByName(ctx, name); err == nil {
		return p, nil
	}
	if p, err := s.store.GetProject(ctx, name); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("project not found: %s", name)
}
