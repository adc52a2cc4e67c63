package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workbench-dev/workbench/internal/agent"
	"github.com/workbench-dev/workbench/internal/engine"
	"github.com/workbench-dev/workbench/internal/models"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockStore implements store.Store for testing.
type mockStore struct {
	users      []*models.User
	projects   []*models.Project
	files      []*models.FileRecord
	executions []*models.Execution
	messages   []*models.Message

	// Optional error injection.
	listProjectsErr error
	listFilesErr    error
}

func (m *mockStore) CreateUser(_ context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users = append(m.users, u)
	return nil
}
func (m *mockStore) GetUser(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %s", id)
}
func (m *mockStore) EnsureUser(ctx context.Context, id, name, email string) (*models.User, error) {
	if u, err := m.GetUser(ctx, id); err == nil {
		return u, nil
	}
	u := &models.User{ID: id, Name: name, Email: email}
	m.users = append(m.users, u)
	return u, nil
}

func (m *mockStore) CreateProject(_ context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = fmt.Sprintf("proj-%d", len(m.projects)+1)
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.projects = append(m.projects, p)
	return nil
}
func (m *mockStore) GetProject(_ context.Context, id string) (*models.Project, error) {
	for _, p := range m.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project not found: %s", id)
}
func (m *mockStore) GetProjectByName(_ context.Context, name string) (*models.Project, error) {
	for _, p := range m.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project not found: %s", name)
}
func (m *mockStore) ListProjects(_ context.Context) ([]*models.Project, error) {
	if m.listProjectsErr != nil {
		return nil, m.listProjectsErr
	}
	return m.projects, nil
}
func (m *mockStore) UpdateProject(_ context.Context, _ *models.Project) error { return nil }
func (m *mockStore) DeleteProject(_ context.Context, _ string) error          { return nil }

func (m *mockStore) CreateFile(_ context.Context, f *models.FileRecord) error {
	if f.ID == "" {
		f.ID = fmt.Sprintf("file-%d", len(m.files)+1)
	}
	if f.Path == "" {
		f.Path = "/" + f.Name
	}
	if f.Language == "" {
		f.Language = models.LanguageForName(f.Name)
	}
	m.files = append(m.files, f)
	return nil
}
func (m *mockStore) GetFile(_ context.Context, id string) (*models.FileRecord, error) {
	for _, f := range m.files {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", id)
}
func (m *mockStore) GetFileByName(_ context.Context, projectID, name string) (*models.FileRecord, error) {
	for _, f := range m.files {
		if f.ProjectID == projectID && f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}
func (m *mockStore) ListFiles(_ context.Context, projectID string) ([]*models.FileRecord, error) {
	if m.listFilesErr != nil {
		return nil, m.listFilesErr
	}
	var out []*models.FileRecord
	for _, f := range m.files {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	return out, nil
}
func (m *mockStore) UpdateFile(_ context.Context, f *models.FileRecord) error {
	for i, existing := range m.files {
		if existing.ID == f.ID {
			m.files[i] = f
			return nil
		}
	}
	return fmt.Errorf("file not found: %s", f.ID)
}
func (m *mockStore) DeleteFile(_ context.Context, id string) error {
	for i, f := range m.files {
		if f.ID == id {
			m.files = append(m.files[:i], m.files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("file not found: %s", id)
}
func (m *mockStore) DeleteFileByName(_ context.Context, projectID, name string) error {
	for i, f := range m.files {
		if f.ProjectID == projectID && f.Name == name {
			m.files = append(m.files[:i], m.files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("file not found: %s", name)
}

func (m *mockStore) CreateExecution(_ context.Context, e *models.Execution) error {
	if e.ID == "" {
		e.ID = fmt.Sprintf("exec-%d", len(m.executions)+1)
	}
	m.executions = append(m.executions, e)
	return nil
}
func (m *mockStore) ListExecutions(_ context.Context, projectID string, limit int) ([]*models.Execution, error) {
	var out []*models.Execution
	for _, e := range m.executions {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) CreateMessage(_ context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", len(m.messages)+1)
	}
	m.messages = append(m.messages, msg)
	return nil
}
func (m *mockStore) ListMessages(_ context.Context, projectID string, limit int) ([]*models.Message, error) {
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.ProjectID == projectID {
			out = append(out, msg)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// stubCompleter returns a canned completion.
type stubCompleter struct {
	response string
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string, _ float64, _ int64) (string, error) {
	return s.response, nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *mockStore, *engine.Mirror) {
	t.Helper()
	ms := &mockStore{}
	mirror := engine.NewMirror(filepath.Join(t.TempDir(), "mirror"))
	eng := engine.New(ms, mirror, engine.NewRunner())

	srv := NewServer(ms, eng, nil)
	require.NotNil(t, srv)

	return srv, ms, mirror
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// seedProject adds a project to the mock store and returns it.
func seedProject(t *testing.T, ms *mockStore, name string) *models.Project {
	t.Helper()
	p := &models.Project{
		ID:       fmt.Sprintf("proj-%s", name),
		Name:     name,
		Language: "go",
		OwnerID:  "local",
	}
	ms.projects = append(ms.projects, p)
	return p
}

// seedFile adds a file to the mock store and returns it.
func seedFile(t *testing.T, ms *mockStore, projectID, name, content string) *models.FileRecord {
	t.Helper()
	f := &models.FileRecord{
		ID:        fmt.Sprintf("file-%s-%d", name, len(ms.files)+1),
		ProjectID: projectID,
		Name:      name,
		Path:      "/" + name,
		Content:   content,
		Language:  models.LanguageForName(name),
	}
	ms.files = append(ms.files, f)
	return f
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

func TestHandleListProjects_Empty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, err := srv.handleListProjects(context.Background(), callToolReq("workbench_list_projects", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var projects []map[string]any
	resultJSON(t, result, &projects)
	assert.Empty(t, projects)
}

func TestHandleListProjects_WithProjects(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	seedProject(t, ms, "alpha")
	seedProject(t, ms, "beta")

	result, err := srv.handleListProjects(context.Background(), callToolReq("workbench_list_projects", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var projects []map[string]any
	resultJSON(t, result, &projects)
	require.Len(t, projects, 2)
	assert.Equal(t, "alpha", projects[0]["name"])
}

func TestHandleListProjects_StoreError(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	ms.listProjectsErr = fmt.Errorf("disk on fire")

	result, err := srv.handleListProjects(context.Background(), callToolReq("workbench_list_projects", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListFiles(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	p := seedProject(t, ms, "alpha")
	seedFile(t, ms, p.ID, "main.go", "package main")

	result, err := srv.handleListFiles(context.Background(),
		callToolReq("workbench_list_files", map[string]any{"project": "alpha"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var files []map[string]any
	resultJSON(t, result, &files)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0]["name"])
	assert.Equal(t, "go", files[0]["language"])
}

func TestHandleListFiles_ByProjectID(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	p := seedProject(t, ms, "alpha")
	seedFile(t, ms, p.ID, "main.go", "package main")

	result, err := srv.handleListFiles(context.Background(),
		callToolReq("workbench_list_files", map[string]any{"project": p.ID}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestHandleListFiles_UnknownProject(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, err := srv.handleListFiles(context.Background(),
		callToolReq("workbench_list_files", map[string]any{"project": "ghost"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListFiles_MissingProjectArg(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, err := srv.handleListFiles(context.Background(),
		callToolReq("workbench_list_files", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleReadFile(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	p := seedProject(t, ms, "alpha")
	seedFile(t, ms, p.ID, "main.go", "package main\n")

	result, err := srv.handleReadFile(context.Background(),
		callToolReq("workbench_read_file", map[string]any{"project": "alpha", "name": "main.go"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "package main\n", resultText(t, result))
}

func TestHandleReadFile_NotFound(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	seedProject(t, ms, "alpha")

	result, err := srv.handleReadFile(context.Background(),
		callToolReq("workbench_read_file", map[string]any{"project": "alpha", "name": "ghost.go"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleWriteFile_CreateAndUpdate(t *testing.T) {
	srv, ms, mirror := newTestServer(t)
	p := seedProject(t, ms, "alpha")

	// Create
	result, err := srv.handleWriteFile(context.Background(),
		callToolReq("workbench_write_file", map[string]any{
			"project": "alpha", "name": "main.go", "content": "package main\n",
		}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	f, err := ms.GetFileByName(context.Background(), p.ID, "main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", f.Content)
	assert.Equal(t, "go", f.Language)

	onDisk, err := os.ReadFile(filepath.Join(mirror.Dir(p.ID), "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(onDisk))

	// Update overwrites the same row instead of inserting a second one.
	result, err = srv.handleWriteFile(context.Background(),
		callToolReq("workbench_write_file", map[string]any{
			"project": "alpha", "name": "main.go", "content": "package main\n\nfunc main() {}\n",
		}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	files, err := ms.ListFiles(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Content, "func main()")
}

func TestHandleDeleteFile(t *testing.T) {
	srv, ms, mirror := newTestServer(t)
	p := seedProject(t, ms, "alpha")
	seedFile(t, ms, p.ID, "junk.txt", "scratch")
	require.NoError(t, mirror.WriteFile(p.ID, "junk.txt", "scratch"))

	result, err := srv.handleDeleteFile(context.Background(),
		callToolReq("workbench_delete_file", map[string]any{"project": "alpha", "name": "junk.txt"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	_, err = ms.GetFileByName(context.Background(), p.ID, "junk.txt")
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(mirror.Dir(p.ID), "junk.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandleExecuteCommand(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	p := seedProject(t, ms, "alpha")
	seedFile(t, ms, p.ID, "greeting.txt", "hello tools")

	result, err := srv.handleExecuteCommand(context.Background(),
		callToolReq("workbench_execute_command", map[string]any{
			"project": "alpha", "command": "cat greeting.txt",
		}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Contains(t, out["output"], "hello tools")
	assert.Equal(t, float64(0), out["exitCode"])
	assert.Equal(t, string(models.ExecutionStatusCompleted), out["status"])
}

func TestHandleRunAgent_NoLLM(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	seedProject(t, ms, "alpha")

	result, err := srv.handleRunAgent(context.Background(),
		callToolReq("workbench_run_agent", map[string]any{"project": "alpha", "message": "build"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRunAgent(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	seedProject(t, ms, "alpha")

	completion := strings.Join([]string{
		"Creating the entry point.",
		"",
		"ACTION: create_file",
		"TARGET: main.go",
		"CONTENT: package main",
		"REASONING: Needed to start.",
	}, "\n")
	srv.orchestrator = agent.NewOrchestrator(&stubCompleter{response: completion}, srv.engine)

	result, err := srv.handleRunAgent(context.Background(),
		callToolReq("workbench_run_agent", map[string]any{"project": "alpha", "message": "create main.go"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Equal(t, string(engine.StatusSuccess), out["status"])
	assert.Contains(t, out["output"], "Created file: main.go")
	assert.Equal(t, float64(1), out["files"])
}
