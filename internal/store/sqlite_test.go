package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workbench-dev/workbench/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func newTestUser(t *testing.T, s *SQLiteStore) *models.User {
	t.Helper()
	u := &models.User{Email: "dev@example.com", Name: "Dev"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newTestProject(t *testing.T, s *SQLiteStore, name string) *models.Project {
	t.Helper()
	u := &models.User{Email: name + "@example.com", Name: "Owner"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	p := &models.Project{Name: name, OwnerID: u.ID}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Users ---

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Email: "ada@example.com", Name: "Ada"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "Ada", got.Name)
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEnsureUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u1, err := s.EnsureUser(ctx, "local", "Local User", "local@workbench.local")
	require.NoError(t, err)
	assert.Equal(t, "local", u1.ID)

	// Second call returns the existing row rather than inserting.
	u2, err := s.EnsureUser(ctx, "local", "Someone Else", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Local User", u2.Name)
	assert.Equal(t, "local@workbench.local", u2.Email)
}

// --- Projects ---

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s)

	// Create
	p := &models.Project{
		Name:        "test-project",
		Description: "A test project",
		Language:    "go",
		OwnerID:     u.ID,
	}
	err := s.CreateProject(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	// Get by ID
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Description, got.Description)
	assert.Equal(t, p.Language, got.Language)
	assert.Equal(t, u.ID, got.OwnerID)

	// Get by Name
	got, err = s.GetProjectByName(ctx, "test-project")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// List
	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	// Update
	p.Description = "updated"
	require.NoError(t, s.UpdateProject(ctx, p))
	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)

	// Delete
	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	assert.Error(t, err)
}

func TestUpdateProject_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateProject(context.Background(), &models.Project{ID: "nope", Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCreateProject_RequiresOwner(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateProject(context.Background(), &models.Project{Name: "orphan", OwnerID: "ghost"})
	assert.Error(t, err, "owner must exist")
}

// --- Files ---

func TestFileCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, "proj")

	// Create fills in path and language from the name.
	f := &models.FileRecord{ProjectID: p.ID, Name: "main.go", Content: "package main\n"}
	require.NoError(t, s.CreateFile(ctx, f))
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "/main.go", f.Path)
	assert.Equal(t, "go", f.Language)

	// Get by ID
	got, err := s.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "main.go", got.Name)
	assert.Equal(t, "package main\n", got.Content)

	// Get by name within the project
	got, err = s.GetFileByName(ctx, p.ID, "main.go")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	// List
	files, err := s.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	// Update
	f.Content = "package main\n\nfunc main() {}\n"
	require.NoError(t, s.UpdateFile(ctx, f))
	got, err = s.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Content, "func main()")

	// Delete
	require.NoError(t, s.DeleteFile(ctx, f.ID))
	_, err = s.GetFile(ctx, f.ID)
	assert.Error(t, err)
}

func TestCreateFile_DuplicateNameInProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, "proj")

	require.NoError(t, s.CreateFile(ctx, &models.FileRecord{ProjectID: p.ID, Name: "a.txt"}))
	err := s.CreateFile(ctx, &models.FileRecord{ProjectID: p.ID, Name: "a.txt"})
	assert.Error(t, err, "file names are unique per project")
}

func TestDeleteFileByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, "proj")

	require.NoError(t, s.CreateFile(ctx, &models.FileRecord{ProjectID: p.ID, Name: "a.txt"}))
	require.NoError(t, s.DeleteFileByName(ctx, p.ID, "a.txt"))

	err := s.DeleteFileByName(ctx, p.ID, "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDeleteProject_CascadesFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, "proj")

	f := &models.FileRecord{ProjectID: p.ID, Name: "a.txt"}
	require.NoError(t, s.CreateFile(ctx, f))

	require.NoError(t, s.DeleteProject(ctx, p.ID))

	_, err := s.GetFile(ctx, f.ID)
	assert.Error(t, err, "files should cascade with their project")
}

// --- Executions ---

func TestExecutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, "proj")
	u, err := s.GetUser(ctx, p.OwnerID)
	require.NoError(t, err)

	for i, cmd := range []string{"ls", "cat a.txt", "pwd"} {
		e := &models.Execution{
			ProjectID: p.ID,
			UserID:    u.ID,
			Command:   cmd,
			Output:    "out",
			ExitCode:  0,
			Status:    models.ExecutionStatusCompleted,
			Duration:  int64(i + 1),
		}
		require.NoError(t, s.CreateExecution(ctx, e))
		assert.NotEmpty(t, e.ID)
		time.Sleep(5 * time.Millisecond) // distinct created_at for ordering
	}

	execs, err := s.ListExecutions(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, execs, 3)
	// Newest first
	assert.Equal(t, "pwd", execs[0].Command)

	limited, err := s.ListExecutions(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// --- Messages ---

func TestMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, "proj")

	require.NoError(t, s.CreateMessage(ctx, &models.Message{
		ProjectID: p.ID, Role: models.MessageRoleUser, Content: "build it",
	}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.CreateMessage(ctx, &models.Message{
		ProjectID: p.ID, Role: models.MessageRoleAssistant, Content: "done",
	}))

	msgs, err := s.ListMessages(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// Conversation order, oldest first
	assert.Equal(t, models.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, models.MessageRoleAssistant, msgs[1].Role)
}
