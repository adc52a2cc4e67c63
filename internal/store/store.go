package store

import (
	"context"

	"github.com/workbench-dev/workbench/internal/models"
)

// Store defines the persistence interface for workbench.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	// EnsureUser returns the user with the given id, creating it with the
	// supplied name/email when absent. Command execution records require an
	// invoking user even for anonymous callers.
	EnsureUser(ctx context.Context, id, name, email string) (*models.User, error)

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Files
	CreateFile(ctx context.Context, f *models.FileRecord) error
	GetFile(ctx context.Context, id string) (*models.FileRecord, error)
	GetFileByName(ctx context.Context, projectID, name string) (*models.FileRecord, error)
	ListFiles(ctx context.Context, projectID string) ([]*models.FileRecord, error)
	UpdateFile(ctx context.Context, f *models.FileRecord) error
	DeleteFile(ctx context.Context, id string) error
	DeleteFileByName(ctx context.Context, projectID, name string) error

	// Executions
	CreateExecution(ctx context.Context, e *models.Execution) error
	ListExecutions(ctx context.Context, projectID string, limit int) ([]*models.Execution, error)

	// Messages
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, projectID string, limit int) ([]*models.Message, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
