// Package engine applies parsed agent actions against the three forms of
// project file state: the in-memory working list, the persisted store, and
// the filesystem mirror commands execute in.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/workbench-dev/workbench/internal/action"
	"github.com/workbench-dev/workbench/internal/models"
	"github.com/workbench-dev/workbench/internal/store"
)

// Status is the terminal state of an executed batch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Anonymous fallback identity for execution records when no caller identity
// is supplied.
const (
	AnonUserID    = "local"
	AnonUserName  = "Local User"
	AnonUserEmail = "local@workbench.local"
)

// Result is the outcome of executing one action batch.
type Result struct {
	Status        Status               `json:"status"`
	NewFiles      []models.FileRecord  `json:"newFiles,omitempty"`
	ModifiedFiles []models.FileRecord  `json:"modifiedFiles,omitempty"`
	DeletedFiles  []string             `json:"deletedFiles,omitempty"`
	Output        string               `json:"output"`
}

// Engine executes action batches. The store is an optional persistence
// sink: with a nil store, effects apply only to the working list and the
// mirror.
type Engine struct {
	store  store.Store
	mirror *Mirror
	runner *Runner

	// One mutex per project id. Two concurrent batches against the same
	// project would otherwise race on the mirror and the store. Entries
	// are never evicted: the map grows with the number of distinct
	// project ids ever executed, one mutex each.
	locks sync.Map
}

// New creates an engine. store may be nil.
func New(st store.Store, m *Mirror, r *Runner) *Engine {
	if r == nil {
		r = NewRunner()
	}
	return &Engine{store: st, mirror: m, runner: r}
}

// Mirror returns the engine's filesystem mirror.
func (e *Engine) Mirror() *Mirror {
	return e.mirror
}

// Runner returns the engine's command runner.
func (e *Engine) Runner() *Runner {
	return e.runner
}

func (e *Engine) projectLock(projectID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(projectID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// batchState carries one batch's mutable state through the action loop.
type batchState struct {
	projectID string
	files     []models.FileRecord
	res       *Result
	out       strings.Builder
}

func (b *batchState) findFile(name string) int {
	for i := range b.files {
		if b.files[i].Name == name {
			return i
		}
	}
	return -1
}

// Execute runs the batch strictly in order. A single action's failure is
// isolated: it is recorded in the transcript (and flips the batch status to
// error) but never aborts the remaining actions. Batches targeting the same
// project are serialized against each other.
func (e *Engine) Execute(ctx context.Context, batch []action.Action, projectID string, files []models.FileRecord) Result {
	if projectID != "" {
		mu := e.projectLock(projectID)
		mu.Lock()
		defer mu.Unlock()
	}

	res := Result{Status: StatusSuccess}
	st := &batchState{projectID: projectID, res: &res}
	st.files = append(st.files, files...)

	for _, a := range batch {
		if err := e.apply(ctx, st, a); err != nil {
			res.Status = StatusError
			fmt.Fprintf(&st.out, "Error executing action %s: %v\n", a.Kind, err)
		}
	}

	res.Output = st.out.String()
	return res
}

// apply dispatches one action. Returned errors are execution failures the
// caller absorbs into the transcript; expected conditions (missing targets,
// command failures) are written to the transcript here and return nil.
func (e *Engine) apply(ctx context.Context, st *batchState, a action.Action) error {
	switch a.Kind {
	case action.KindCreateFile:
		return e.createFile(ctx, st, a)
	case action.KindEditFile:
		return e.editFile(ctx, st, a)
	case action.KindDeleteFile:
		return e.deleteFile(ctx, st, a)
	case action.KindRunCommand:
		return e.runCommand(ctx, st, a)
	case action.KindCreateProject:
		return e.createProject(ctx, st, a)
	case action.KindExplain:
		// Prose-only action, no side effects.
		return nil
	case action.KindUnrecognized:
		st.res.Status = StatusError
		fmt.Fprintf(&st.out, "Unrecognized action: %s\n", a.RawKind)
		return nil
	default:
		st.res.Status = StatusError
		fmt.Fprintf(&st.out, "Unrecognized action: %s\n", a.Kind)
		return nil
	}
}

// writeFile pushes content through the defined write order: persisted store
// first, then the filesystem mirror. The in-memory working list is updated
// by the caller only after this succeeds, so a failure leaves all three
// forms agreeing on the previous state.
func (e *Engine) writeFile(ctx context.Context, projectID, name, content string) error {
	if e.store != nil && projectID != "" {
		existing, err := e.store.GetFileByName(ctx, projectID, name)
		if err == nil {
			existing.Content = content
			if err := e.store.UpdateFile(ctx, existing); err != nil {
				return err
			}
		} else {
			f := &models.FileRecord{ProjectID: projectID, Name: name, Content: content}
			if err := e.store.CreateFile(ctx, f); err != nil {
				return err
			}
		}
	}
	if projectID != "" {
		if err := e.mirror.WriteFile(projectID, name, content); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) createFile(ctx context.Context, st *batchState, a action.Action) error {
	if a.Target == "" || a.Content == "" {
		return nil
	}

	if err := e.writeFile(ctx, st.projectID, a.Target, a.Content); err != nil {
		return err
	}

	if idx := st.findFile(a.Target); idx >= 0 {
		// Creating over an existing name degenerates to an edit.
		st.files[idx].Content = a.Content
		st.res.ModifiedFiles = append(st.res.ModifiedFiles, st.files[idx])
	} else {
		f := models.FileRecord{
			Name:     a.Target,
			Path:     "/" + a.Target,
			Content:  a.Content,
			Language: models.LanguageForName(a.Target),
		}
		st.files = append(st.files, f)
		st.res.NewFiles = append(st.res.NewFiles, f)
	}

	fmt.Fprintf(&st.out, "Created file: %s\n", a.Target)
	return nil
}

func (e *Engine) editFile(ctx context.Context, st *batchState, a action.Action) error {
	if a.Target == "" || a.Content == "" {
		return nil
	}

	idx := st.findFile(a.Target)
	if idx < 0 {
		fmt.Fprintf(&st.out, "File not found: %s\n", a.Target)
		return nil
	}

	if err := e.writeFile(ctx, st.projectID, a.Target, a.Content); err != nil {
		return err
	}

	st.files[idx].Content = a.Content
	st.res.ModifiedFiles = append(st.res.ModifiedFiles, st.files[idx])
	fmt.Fprintf(&st.out, "Modified file: %s\n", a.Target)
	return nil
}

func (e *Engine) deleteFile(ctx context.Context, st *batchState, a action.Action) error {
	if a.Target == "" {
		return nil
	}

	idx := st.findFile(a.Target)
	if idx < 0 {
		fmt.Fprintf(&st.out, "File not found: %s\n", a.Target)
		return nil
	}

	if e.store != nil && st.projectID != "" {
		// Absence in the store is fine: the file may only exist in the
		// working list.
		_ = e.store.DeleteFileByName(ctx, st.projectID, a.Target)
	}
	if st.projectID != "" {
		if err := e.mirror.RemoveFile(st.projectID, a.Target); err != nil {
			return err
		}
	}

	st.files = append(st.files[:idx], st.files[idx+1:]...)
	st.res.DeletedFiles = append(st.res.DeletedFiles, a.Target)
	fmt.Fprintf(&st.out, "Deleted file: %s\n", a.Target)
	return nil
}

func (e *Engine) runCommand(ctx context.Context, st *batchState, a action.Action) error {
	// Commands cannot run without a project: there is no filesystem context.
	if a.Command == "" || st.projectID == "" {
		return nil
	}

	dir, err := e.mirror.Ensure(st.projectID)
	if err != nil {
		return err
	}

	run, runErr := e.runner.Run(ctx, a.Command, dir)

	if runErr != nil {
		st.res.Status = StatusError
		fmt.Fprintf(&st.out, "Command failed: %s\n", a.Command)
		fmt.Fprintf(&st.out, "Error: %v\n", runErr)
		if run.Stderr != "" {
			fmt.Fprintf(&st.out, "%s\n", strings.TrimRight(run.Stderr, "\n"))
		}
	} else {
		fmt.Fprintf(&st.out, "Command: %s\n", a.Command)
		fmt.Fprintf(&st.out, "Output: %s\n", run.Stdout)
		if run.Stderr != "" {
			fmt.Fprintf(&st.out, "Error: %s\n", run.Stderr)
		}
	}

	e.recordExecution(ctx, st.projectID, a.Command, run, runErr)
	return nil
}

// recordExecution persists the immutable audit record of one command run.
// Best effort: a store failure here must not fail the action that already
// ran.
func (e *Engine) recordExecution(ctx context.Context, projectID, command string, run RunResult, runErr error) {
	if e.store == nil {
		return
	}
	user, err := e.store.EnsureUser(ctx, AnonUserID, AnonUserName, AnonUserEmail)
	if err != nil {
		return
	}

	exec := &models.Execution{
		ProjectID: projectID,
		UserID:    user.ID,
		Command:   command,
		Output:    run.Stdout,
		Error:     run.Stderr,
		ExitCode:  run.ExitCode,
		Status:    models.ExecutionStatusCompleted,
		Duration:  run.Duration.Milliseconds(),
	}
	if runErr != nil {
		exec.Status = models.ExecutionStatusFailed
		if exec.Error == "" {
			exec.Error = runErr.Error()
		}
	}
	_ = e.store.CreateExecution(ctx, exec)
}

func (e *Engine) createProject(ctx context.Context, st *batchState, a action.Action) error {
	if a.Target == "" {
		return nil
	}
	if e.store == nil {
		fmt.Fprintf(&st.out, "Project creation skipped (no store): %s\n", a.Target)
		return nil
	}

	user, err := e.store.EnsureUser(ctx, AnonUserID, AnonUserName, AnonUserEmail)
	if err != nil {
		return err
	}
	p := &models.Project{Name: a.Target, OwnerID: user.ID}
	if err := e.store.CreateProject(ctx, p); err != nil {
		return err
	}

	fmt.Fprintf(&st.out, "Created project: %s\n", a.Target)
	return nil
}

// ExecuteCommand materializes the mirror from the supplied files and runs a
// single user command against it, returning the audit record. This is the
// terminal execute surface; it does not go through an action batch.
func (e *Engine) ExecuteCommand(ctx context.Context, projectID, userID, command string, files []models.FileRecord) (*models.Execution, error) {
	mu := e.projectLock(projectID)
	mu.Lock()
	defer mu.Unlock()

	dir, err := e.mirror.Materialize(projectID, files)
	if err != nil {
		return nil, err
	}

	run, runErr := e.runner.Run(ctx, command, dir)

	exec := &models.Execution{
		ProjectID: projectID,
		UserID:    userID,
		Command:   command,
		Output:    run.Stdout,
		Error:     run.Stderr,
		ExitCode:  run.ExitCode,
		Status:    models.ExecutionStatusCompleted,
		Duration:  run.Duration.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	if runErr != nil {
		exec.Status = models.ExecutionStatusFailed
		if exec.Error == "" {
			exec.Error = runErr.Error()
		}
	}

	if e.store != nil {
		if userID == "" || userID == AnonUserID {
			user, uerr := e.store.EnsureUser(ctx, AnonUserID, AnonUserName, AnonUserEmail)
			if uerr == nil {
				exec.UserID = user.ID
			}
		}
		if err := e.store.CreateExecution(ctx, exec); err != nil {
			return exec, err
		}
	}
	return exec, nil
}
