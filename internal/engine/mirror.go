package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/workbench-dev/workbench/internal/models"
)

// Mirror manages per-project scratch directories on disk. The mirror is
// never the source of truth: it exists so shell commands have real files to
// operate on, and it can be reconstructed from persisted state at any time.
type Mirror struct {
	root string
}

// NewMirror creates a mirror rooted at the given scratch directory.
func NewMirror(root string) *Mirror {
	return &Mirror{root: root}
}

// Dir returns the mirror directory for a project without creating it.
func (m *Mirror) Dir(projectID string) string {
	return filepath.Join(m.root, projectID)
}

// Ensure creates the project's mirror directory if needed and returns it.
// Idempotent.
func (m *Mirror) Ensure(projectID string) (string, error) {
	dir := m.Dir(projectID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create mirror dir: %w", err)
	}
	return dir, nil
}

// validName rejects names that would escape the project directory. The
// action vocabulary has no nested-directory support, so names must be bare.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty file name")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid file name: %s", name)
	}
	return nil
}

// WriteFile writes a file by name into the project's mirror directory,
// creating the directory if needed.
func (m *Mirror) WriteFile(projectID, name, content string) error {
	if err := validName(name); err != nil {
		return err
	}
	dir, err := m.Ensure(projectID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		return fmt.Errorf("write mirror file: %w", err)
	}
	return nil
}

// RemoveFile deletes a mirrored file if it exists. Removing a file that was
// never mirrored is not an error.
func (m *Mirror) RemoveFile(projectID, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	path := filepath.Join(m.Dir(projectID), name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove mirror file: %w", err)
	}
	return nil
}

// RemoveProject deletes a project's entire mirror directory. Removing a
// project that was never mirrored is not an error.
func (m *Mirror) RemoveProject(projectID string) error {
	if err := os.RemoveAll(m.Dir(projectID)); err != nil {
		return fmt.Errorf("remove mirror dir: %w", err)
	}
	return nil
}

// Materialize rebuilds the project's mirror directory from the given file
// list. Existing mirrored files are overwritten; files with invalid names
// are skipped.
func (m *Mirror) Materialize(projectID string, files []models.FileRecord) (string, error) {
	dir, err := m.Ensure(projectID)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if validName(f.Name) != nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), []byte(f.Content), 0644); err != nil {
			return "", fmt.Errorf("materialize %s: %w", f.Name, err)
		}
	}
	return dir, nil
}
