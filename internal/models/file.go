package models

import (
	"strings"
	"time"
)

// FileRecord is a project file. The same file exists in up to three forms:
// the persisted row (source of truth), the in-memory working list an agent
// turn operates on, and the on-disk mirror used for command execution.
type FileRecord struct {
	ID        string
	ProjectID string
	Name      string
	Path      string
	Content   string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LanguageForName derives a language label from a file name's extension.
// Names without an extension map to "text".
func LanguageForName(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "text"
	}
	return name[idx+1:]
}
