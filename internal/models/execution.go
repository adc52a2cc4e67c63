package models

import "time"

// ExecutionStatus represents the terminal state of a command run.
type ExecutionStatus string

const (
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Execution is the immutable audit record of one command run.
type Execution struct {
	ID        string
	ProjectID string
	UserID    string
	Command   string
	Output    string
	Error     string
	ExitCode  int
	Status    ExecutionStatus
	Duration  int64 // milliseconds
	CreatedAt time.Time
}
