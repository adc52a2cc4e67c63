package agent

import (
	"strings"

	"github.com/workbench-dev/workbench/internal/action"
	"github.com/workbench-dev/workbench/internal/engine"
)

// LifecycleStatus is the client-visible progress state of one action. It is
// display state, distinct from the engine's authoritative outcome, and may
// lag or be simulated when no live execution signal exists.
type LifecycleStatus string

const (
	LifecyclePending   LifecycleStatus = "pending"
	LifecycleExecuting LifecycleStatus = "executing"
	LifecycleCompleted LifecycleStatus = "completed"
	LifecycleError     LifecycleStatus = "error"
)

// TimelineEntry wraps an action with its display status.
type TimelineEntry struct {
	Action action.Action   `json:"action"`
	Status LifecycleStatus `json:"status"`
}

// Timeline mirrors an action batch into a user-visible progress list.
type Timeline struct {
	entries []TimelineEntry
}

// NewTimeline creates a timeline with every action pending.
func NewTimeline(actions []action.Action) *Timeline {
	entries := make([]TimelineEntry, len(actions))
	for i, a := range actions {
		entries[i] = TimelineEntry{Action: a, Status: LifecyclePending}
	}
	return &Timeline{entries: entries}
}

// Entries returns a copy of the current timeline state.
func (t *Timeline) Entries() []TimelineEntry {
	out := make([]TimelineEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start marks entry i as executing.
func (t *Timeline) Start(i int) {
	if i >= 0 && i < len(t.entries) {
		t.entries[i].Status = LifecycleExecuting
	}
}

// Finish marks entry i as completed or errored.
func (t *Timeline) Finish(i int, failed bool) {
	if i < 0 || i >= len(t.entries) {
		return
	}
	if failed {
		t.entries[i].Status = LifecycleError
	} else {
		t.entries[i].Status = LifecycleCompleted
	}
}

// Resolve simulates terminal statuses from a finished batch result. There
// is no per-action signal from the engine, so failure is attributed by
// matching the transcript's failure markers; unmatched entries complete.
func (t *Timeline) Resolve(result engine.Result) {
	for i := range t.entries {
		t.entries[i].Status = LifecycleCompleted
	}
	if result.Status != engine.StatusError {
		return
	}
	for i, e := range t.entries {
		if entryFailed(e.Action, result.Output) {
			t.entries[i].Status = LifecycleError
		}
	}
}

func entryFailed(a action.Action, output string) bool {
	switch a.Kind {
	case action.KindRunCommand:
		return strings.Contains(output, "Command failed: "+a.Command)
	case action.KindUnrecognized:
		return strings.Contains(output, "Unrecognized action: "+a.RawKind)
	default:
		return strings.Contains(output, "Error executing action "+string(a.Kind))
	}
}
