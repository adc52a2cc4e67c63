// Package action defines the typed instructions an agent turn is parsed
// into, and the parser that extracts them from raw model output.
package action

// Kind is the closed set of operations an agent may request.
type Kind string

const (
	KindCreateFile    Kind = "create_file"
	KindEditFile      Kind = "edit_file"
	KindDeleteFile    Kind = "delete_file"
	KindRunCommand    Kind = "run_command"
	KindCreateProject Kind = "create_project"
	KindExplain       Kind = "explain"

	// KindUnrecognized marks an action whose kind token was not one of the
	// known values. The engine reports these instead of silently skipping.
	KindUnrecognized Kind = "unrecognized"
)

// ParseKind maps a raw kind token to a Kind, folding unknown tokens into
// KindUnrecognized so downstream handling stays exhaustive.
func ParseKind(raw string) Kind {
	switch Kind(raw) {
	case KindCreateFile, KindEditFile, KindDeleteFile, KindRunCommand, KindCreateProject, KindExplain:
		return Kind(raw)
	default:
		return KindUnrecognized
	}
}

// Action is a single reasoned instruction parsed from model output. Actions
// are ephemeral: produced per agent turn and consumed immediately by the
// engine; only their effects persist.
type Action struct {
	Kind      Kind   `json:"type"`
	RawKind   string `json:"rawType,omitempty"`
	Target    string `json:"target,omitempty"`
	Content   string `json:"content,omitempty"`
	Command   string `json:"command,omitempty"`
	Reasoning string `json:"reasoning"`
}
