package action

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleAction(t *testing.T) {
	text := "ACTION: create_file\nTARGET: a.js\nCONTENT: console.log(1)\nREASONING: demo\n"

	actions := Parse(text)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, KindCreateFile, a.Kind)
	assert.Equal(t, "a.js", a.Target)
	assert.Equal(t, "console.log(1)", a.Content)
	assert.Equal(t, "demo", a.Reasoning)
}

func TestParse_PreservesOrder(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&sb, "ACTION: create_file\nTARGET: file%d.txt\nCONTENT: body %d\nREASONING: step %d\n", i, i, i)
	}

	actions := Parse(sb.String())
	require.Len(t, actions, 5)
	for i, a := range actions {
		assert.Equal(t, fmt.Sprintf("file%d.txt", i), a.Target)
		assert.Equal(t, fmt.Sprintf("step %d", i), a.Reasoning)
	}
}

func TestParse_MissingReasoningDropsAction(t *testing.T) {
	text := "ACTION: create_file\nTARGET: a.js\nCONTENT: console.log(1)\n"
	assert.Empty(t, Parse(text))

	// Block without reasoning followed by a complete block: only the
	// complete one survives.
	text = "ACTION: delete_file\nTARGET: old.js\n" +
		"ACTION: run_command\nCOMMAND: ls\nREASONING: list files\n"
	actions := Parse(text)
	require.Len(t, actions, 1)
	assert.Equal(t, KindRunCommand, actions[0].Kind)
	assert.Equal(t, "ls", actions[0].Command)
}

func TestParse_MultiLineContent(t *testing.T) {
	text := strings.Join([]string{
		"ACTION: create_file",
		"TARGET: main.py",
		"CONTENT: def main():",
		"    print('one')",
		"    print('two')",
		"",
		"main()",
		"REASONING: entry point",
	}, "\n")

	actions := Parse(text)
	require.Len(t, actions, 1)

	want := "def main():\n    print('one')\n    print('two')\n\nmain()"
	assert.Equal(t, want, actions[0].Content)
	assert.Equal(t, "entry point", actions[0].Reasoning)
}

func TestParse_ContentCaptureStopsAtEOF(t *testing.T) {
	text := "ACTION: create_file\nTARGET: a.txt\nCONTENT: first\nsecond\nthird"

	// Content capture swallowed everything, so no reasoning: dropped.
	assert.Empty(t, Parse(text))
}

func TestParse_ProseIsIgnored(t *testing.T) {
	text := strings.Join([]string{
		"I'll create a small web app for you.",
		"",
		"ACTION: create_file",
		"TARGET: index.html",
		"CONTENT: <html></html>",
		"REASONING: main page",
		"",
		"Now you can open it in a browser.",
	}, "\n")

	actions := Parse(text)
	require.Len(t, actions, 1)
	assert.Equal(t, "index.html", actions[0].Target)
}

func TestParse_UnknownKindBecomesUnrecognized(t *testing.T) {
	text := "ACTION: rename_file\nTARGET: a.js\nREASONING: tidy up\n"

	actions := Parse(text)
	require.Len(t, actions, 1)
	assert.Equal(t, KindUnrecognized, actions[0].Kind)
	assert.Equal(t, "rename_file", actions[0].RawKind)
}

func TestParse_EmptyKindDropped(t *testing.T) {
	text := "ACTION:\nTARGET: a.js\nREASONING: no kind given\n"
	assert.Empty(t, Parse(text))
}

func TestParse_NoActions(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("Just a prose answer with no action blocks at all."))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{"create_file", KindCreateFile},
		{"edit_file", KindEditFile},
		{"delete_file", KindDeleteFile},
		{"run_command", KindRunCommand},
		{"create_project", KindCreateProject},
		{"explain", KindExplain},
		{"compile", KindUnrecognized},
		{"", KindUnrecognized},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseKind(tt.raw), "raw=%q", tt.raw)
	}
}
