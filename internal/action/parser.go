package action

import "strings"

// Line keys of the action grammar. Keys are case-sensitive and must start
// the line; everything after the first colon is the value.
const (
	keyAction    = "ACTION:"
	keyTarget    = "TARGET:"
	keyContent   = "CONTENT:"
	keyCommand   = "COMMAND:"
	keyReasoning = "REASONING:"
)

// Parse scans raw model output and returns the ordered actions it contains.
// It never fails: malformed or incomplete blocks are dropped, and any line
// that is not a known key is treated as interleaved prose and ignored.
//
// An action is only emitted once it has both a kind token and a non-empty
// reasoning line; a block that reaches the next ACTION: line (or end of
// input) without reasoning is discarded, even if it carried target/content.
func Parse(text string) []Action {
	lines := strings.Split(text, "\n")
	var actions []Action
	var cur *Action

	flush := func() {
		if cur != nil && cur.RawKind != "" && cur.Reasoning != "" {
			actions = append(actions, *cur)
		}
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if strings.HasPrefix(line, keyAction) {
			flush()
			raw := valueAfter(line, keyAction)
			cur = &Action{Kind: ParseKind(raw), RawKind: raw}
			continue
		}
		if cur == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, keyTarget):
			cur.Target = valueAfter(line, keyTarget)
		case strings.HasPrefix(line, keyContent):
			// Content is multi-line: the trailing text of the CONTENT: line
			// is the first line, then every following line is captured
			// verbatim until a REASONING: line or end of input. Model output
			// embeds arbitrary source with no escaping, so the capture must
			// be greedy against all intervening lines.
			content := []string{valueAfter(line, keyContent)}
			for i+1 < len(lines) && !strings.HasPrefix(lines[i+1], keyReasoning) {
				i++
				content = append(content, lines[i])
			}
			cur.Content = strings.Join(content, "\n")
		case strings.HasPrefix(line, keyCommand):
			cur.Command = valueAfter(line, keyCommand)
		case strings.HasPrefix(line, keyReasoning):
			cur.Reasoning = valueAfter(line, keyReasoning)
		}
	}

	flush()
	return actions
}

func valueAfter(line, key string) string {
	return strings.TrimSpace(line[len(key):])
}
