package tasks

import "strings"

type section int

const (
	inBody section = iota
	inLogSection
)

type block int

const (
	blockClosed block = iota
	blockOpen
)

// moveState is the reorganizer's position in the document.
type moveState struct {
	section section
	block   block
	// logSeen is set once the first log heading has been consumed; later
	// copies of the heading are ordinary body lines.
	logSeen bool
}

// moveAction says where the current line goes.
type moveAction int

const (
	// keepLine stays in the body.
	keepLine moveAction = iota
	// anchorLine is the log heading; extracted tasks are inserted after it.
	anchorLine
	// logLine is pre-existing log section content.
	logLine
	// extractTask starts or continues a completed task block.
	extractTask
	// extractContinuation is an indented line belonging to the open block.
	extractContinuation
)

// transition classifies line in state s. It is the whole state machine of
// MoveCompleted.
func (p *Patterns) transition(s moveState, line string) (moveState, moveAction) {
	if s.section == inLogSection {
		if endsSection(line) {
			s.section = inBody
			return s, keepLine
		}
		return s, logLine
	}

	if !s.logSeen && p.isHeading(line) {
		return moveState{section: inLogSection, block: blockClosed, logSeen: true}, anchorLine
	}

	if p.completed.MatchString(line) {
		s.block = blockOpen
		return s, extractTask
	}
	if s.block == blockOpen && !taskPrefixRe.MatchString(line) && indentedRe.MatchString(line) && !endsSection(line) {
		return s, extractContinuation
	}
	s.block = blockClosed
	return s, keepLine
}

// MoveCompleted relocates every completed task block in the body of doc to
// the top of the log section, keeping their relative order. Content already
// in the log section is never re-examined, so the operation is idempotent.
// A missing log heading is appended to the end of the document first.
func (p *Patterns) MoveCompleted(doc string) string {
	lines := strings.Split(doc, "\n")
	if !p.hasHeading(lines) {
		if strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		lines = append(lines, p.heading())
	}

	var (
		remaining []string
		logged    []string
		moved     []string
		state     moveState
		action    moveAction
		// slot is the index in remaining where moved tasks are inserted.
		slot = -1
	)
	for _, line := range lines {
		state, action = p.transition(state, line)
		switch action {
		case keepLine:
			remaining = append(remaining, line)
		case anchorLine:
			remaining = append(remaining, line)
			slot = len(remaining)
		case logLine:
			logged = append(logged, line)
		case extractTask:
			if p.settings.CompletedAreaRemoveCheckbox {
				line = stripTask(line)
			}
			moved = append(moved, line)
		case extractContinuation:
			moved = append(moved, line)
		}
	}

	out := make([]string, 0, len(lines))
	out = append(out, remaining[:slot]...)
	out = append(out, moved...)
	out = append(out, logged...)
	out = append(out, remaining[slot:]...)
	return strings.Join(out, "\n")
}

func (p *Patterns) hasHeading(lines []string) bool {
	for _, line := range lines {
		if p.isHeading(line) {
			return true
		}
	}
	return false
}
