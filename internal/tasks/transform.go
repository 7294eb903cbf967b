package tasks

import (
	"strings"
	"time"
	"unicode"
)

// CompleteLine marks an incomplete task with mark, deletes matches of the
// remove expression and appends the date stamp in front of any trailing
// block reference. Lines that are not incomplete tasks are returned as is.
//
// The remove expression runs before the block reference is detached, so an
// expression that matches " ^id" text will delete the reference.
func (p *Patterns) CompleteLine(line, mark string, now time.Time) string {
	m := p.incomplete.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	marked := m[1] + mark + m[2]

	if p.remove != nil {
		marked = p.remove.ReplaceAllLiteralString(marked, "")
	}

	if p.stamp != nil {
		body, ref := splitBlockRef(marked)
		body = strings.TrimRight(body, " ") + " "
		marked = body + p.stamp.Format(now) + ref
	}
	return marked
}

// ResetLine sets the mark of a completed or canceled task back to mark and
// strips a trailing date stamp. Other lines are returned as is.
func (p *Patterns) ResetLine(line, mark string) string {
	if !p.completed.MatchString(line) {
		return line
	}
	return p.resetTask(line, mark)
}

// StripCheckbox turns a completed or canceled task into a plain list item.
// Other lines are returned as is.
func (p *Patterns) StripCheckbox(line string) string {
	if !p.completed.MatchString(line) {
		return line
	}
	return stripTask(line)
}

// resetTask rewrites the mark of any task line and strips the stamp.
func (p *Patterns) resetTask(line, mark string) string {
	m := anyTaskRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	prefix := m[1] + mark + "]"
	rest := m[2][1:] // " body..."

	body, ref := splitBlockRef(rest)
	if p.reset != nil {
		body = p.reset.ReplaceAllLiteralString(body, "")
	}
	body = strings.TrimRightFunc(body, unicode.IsSpace)
	if body == "" && ref == "" {
		// keep "] " so the line is still a task
		body = " "
	}
	return prefix + body + ref
}

func stripTask(line string) string {
	m := stripTaskRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	return m[1] + " " + m[2]
}

// splitBlockRef detaches a trailing " ^id" block reference.
func splitBlockRef(line string) (body, ref string) {
	m := blockRefRe.FindStringSubmatch(line)
	if m == nil || m[2] == "" {
		return line, ""
	}
	return m[1], m[2]
}

// promote turns a plain list item into an incomplete task.
func promote(line string) (string, bool) {
	if anyTaskRe.MatchString(line) {
		return line, true
	}
	m := anyListItemRe.FindStringSubmatch(line)
	if m == nil || m[2] == "" {
		return line, false
	}
	return m[1] + "[ ] " + m[2], true
}
