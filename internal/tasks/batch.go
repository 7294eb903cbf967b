package tasks

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MarkRemoveCheckbox is the mark that asks MarkLines to strip the checkbox
// instead of setting a mark.
const MarkRemoveCheckbox = "Backspace"

// MarkAll completes every incomplete task in doc with mark. All other lines
// are left untouched and the line count never changes.
func (p *Patterns) MarkAll(doc, mark string, now time.Time) string {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		if p.incomplete.MatchString(line) {
			lines[i] = p.CompleteLine(line, mark, now)
		}
	}
	return strings.Join(lines, "\n")
}

// ResetAll resets every completed or canceled task in doc, except those in a
// log section.
func (p *Patterns) ResetAll(doc string) string {
	lines := strings.Split(doc, "\n")
	inLog := false
	for i, line := range lines {
		switch {
		case inLog:
			if endsSection(line) {
				inLog = false
			}
		case p.isHeading(line):
			inLog = true
		default:
			lines[i] = p.ResetLine(line, " ")
		}
	}
	return strings.Join(lines, "\n")
}

// Position is a cursor position in the host editor. Line is zero based, Ch
// counts characters within the line.
type Position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// Selection is an inclusive span of lines.
type Selection struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Cursor returns an empty selection on a single line.
func Cursor(line int) Selection {
	return Selection{Start: Position{Line: line}, End: Position{Line: line}}
}

// MarkResult reports what MarkLines did.
type MarkResult struct {
	Document  string
	Selection Selection
	// Changed counts lines whose text changed.
	Changed int
	// Recognized is false when mark belongs to no configured class; the
	// document is then returned unchanged.
	Recognized bool
}

// MarkLines applies mark to each line in the selection. Plain list items
// are promoted to tasks first. A complete or canceled mark completes
// incomplete tasks and leaves already completed ones alone; an incomplete
// mark resets the task to that mark; MarkRemoveCheckbox strips the checkbox.
// The returned selection ends at the end of the last touched line.
func (p *Patterns) MarkLines(doc, mark string, sel Selection, now time.Time) MarkResult {
	lines := strings.Split(doc, "\n")
	first, last := sel.Start.Line, sel.End.Line
	if first > last {
		first, last = last, first
		sel.Start, sel.End = sel.End, sel.Start
	}
	first = max(first, 0)
	last = min(last, len(lines)-1)

	res := MarkResult{Document: doc, Selection: sel}
	class := p.vocab.ClassOf(mark)
	res.Recognized = class != Unrecognized || mark == MarkRemoveCheckbox
	if !res.Recognized || first > last {
		return res
	}

	for i := first; i <= last; i++ {
		line, ok := promote(lines[i])
		if !ok {
			continue
		}
		switch {
		case mark == MarkRemoveCheckbox:
			line = stripTask(line)
		case class == Incomplete:
			line = p.resetTask(line, mark)
		case p.incomplete.MatchString(line):
			line = p.CompleteLine(line, mark, now)
		}
		if line != lines[i] {
			lines[i] = line
			res.Changed++
		}
	}

	res.Document = strings.Join(lines, "\n")
	res.Selection = Selection{
		Start: sel.Start,
		End:   Position{Line: last, Ch: utf8.RuneCountInString(lines[last])},
	}
	if res.Selection.Start.Line < first {
		res.Selection.Start = Position{Line: first}
	}
	return res
}

// TaskLine is one task found by Scan.
type TaskLine struct {
	Line     int    `json:"line"`
	Indent   string `json:"indent"`
	Mark     string `json:"mark"`
	Class    Class  `json:"-"`
	State    string `json:"state"`
	Text     string `json:"text"`
	BlockRef string `json:"block_ref,omitempty"`
	InLog    bool   `json:"in_log"`
}

// Scan lists the task lines of doc in order.
func (p *Patterns) Scan(doc string) []TaskLine {
	var out []TaskLine
	// Only the first heading opens the log, matching MoveCompleted.
	inLog, logSeen := false, false
	for i, line := range strings.Split(doc, "\n") {
		switch {
		case inLog:
			if endsSection(line) {
				inLog = false
				continue
			}
		case !logSeen && p.isHeading(line):
			inLog, logSeen = true, true
			continue
		}

		m := taskPrefixRe.FindStringSubmatch(line)
		if m == nil || !anyTaskRe.MatchString(line) {
			continue
		}
		text, ref := splitBlockRef(line[len(m[0])+1:])
		class := p.vocab.ClassOf(m[2])
		out = append(out, TaskLine{
			Line:     i,
			Indent:   m[1],
			Mark:     m[2],
			Class:    class,
			State:    class.String(),
			Text:     text,
			BlockRef: strings.TrimPrefix(ref, " ^"),
			InLog:    inLog,
		})
	}
	return out
}
