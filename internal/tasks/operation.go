package tasks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/taskcollector/internal/apperr"
)

// Operation names a whole-document transformation.
type Operation string

const (
	OpCompleteAll   Operation = "complete-all"
	OpResetAll      Operation = "reset-all"
	OpMoveCompleted Operation = "move-completed"
	OpMark          Operation = "mark"
)

// DefaultMark is the mark used for completion when none is given.
const DefaultMark = "x"

// ParseOperation validates an operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpCompleteAll, OpResetAll, OpMoveCompleted, OpMark:
		return op, nil
	}
	return "", fmt.Errorf("%w: unknown operation %q", apperr.ErrInvalidArgument, s)
}

// Request describes one transformation.
type Request struct {
	Op   Operation
	Mark string
	// Selection is only used by OpMark.
	Selection Selection
}

// Result is the outcome of Apply.
type Result struct {
	Document string
	// Selection is set for OpMark.
	Selection *Selection
	Changed   bool
}

// Apply runs req against doc with the current pattern set.
func (e *Engine) Apply(doc string, req Request) (Result, error) {
	mark := req.Mark
	if mark == "" {
		mark = DefaultMark
	}

	var out Result
	switch req.Op {
	case OpCompleteAll:
		if c := e.Patterns().Vocabulary().ClassOf(mark); c != Complete && c != Canceled {
			return Result{}, fmt.Errorf("%w: %q is not a completion mark", apperr.ErrInvalidArgument, mark)
		}
		out.Document = e.MarkAll(doc, mark)
	case OpResetAll:
		out.Document = e.ResetAll(doc)
	case OpMoveCompleted:
		out.Document = e.MoveCompleted(doc)
	case OpMark:
		res := e.MarkLines(doc, mark, req.Selection)
		if !res.Recognized {
			return Result{}, fmt.Errorf("%w: unrecognized mark %q", apperr.ErrInvalidArgument, mark)
		}
		out.Document = res.Document
		out.Selection = &res.Selection
	default:
		return Result{}, fmt.Errorf("%w: unknown operation %q", apperr.ErrInvalidArgument, req.Op)
	}
	out.Changed = out.Document != doc
	return out, nil
}

// ParseLines parses a zero-based line span such as "3" or "3-5" into a
// selection. Reversed spans are accepted.
func ParseLines(s string) (Selection, error) {
	from, to, found := strings.Cut(strings.TrimSpace(s), "-")
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil || start < 0 {
		return Selection{}, fmt.Errorf("%w: invalid line span %q", apperr.ErrInvalidArgument, s)
	}
	if !found {
		return Cursor(start), nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil || end < 0 {
		return Selection{}, fmt.Errorf("%w: invalid line span %q", apperr.ErrInvalidArgument, s)
	}
	return Selection{Start: Position{Line: start}, End: Position{Line: end}}, nil
}
