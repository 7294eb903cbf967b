// Package tasks implements the checkbox task engine: compiling mark and
// stamp settings into a pattern set, classifying and rewriting task lines,
// and reorganizing documents so completed tasks collect under a log heading.
//
// Everything here is a pure function of its input text and a compiled
// Patterns value. Engine owns the current Patterns and swaps it atomically
// when settings change.
package tasks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/taskcollector/internal/apperr"
	"github.com/starford/taskcollector/internal/datefmt"
)

var (
	anyListItemRe = regexp.MustCompile(`^(\s*- )([^\\\[].*)$`)
	anyTaskRe     = regexp.MustCompile(`^(\s*- \[).(\] .*)$`)
	blockRefRe    = regexp.MustCompile(`^(.*?)( \^[A-Za-z0-9-]+)?$`)
	stripTaskRe   = regexp.MustCompile(`^(\s*-) \[.\] (.*)$`)
	taskPrefixRe  = regexp.MustCompile(`^(\s*)- \[(.)\]`)
	indentedRe    = regexp.MustCompile(`^( {2,}|\t)`)
)

// Patterns is a compiled, immutable pattern set. All fields are built
// together by Compile.
type Patterns struct {
	settings Settings
	vocab    Vocabulary

	incomplete *regexp.Regexp
	completed  *regexp.Regexp
	// remove and reset are nil when not configured.
	remove *regexp.Regexp
	reset  *regexp.Regexp
	stamp  *datefmt.Layout

	contextMenu bool
}

// Compile builds a pattern set from settings. Invalid user patterns are
// reported as errors wrapping apperr.ErrInvalidConfig.
func Compile(s Settings) (*Patterns, error) {
	s.CompletedAreaHeader = s.Heading()
	vocab := NewVocabulary(s)
	s.IncompleteTaskValues = vocab.Marks(Incomplete)

	p := &Patterns{
		settings:    s,
		vocab:       vocab,
		contextMenu: s.ContextMenu.Any(),
	}

	var err error
	if p.incomplete, err = compileTask(vocab.Marks(Incomplete)); err != nil {
		return nil, fmt.Errorf("%w: incomplete task values: %v", apperr.ErrInvalidConfig, err)
	}
	if p.completed, err = compileTask(vocab.Union(Complete, Canceled)); err != nil {
		return nil, fmt.Errorf("%w: completed task values: %v", apperr.ErrInvalidConfig, err)
	}

	if s.RemoveExpression != "" {
		if p.remove, err = regexp.Compile(s.RemoveExpression); err != nil {
			return nil, fmt.Errorf("%w: remove expression: %v", apperr.ErrInvalidConfig, err)
		}
	}

	// A format with no pieces stamps nothing and gets no reset pattern.
	if layout := datefmt.Parse(s.AppendDateFormat); !layout.IsZero() {
		p.stamp = &layout
		if p.reset, err = regexp.Compile(layout.Pattern() + `( \^[A-Za-z0-9-]+)?$`); err != nil {
			return nil, fmt.Errorf("%w: append date format: %v", apperr.ErrInvalidConfig, err)
		}
	}

	return p, nil
}

func compileTask(marks string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(\s*- \[)` + charClass(marks) + `(\] .*)$`)
}

// Settings returns the settings the set was compiled from, normalized: the
// heading is filled in and the incomplete values always contain a space.
func (p *Patterns) Settings() Settings {
	return p.settings
}

// Vocabulary returns the mark partition.
func (p *Patterns) Vocabulary() Vocabulary {
	return p.vocab
}

// ContextMenu reports whether any host affordance is enabled.
func (p *Patterns) ContextMenu() bool {
	return p.contextMenu
}

// ResetPattern returns the stamp-stripping expression, or "" when no date
// format is configured.
func (p *Patterns) ResetPattern() string {
	if p.reset == nil {
		return ""
	}
	return p.reset.String()
}

func (p *Patterns) heading() string {
	return p.settings.CompletedAreaHeader
}

func (p *Patterns) isHeading(line string) bool {
	return strings.TrimSpace(line) == p.heading()
}

// endsSection reports whether line closes a log section.
func endsSection(line string) bool {
	return strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "---"
}
