package tasks

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Engine owns the live pattern set. Update compiles a replacement off to the
// side and swaps it in; callers never observe a partially built set.
type Engine struct {
	patterns atomic.Pointer[Patterns]
	now      func() time.Time
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source used for completion stamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger used for settings updates.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine compiles s and returns an engine serving it.
func NewEngine(s Settings, opts ...EngineOption) (*Engine, error) {
	e := &Engine{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Update(s); err != nil {
		return nil, err
	}
	return e, nil
}

// Update replaces the pattern set. On error the previous set stays live.
func (e *Engine) Update(s Settings) error {
	p, err := Compile(s)
	if err != nil {
		e.logger.Warn("tasks: settings rejected", slog.String("error", err.Error()))
		return err
	}
	e.patterns.Store(p)
	e.logger.Debug("tasks: settings updated",
		slog.String("incomplete", p.vocab.Marks(Incomplete)),
		slog.String("completed", p.vocab.Union(Complete, Canceled)),
		slog.String("heading", p.heading()),
		slog.String("reset_pattern", p.ResetPattern()),
		slog.Bool("context_menu", p.contextMenu))
	return nil
}

// Patterns returns the current pattern set.
func (e *Engine) Patterns() *Patterns {
	return e.patterns.Load()
}

// Settings returns the normalized settings of the current pattern set.
func (e *Engine) Settings() Settings {
	return e.Patterns().Settings()
}

// CompleteLine completes one line with the current settings.
func (e *Engine) CompleteLine(line, mark string) string {
	return e.Patterns().CompleteLine(line, mark, e.now())
}

// ResetLine resets one line with the current settings.
func (e *Engine) ResetLine(line, mark string) string {
	return e.Patterns().ResetLine(line, mark)
}

// MarkAll completes every incomplete task in doc.
func (e *Engine) MarkAll(doc, mark string) string {
	return e.Patterns().MarkAll(doc, mark, e.now())
}

// ResetAll resets completed tasks outside the log section.
func (e *Engine) ResetAll(doc string) string {
	return e.Patterns().ResetAll(doc)
}

// MoveCompleted moves completed task blocks under the log heading.
func (e *Engine) MoveCompleted(doc string) string {
	return e.Patterns().MoveCompleted(doc)
}

// MarkLines applies mark to the selected lines.
func (e *Engine) MarkLines(doc, mark string, sel Selection) MarkResult {
	res := e.Patterns().MarkLines(doc, mark, sel, e.now())
	if !res.Recognized {
		e.logger.Debug("tasks: unrecognized mark", slog.String("mark", mark))
	}
	return res
}

// Scan lists the task lines of doc.
func (e *Engine) Scan(doc string) []TaskLine {
	return e.Patterns().Scan(doc)
}
