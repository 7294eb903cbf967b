// Package collector applies task engine operations to vault documents and
// keeps the index and event subscribers in step.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/taskcollector/internal/apperr"
	"github.com/starford/taskcollector/internal/checksum"
	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/models"
	"github.com/starford/taskcollector/internal/parser"
	"github.com/starford/taskcollector/internal/storage"
	"github.com/starford/taskcollector/internal/tasks"
)

// Event sources reported with document events.
const (
	SourceCollector = "collector"
	SourceAutoMove  = "auto-move"
	SourceWatcher   = "watcher"
)

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	PublishDocumentEvent(kind, path, source string)
	PublishSettings(settings any)
}

// ApplyResult is the outcome of an operation on a stored document.
type ApplyResult struct {
	Document  *models.Document `json:"document"`
	Selection *tasks.Selection `json:"selection,omitempty"`
	Changed   bool             `json:"changed"`
}

// Service coordinates the engine, storage and index.
type Service struct {
	store  storage.Provider
	db     index.TaskIndex
	engine *tasks.Engine
	events Publisher
	logger *slog.Logger

	// mu serializes read-modify-write cycles on documents.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a collector service.
func NewService(store storage.Provider, db index.TaskIndex, engine *tasks.Engine, opts ...Option) *Service {
	s := &Service{
		store:  store,
		db:     db,
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the task engine.
func (s *Service) Engine() *tasks.Engine {
	return s.engine
}

// ListDocuments returns every indexed document with task counts.
func (s *Service) ListDocuments(_ context.Context) ([]index.DocumentRow, error) {
	rows, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []index.DocumentRow{}
	}
	return rows, nil
}

// GetDocument reads a document and lists its tasks.
func (s *Service) GetDocument(_ context.Context, path string) (*models.Document, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildDocument(path, data)
}

// Apply runs req against the stored document at path. When ifMatch is set
// and differs from the current checksum the call fails with
// apperr.ErrConflict. The document is written, re-indexed and announced only
// if the operation changed it.
func (s *Service) Apply(_ context.Context, path string, req tasks.Request, ifMatch string) (*ApplyResult, error) {
	return s.apply(path, req, ifMatch, SourceCollector)
}

// AutoMove moves completed tasks of path into its log section. It is meant
// for watcher callbacks and is a no-op for documents that are already tidy.
func (s *Service) AutoMove(_ context.Context, path string) error {
	res, err := s.apply(path, tasks.Request{Op: tasks.OpMoveCompleted}, "", SourceAutoMove)
	if err != nil {
		return err
	}
	if res.Changed {
		s.logger.Info("collector: auto-moved completed tasks", slog.String("path", path))
	}
	return nil
}

func (s *Service) apply(path string, req tasks.Request, ifMatch, source string) (*ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if !checksum.Match(ifMatch, data) {
		return nil, fmt.Errorf("%w: %s changed since %s", apperr.ErrConflict, path, ifMatch)
	}

	res, err := s.engine.Apply(string(data), req)
	if err != nil {
		return nil, err
	}

	out := []byte(res.Document)
	if res.Changed {
		if err := s.store.Write(path, out); err != nil {
			return nil, err
		}
		if err := index.IndexDocument(s.db, s.engine, path, out, time.Now()); err != nil {
			s.logger.Warn("collector: reindex failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		s.logger.Debug("collector: applied",
			slog.String("path", path),
			slog.String("op", string(req.Op)),
			slog.String("source", source))
		if s.events != nil {
			s.events.PublishDocumentEvent(index.KindUpdated, path, source)
		}
	}

	doc, err := s.buildDocument(path, out)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Document: doc, Selection: res.Selection, Changed: res.Changed}, nil
}

// Transform applies req to text without touching the vault.
func (s *Service) Transform(_ context.Context, text string, req tasks.Request) (tasks.Result, error) {
	return s.engine.Apply(text, req)
}

// ListTasks queries the task index. An unknown state is rejected with
// apperr.ErrInvalidArgument.
func (s *Service) ListTasks(_ context.Context, q index.TaskQuery) ([]models.Task, error) {
	if q.State != "" {
		if _, ok := tasks.ParseClass(q.State); !ok {
			return nil, fmt.Errorf("%w: unknown state %q", apperr.ErrInvalidArgument, q.State)
		}
	}
	out, err := s.db.ListTasks(q)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Task{}
	}
	return out, nil
}

// Settings returns the live, normalized settings.
func (s *Service) Settings() tasks.Settings {
	return s.engine.Settings()
}

// UpdateSettings swaps in new settings, rebuilds the task index under them
// and announces the change. Invalid settings leave the previous set live and
// return an error wrapping apperr.ErrInvalidConfig.
func (s *Service) UpdateSettings(_ context.Context, settings tasks.Settings) (tasks.Settings, error) {
	if err := s.engine.Update(settings); err != nil {
		return tasks.Settings{}, err
	}
	live := s.engine.Settings()

	s.mu.Lock()
	err := index.Rebuild(s.db, s.store, s.engine, s.logger)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("collector: rebuild after settings update failed", slog.String("error", err.Error()))
	}

	if s.events != nil {
		s.events.PublishSettings(live)
	}
	return live, nil
}

func (s *Service) read(path string) ([]byte, error) {
	if !storage.IsDocument(path) {
		return nil, fmt.Errorf("%w: not a markdown document: %s", apperr.ErrInvalidArgument, path)
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) buildDocument(path string, data []byte) (*models.Document, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &models.Document{
		Path:        path,
		Content:     string(data),
		Title:       res.Title,
		Frontmatter: res.Frontmatter,
		Tags:        nonNilSlice(res.Tags),
		Tasks:       parser.ExtractTasks(path, string(data), s.engine),
		Checksum:    checksum.Sum(data),
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
