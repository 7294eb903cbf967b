// Package testutil provides shared test helpers for vaults, indexes and the
// task engine.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/storage"
	"github.com/starford/taskcollector/internal/tasks"
)

// Now is the fixed clock used by TestEngine.
var Now = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite index that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "taskcollector-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestEngine builds an engine for s with a fixed clock and a silent logger.
func TestEngine(t *testing.T, s tasks.Settings) *tasks.Engine {
	t.Helper()
	e, err := tasks.NewEngine(s,
		tasks.WithClock(func() time.Time { return Now }),
		tasks.WithLogger(Logger()))
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// WriteDoc writes a document below root, creating directories as needed.
func WriteDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadDoc returns the content of a document below root.
func ReadDoc(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
