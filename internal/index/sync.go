package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/taskcollector/internal/checksum"
	"github.com/starford/taskcollector/internal/parser"
	"github.com/starford/taskcollector/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db TaskIndex, store storage.Provider, scanner parser.Scanner, logger *slog.Logger) error {
	return syncVault(db, store, scanner, logger, false)
}

// Rebuild re-indexes every document regardless of checksum. Task states
// depend on the mark settings, so a settings change calls for a rebuild.
func Rebuild(db TaskIndex, store storage.Provider, scanner parser.Scanner, logger *slog.Logger) error {
	return syncVault(db, store, scanner, logger, true)
}

func syncVault(db TaskIndex, store storage.Provider, scanner parser.Scanner, logger *slog.Logger, force bool) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	indexed := 0
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if !force && checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, scanner, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	logger.Info("sync: done",
		slog.Int("documents", len(metas)),
		slog.Int("indexed", indexed),
		slog.Bool("rebuild", force))
	return nil
}

// IndexDocument parses data and upserts the document and its tasks.
func IndexDocument(db TaskIndex, scanner parser.Scanner, path string, data []byte, updatedAt time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", path, err)
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	row := DocumentRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: updatedAt,
	}
	return db.UpsertDocument(row, parser.ExtractTasks(path, string(data), scanner))
}
