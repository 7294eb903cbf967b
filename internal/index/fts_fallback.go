//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"strings"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; text search uses LIKE on tasks.text.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ int64, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// textFilter matches task text with a case-insensitive LIKE.
func textFilter(query string) (string, any) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return `t.text LIKE ? ESCAPE '\'`, "%" + r.Replace(query) + "%"
}
