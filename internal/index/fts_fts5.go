//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
			path UNINDEXED,
			text,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// ftsUpsert indexes one task under the rowid of its tasks row.
func ftsUpsert(tx *sql.Tx, id int64, path, text string, tags []string) error {
	_, err := tx.Exec(`INSERT INTO tasks_fts (rowid, path, text, tags) VALUES (?, ?, ?, ?)`,
		id, path, text, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM tasks_fts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// textFilter matches task text through the FTS5 table. Each word of query
// becomes a quoted prefix term so user input never reaches the MATCH
// syntax unescaped.
func textFilter(query string) (string, any) {
	var terms []string
	for _, w := range strings.Fields(query) {
		terms = append(terms, `"`+strings.ReplaceAll(w, `"`, `""`)+`"*`)
	}
	if len(terms) == 0 {
		return "", nil
	}
	return "t.id IN (SELECT rowid FROM tasks_fts WHERE tasks_fts MATCH ?)", strings.Join(terms, " ")
}
