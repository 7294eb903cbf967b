package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/taskcollector/internal/models"
)

// DefaultTaskLimit caps ListTasks when no limit is given.
const DefaultTaskLimit = 200

// DocumentRow represents a row in the documents table plus task counts.
type DocumentRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
	// Open counts incomplete tasks; Done counts complete and canceled ones.
	Open int `json:"open"`
	Done int `json:"done"`
}

// TaskQuery filters ListTasks. Zero values match everything.
type TaskQuery struct {
	State string
	Path  string
	Tag   string
	// Text is matched against task text (FTS5 MATCH or LIKE).
	Text string
	// InLog, when set, restricts to tasks inside or outside the log section.
	InLog *bool
	Limit int
}

// UpsertDocument replaces a document row and all of its tasks in one
// transaction.
func (db *DB) UpsertDocument(d DocumentRow, tasks []models.Task) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, tags, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, encodeTags(d.Tags), d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsDelete(tx, d.Path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tasks WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear tasks: %w", err)
	}

	if len(tasks) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO tasks (path, line, indent, mark, state, text, block_ref, tags, in_log)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare task insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range tasks {
			res, err := stmt.Exec(d.Path, t.Line, t.Indent, t.Mark, t.State, t.Text, t.BlockRef, encodeTags(t.Tags), t.InLog)
			if err != nil {
				return fmt.Errorf("index: insert task: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("index: task id: %w", err)
			}
			if err := ftsUpsert(tx, id, d.Path, t.Text, t.Tags); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and its tasks.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tasks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete tasks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or "" if it is
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListDocuments returns every indexed document ordered by path.
func (db *DB) ListDocuments() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT d.path, d.title, d.checksum, d.tags, d.updated_at,
		       (SELECT count(*) FROM tasks t WHERE t.path = d.path AND t.state = 'incomplete'),
		       (SELECT count(*) FROM tasks t WHERE t.path = d.path AND t.state IN ('complete', 'canceled'))
		FROM documents d
		ORDER BY d.path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var (
			d    DocumentRow
			tags string
		)
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &tags, &d.UpdatedAt, &d.Open, &d.Done); err != nil {
			return nil, err
		}
		d.Tags = decodeTags(tags)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListTasks returns tasks matching q ordered by path and line.
func (db *DB) ListTasks(q TaskQuery) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	if q.State != "" {
		where = append(where, "t.state = ?")
		args = append(args, q.State)
	}
	if q.Path != "" {
		where = append(where, "t.path = ?")
		args = append(args, q.Path)
	}
	if q.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(t.tags) WHERE json_each.value = ?)")
		args = append(args, q.Tag)
	}
	if q.InLog != nil {
		where = append(where, "t.in_log = ?")
		args = append(args, *q.InLog)
	}
	if clause, arg := textFilter(q.Text); clause != "" {
		where = append(where, clause)
		args = append(args, arg)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultTaskLimit
	}

	query := `SELECT t.path, t.line, t.indent, t.mark, t.state, t.text, t.block_ref, t.tags, t.in_log FROM tasks t`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.path, t.line LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list tasks: %w", err)
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var (
			t    models.Task
			tags string
		)
		if err := rows.Scan(&t.Path, &t.Line, &t.Indent, &t.Mark, &t.State, &t.Text, &t.BlockRef, &tags, &t.InLog); err != nil {
			return nil, err
		}
		t.Tags = decodeTags(tags)
		out = append(out, t)
	}
	return out, rows.Err()
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(s string) []string {
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	if len(out) == 0 {
		return nil
	}
	return out
}
