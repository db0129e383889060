//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	path UNINDEXED,
	title,
	body,
	tags,
	tokenize = 'unicode61 remove_diacritics 2'
);`

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(ftsSchemaSQL)
	return err
}

func ftsUpsert(tx *sql.Tx, rel, title, body string, tags []string) error {
	if err := ftsDelete(tx, rel); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO documents_fts (path, title, body, tags) VALUES (?, ?, ?, ?)`,
		rel, title, body, strings.Join(tags, " ")); err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, rel string) error {
	if _, err := tx.Exec(`DELETE FROM documents_fts WHERE path = ?`, rel); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search runs query as a single FTS5 phrase. Title matches weigh ten times
// body matches and tags five times. Snippets are plain text with "..." at
// the cut points.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	rows, err := db.conn.Query(`
		SELECT path, title, snippet(documents_fts, 2, '', '', '...', 24)
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY bm25(documents_fts, 0.0, 10.0, 1.0, 5.0)
		LIMIT ?
	`, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return results, nil
}
