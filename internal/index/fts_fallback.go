//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

// Without FTS5 the documents table is searched directly.
func initFTS(*sql.DB) error { return nil }

func ftsUpsert(*sql.Tx, string, string, string, []string) error { return nil }

func ftsDelete(*sql.Tx, string) error { return nil }

// Search matches query as a case-insensitive substring of the title, body
// or tags. Title hits sort first, then paths alphabetically.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	pattern := likePattern(query)
	rows, err := db.conn.Query(`
		SELECT path, title, body
		FROM documents
		WHERE title LIKE ?1 ESCAPE '\' OR body LIKE ?1 ESCAPE '\' OR tags LIKE ?1 ESCAPE '\'
		ORDER BY (title LIKE ?1 ESCAPE '\') DESC, path
		LIMIT ?2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	for i := range results {
		results[i].Snippet = snippetAround(results[i].Snippet, query)
	}
	return results, nil
}
