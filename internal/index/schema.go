// Package index keeps a SQLite index of the documents under the serve root:
// their titles and bodies for search, and the local links between them for
// backlinks. FTS5 is used when compiled in.
package index

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// migrations are applied in order; PRAGMA user_version records how many
// have run against a database file.
var migrations = []string{
	`CREATE TABLE documents (
		path       TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		checksum   TEXT NOT NULL DEFAULT '',
		tags       TEXT NOT NULL DEFAULT '[]',
		body       TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE links (
		source   TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
		target   TEXT NOT NULL,
		fragment TEXT NOT NULL DEFAULT '',
		snippet  TEXT NOT NULL DEFAULT '',
		UNIQUE(source, target, fragment)
	)`,
	`CREATE INDEX idx_links_target ON links(target)`,
}

// DefaultIndexNames are the directory index documents a link to a directory
// is taken to point at.
var DefaultIndexNames = []string{"README.md", "index.md"}

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn       *sql.DB
	indexNames []string
}

// Open opens (or creates) the SQLite database at dsn and brings its schema
// up to date. indexNames overrides DefaultIndexNames for backlink lookups.
func Open(dsn string, indexNames ...string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if dsn == MemoryDSN || strings.Contains(dsn, "mode=memory") {
		// Every new connection would see its own empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	if len(indexNames) == 0 {
		indexNames = DefaultIndexNames
	}
	return &DB{conn: conn, indexNames: indexNames}, nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("index: schema version %d is newer than this build (%d)", version, len(migrations))
	}
	if version == len(migrations) {
		return nil
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("index: migrate: %w", err)
	}
	defer tx.Rollback()
	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("index: migration %d: %w", i+1, err)
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, len(migrations))); err != nil {
		return fmt.Errorf("index: set schema version: %w", err)
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
