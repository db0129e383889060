package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/mdserve/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// LinkRow is one outgoing local link of a document. Target is the linked
// path relative to the root, without leading or trailing slash.
type LinkRow struct {
	Target   string
	Fragment string
	Snippet  string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// LinkTarget turns the root-relative target of a rewritten link
// ("/docs/a%20b.md#setup") into its link-table key and fragment. ok is false
// when the path cannot be decoded.
func LinkTarget(target string) (key, fragment string, ok bool) {
	p := target
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p, fragment = p[:i], p[i+1:]
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", "", false
	}
	return strings.Trim(decoded, "/"), fragment, true
}

// targetKeys lists the keys a link to the document rel may be stored under:
// the path itself, its extensionless form and, for a directory index
// document, its directory.
func (db *DB) targetKeys(rel string) []string {
	keys := []string{rel}
	if ext := path.Ext(rel); ext != "" {
		keys = append(keys, strings.TrimSuffix(rel, ext))
	}
	base := path.Base(rel)
	for _, name := range db.indexNames {
		if base == name {
			dir := path.Dir(rel)
			if dir == "." {
				dir = ""
			}
			keys = append(keys, dir)
			break
		}
	}
	return keys
}

// UpsertDocument inserts or replaces a document, its FTS entry, and links within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, links []LinkRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, string(tagsJSON), body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d.Path, d.Title, body, d.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, fragment, snippet) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(d.Path, l.Target, l.Fragment, l.Snippet); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document with its search entry and outgoing links.
func (db *DB) DeleteDocument(rel string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, rel); err != nil {
		return err
	}
	// Outgoing links go with the row (ON DELETE CASCADE).
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, rel); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(rel string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, rel).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed document, keyed by path.
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

// List ordering accepted by ListDocuments.
const (
	SortPath    = "path"
	SortTitle   = "title"
	SortUpdated = "updated_at"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var listOrder = map[string]string{
	SortPath:    "path",
	SortTitle:   "title COLLATE NOCASE, path",
	SortUpdated: "updated_at DESC, path",
}

// ListDocuments returns one page of indexed documents and the total number
// matching. tag, when set, keeps documents carrying that front-matter tag.
// Unknown sort values fall back to SortPath.
func (db *DB) ListDocuments(limit, offset int, tag, sortBy string) ([]DocumentRow, int, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	order, ok := listOrder[sortBy]
	if !ok {
		order = listOrder[SortPath]
	}

	where := ""
	var args []any
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(documents.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, title, checksum, tags, updated_at
		FROM documents `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		var tags string
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &tags, &d.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("index: scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
			d.Tags = nil
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// Backlinks returns the documents linking to rel, ordered by source path.
// Self-links are left out.
func (db *DB) Backlinks(rel string) ([]models.Backlink, error) {
	keys := db.targetKeys(rel)
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, rel)

	rows, err := db.conn.Query(`
		SELECT l.source, COALESCE(d.title, ''), l.fragment, MIN(l.snippet)
		FROM links l
		LEFT JOIN documents d ON d.path = l.source
		WHERE l.target IN (?`+strings.Repeat(", ?", len(keys)-1)+`) AND l.source != ?
		GROUP BY l.source, l.fragment
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []models.Backlink
	for rows.Next() {
		var b models.Backlink
		if err := rows.Scan(&b.Source, &b.SourceTitle, &b.Fragment, &b.Snippet); err != nil {
			return nil, err
		}
		if b.SourceTitle == "" {
			b.SourceTitle = b.Source
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Fragment < out[j].Fragment
	})
	return out, nil
}
