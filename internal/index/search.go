package index

import (
	"database/sql"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	defaultSearchLimit = 20
	snippetRadius      = 80
)

// likePattern turns query into a LIKE pattern matching it anywhere, with
// '\' as the escape character.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

// snippetAround returns up to snippetRadius bytes of body on each side of
// the first case-insensitive occurrence of query, trimmed to whole runes
// and words. Without a match it returns the start of body.
func snippetAround(body, query string) string {
	start, end := 0, 0
	if query != "" {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
		if loc := re.FindStringIndex(body); loc != nil {
			start, end = loc[0], loc[1]
		}
	}
	from := max(start-snippetRadius, 0)
	to := min(end+snippetRadius, len(body))
	if end == 0 {
		to = min(2*snippetRadius, len(body))
	}
	for from > 0 && !utf8.RuneStart(body[from]) {
		from--
	}
	for to < len(body) && !utf8.RuneStart(body[to]) {
		to++
	}

	s := body[from:to]
	if from > 0 {
		if i := strings.IndexAny(s, " \n"); i >= 0 && i < start-from {
			s = s[i+1:]
		}
		s = "..." + s
	}
	if to < len(body) {
		if i := strings.LastIndexAny(s, " \n"); i >= len(s)-(to-end) {
			s = s[:i]
		}
		s += "..."
	}
	return strings.Join(strings.Fields(s), " ")
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
