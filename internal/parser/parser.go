// Package parser splits YAML front matter from Markdown and derives a
// document's title and tags.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

const fence = "---"

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	// Body is the Markdown after the front matter block.
	Body  []byte
	Tags  []string
	Title string
}

// Parse extracts front matter, body, title and tags from raw Markdown bytes.
// Malformed front matter is not an error; the whole input is then the body.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}
}

// splitFrontmatter separates a YAML block fenced by "---" lines at the very
// start of the document from the Markdown body.
func splitFrontmatter(data []byte) (map[string]any, []byte) {
	rest, ok := cutFenceLine(data)
	if !ok {
		return nil, data
	}

	// The closing fence must start a line of its own.
	var yamlBlock, body []byte
	found := false
	for off := 0; off < len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line := rest[off:]
		next := len(rest)
		if end >= 0 {
			line = rest[off : off+end]
			next = off + end + 1
		}
		if string(bytes.TrimRight(line, " \t\r")) == fence {
			yamlBlock, body, found = rest[:off], rest[next:], true
			break
		}
		off = next
	}
	if !found {
		return nil, data
	}

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, data
	}
	return fm, bytes.TrimLeft(body, "\r\n")
}

// cutFenceLine strips an opening "---" line from data.
func cutFenceLine(data []byte) ([]byte, bool) {
	if !bytes.HasPrefix(data, []byte(fence)) {
		return nil, false
	}
	rest := data[len(fence):]
	rest = bytes.TrimLeft(rest, " \t")
	switch {
	case bytes.HasPrefix(rest, []byte("\r\n")):
		return rest[2:], true
	case bytes.HasPrefix(rest, []byte("\n")):
		return rest[1:], true
	}
	return nil, false
}

// extractTags collects the front matter "tags" list followed by inline
// #tags from the body, without duplicates.
func extractTags(body []byte, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}

	for _, m := range tagRe.FindAllSubmatch(stripCode(body), -1) {
		add(string(m[1]))
	}
	return out
}

// stripCode drops fenced code blocks so shell comments are not read as tags.
func stripCode(body []byte) []byte {
	var out bytes.Buffer
	inFence := false
	for _, line := range bytes.Split(body, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~")) {
			inFence = !inFence
			continue
		}
		if !inFence {
			out.Write(line)
			out.WriteByte('\n')
		}
	}
	return out.Bytes()
}

// deriveTitle returns the front matter "title" if present, otherwise the
// first ATX H1 outside code, otherwise "".
func deriveTitle(fm map[string]any, body []byte) string {
	if s, ok := fm["title"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	for _, line := range strings.Split(string(stripCode(body)), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimRight(trimmed[2:], "# "))
		}
	}
	return ""
}
