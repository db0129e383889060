package mcpserver

// ServingGuide describes how URL paths map to what the server returns, so
// clients can pick paths for the other tools.
const ServingGuide = `# mdserve Serving Guide

Every path argument is a URL path relative to the serve root, exactly as it
would appear in a browser address bar. Percent-encoding is decoded once.

## Resolution order

1. **exact**: the path names a regular file.
2. **extensionless**: the last segment has no extension and "<path>.md" exists.
3. **directory-index**: the path is a directory holding README.md or index.md.
4. **directory-listing**: the path is a directory without an index document.
   The root always lists.
5. **not-found**: nothing matched; the nearest existing ancestor is reported.

Paths that climb above the root, contain a NUL byte, carry malformed
percent-encoding, or reach outside the root through a symlink are
**denied**. A denial never reveals the path or the reason.

## Documents

- Files ending in .md or .markdown are rendered to HTML over HTTP. The
  read_document tool always returns their Markdown source.
- Relative links inside a document are rewritten to root-relative paths
  against the document's own directory. Links that would climb above the
  root are left as written.
- Every heading gets a stable anchor id; duplicates get "-1", "-2", ...
- Files larger than the configured limit are refused before any read.

## Listings

Dotfiles and ignored names are hidden. Directories sort first, then names
compare case-insensitively.
`
