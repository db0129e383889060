// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the served document tree to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/djherbis/times"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdserve/internal/index"
	"github.com/starford/mdserve/internal/present"
	"github.com/starford/mdserve/internal/resolve"
	"github.com/starford/mdserve/internal/site"
)

const (
	guideURI     = "mdserve://guide"
	entryURI     = "mdserve://entry"
	defaultLimit = 20
	maxLimit     = 100
)

var errIndexDisabled = errors.New("document index is disabled")

// Server wraps the MCP server with the document tools.
type Server struct {
	mcp  *server.MCPServer
	site *site.Site
	db   index.DocumentIndex
}

// New creates a new MCP server with all document tools registered. db may
// be nil, in which case the search and backlinks tools report an error.
func New(s *site.Site, db index.DocumentIndex) *Server {
	srv := &Server{site: s, db: db}

	srv.mcp = server.NewMCPServer(
		"mdserve",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	srv.mcp.AddTool(mcp.NewTool("resolve_path",
		mcp.WithDescription("Resolve a URL path the way the HTTP server would and report the outcome."),
		mcp.WithString("path", mcp.Required(), mcp.Description("URL path, e.g. /docs/guide or /docs/guide.md")),
	), srv.resolvePath)

	srv.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the Markdown source (or text file) served at a URL path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("URL path of the document")),
	), srv.readDocument)

	srv.mcp.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List the visible entries of a directory, directories first."),
		mcp.WithString("path", mcp.Description("URL path of the directory (empty for the root)")),
	), srv.listDirectory)

	srv.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the document at a URL path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("URL path of the document")),
	), srv.getBacklinks)

	srv.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles, tags and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20, max 100)")),
	), srv.searchDocuments)

	srv.mcp.AddTool(mcp.NewTool("file_info",
		mcp.WithDescription("Report size, timestamps and content type of the file at a URL path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("URL path of the file")),
	), srv.fileInfo)

	srv.mcp.AddResource(
		mcp.NewResource(guideURI, "Serving Guide",
			mcp.WithResourceDescription("How URL paths map to documents, listings and files."),
			mcp.WithMIMEType("text/markdown"),
		),
		srv.readGuideResource,
	)

	if s.Config().EntryURL != "" {
		srv.mcp.AddResource(
			mcp.NewResource(entryURI, "Entry Document",
				mcp.WithResourceDescription("Markdown source of the entry document."),
				mcp.WithMIMEType("text/markdown"),
			),
			srv.readEntryResource,
		)
	}

	return srv
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type resolution struct {
	Kind        string `json:"kind"`
	Branch      string `json:"branch"`
	Requested   string `json:"requested,omitempty"`
	Path        string `json:"path,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Modified    string `json:"modified,omitempty"`
}

func (s *Server) resolvePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := s.site.Resolve(ctx, raw)
	res := resolution{Kind: out.Kind.String(), Branch: out.Branch.String()}
	if out.Kind != resolve.KindDenied {
		res.Requested = out.Requested
		res.Path = out.Rel
		res.Size = out.Size
		res.ContentType = out.ContentType
		if !out.ModTime.IsZero() {
			res.Modified = out.ModTime.UTC().Format(time.RFC3339)
		}
	}
	return jsonResult(res)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.source(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// source fetches the raw bytes served at raw through the same pipeline as
// the HTTP transport, so denials and size limits apply unchanged.
func (s *Server) source(ctx context.Context, raw string) (string, error) {
	out := s.site.Resolve(ctx, raw)
	switch out.Kind {
	case resolve.KindMarkdown, resolve.KindStatic:
	case resolve.KindTooLarge:
		return "", fmt.Errorf("too large: %s (%d bytes)", out.Requested, out.Size)
	case resolve.KindListing:
		return "", fmt.Errorf("is a directory: %s", out.Requested)
	case resolve.KindDenied:
		return "", errors.New(present.DenialBody)
	default:
		return "", fmt.Errorf("not found: %s", raw)
	}
	resp := s.site.Serve(ctx, site.Request{Path: raw, Raw: true})
	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("read failed: %s", out.Requested)
	}
	if !utf8.Valid(resp.Body) {
		return "", fmt.Errorf("binary file: %s", out.Requested)
	}
	return string(resp.Body), nil
}

func (s *Server) listDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("path", "/")
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	out := s.site.Resolve(ctx, raw)
	if out.Kind != resolve.KindListing && out.Branch != resolve.BranchDirectoryIndex {
		return mcp.NewToolResultError(fmt.Sprintf("not a directory: %s", raw)), nil
	}
	dir := out.Path
	if out.Branch == resolve.BranchDirectoryIndex {
		// The directory holds an index document; list the directory itself.
		tree := s.site.Tree()
		canonical, err := tree.Canonical(ctx, tree.Join(strings.Split(path.Dir(out.Rel), "/")...))
		if err != nil || !tree.Contains(canonical) {
			return mcp.NewToolResultError(fmt.Sprintf("not a directory: %s", raw)), nil
		}
		dir = canonical
	}
	entries, err := s.site.Presenter().Entries(ctx, dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("empty directory"), nil
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		lines = append(lines, name)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError(errIndexDisabled.Error()), nil
	}
	out := s.site.Resolve(ctx, raw)
	if out.Kind != resolve.KindMarkdown {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", raw)), nil
	}
	rel, ok := s.site.Tree().Rel(out.Path)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", raw)), nil
	}
	bl, err := s.db.Backlinks(rel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, 0, len(bl))
	for _, b := range bl {
		line := b.Source
		if b.Fragment != "" {
			line += " (#" + b.Fragment + ")"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError(errIndexDisabled.Error()), nil
	}
	limit := req.GetInt("limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	results, err := s.db.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

type fileDetails struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
	DetectedMIME string `json:"detected_mime"`
	Modified     string `json:"modified"`
	Accessed     string `json:"accessed"`
	Changed      string `json:"changed,omitempty"`
	Created      string `json:"created,omitempty"`
}

func (s *Server) fileInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := s.site.Resolve(ctx, raw)
	switch out.Kind {
	case resolve.KindMarkdown, resolve.KindStatic, resolve.KindTooLarge:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", raw)), nil
	}

	var (
		ts   times.Timespec
		mime *mimetype.MIME
	)
	err = s.site.Tree().Do(ctx, func() error {
		var err error
		if ts, err = times.Stat(out.Path); err != nil {
			return err
		}
		mime, err = mimetype.DetectFile(out.Path)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stat failed: %s", out.Requested)), nil
	}

	info := fileDetails{
		Path:         out.Rel,
		Size:         out.Size,
		ContentType:  out.ContentType,
		DetectedMIME: mime.String(),
		Modified:     ts.ModTime().UTC().Format(time.RFC3339),
		Accessed:     ts.AccessTime().UTC().Format(time.RFC3339),
	}
	if ts.HasChangeTime() {
		info.Changed = ts.ChangeTime().UTC().Format(time.RFC3339)
	}
	if ts.HasBirthTime() {
		info.Created = ts.BirthTime().UTC().Format(time.RFC3339)
	}
	return jsonResult(info)
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     ServingGuide,
		},
	}, nil
}

func (s *Server) readEntryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text, err := s.source(ctx, s.site.Config().EntryURL)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      entryURI,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
