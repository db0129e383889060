package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/starford/mdserve/internal/assets"
)

const layoutTmpl = `
{{- define "head" -}}
<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{stylesheet}}">
{{- end}}

{{- define "header" -}}
<header class="site-header">
<a class="brand" href="/">mdserve</a>
<span class="file-path">{{.DisplayPath}}</span>
</header>
{{- end}}

{{- define "foot" -}}
<script src="{{script}}"></script>
</body>
</html>
{{end}}

{{- define "entries" -}}
{{- if .Entries}}
<ul class="listing">
{{- range .Entries}}
<li class="{{if .IsDir}}dir{{else}}file{{end}}"><a href="{{.Href}}">{{.Name}}{{if .IsDir}}/{{end}}</a></li>
{{- end}}
</ul>
{{- else}}
<p class="empty">This directory is empty.</p>
{{- end}}
{{- end}}

{{- define "breadcrumbs" -}}
<nav class="breadcrumbs">
{{- range $i, $c := .Crumbs}}{{if $i}} / {{end}}<a href="{{$c.Href}}">{{$c.Name}}</a>{{end -}}
</nav>
{{- end}}
`

const documentTmpl = `
{{- define "document" -}}
{{template "head" .}}
<meta name="mdserve-path" content="{{.URLPath}}">
<meta name="mdserve-rel" content="{{.Rel}}">
<meta name="mdserve-mtime" content="{{.MTime}}">
</head>
<body>
{{template "header" .}}
<div id="change-notice" class="change-notice" hidden>This document changed on disk. <a href="{{.URLPath}}">Reload</a></div>
<div class="layout">
<nav class="toc-sidebar">
{{- if .Headings}}
<ul>
{{- range .Headings}}
<li class="toc-h{{.Level}}"><a href="#{{.AnchorID}}">{{.Text}}</a></li>
{{- end}}
</ul>
{{- end}}
</nav>
<main class="content">
{{.Content}}
{{- if .Backlinks}}
<section class="backlinks">
<h2>Backlinks ({{len .Backlinks}})</h2>
<ul>
{{- range .Backlinks}}
<li><a href="{{backlinkHref .}}">{{.SourceTitle}}</a>{{if .Snippet}}<p class="snippet">{{.Snippet}}</p>{{end}}</li>
{{- end}}
</ul>
</section>
{{- end}}
</main>
</div>
{{template "foot"}}
{{- end}}
`

const listingTmpl = `
{{- define "listing" -}}
{{template "head" .}}
</head>
<body>
{{template "header" .}}
<div class="layout">
<nav class="toc-sidebar"></nav>
<main class="content">
{{template "breadcrumbs" .}}
<h1>Index of {{.DisplayPath}}</h1>
{{template "entries" .}}
</main>
</div>
{{template "foot"}}
{{- end}}
`

const notFoundTmpl = `
{{- define "not-found" -}}
{{template "head" .}}
</head>
<body>
{{template "header" .}}
<div class="layout">
<nav class="toc-sidebar"></nav>
<main class="content not-found">
<h1>Not Found</h1>
<p>Nothing is served at <code>{{.Requested}}</code>.</p>
<p class="recovery">
<a href="/">Root listing</a>
{{- if .EntryURL}}
<a href="{{.EntryURL}}">Entry document</a>
{{- end}}
<a href="{{.Nearest.Href}}">{{.Nearest.DisplayPath}}</a>
</p>
<h2>Contents of {{.Nearest.DisplayPath}}</h2>
{{template "breadcrumbs" .Nearest}}
{{template "entries" .Nearest}}
</main>
</div>
{{template "foot"}}
{{- end}}
`

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"stylesheet":   func() string { return assets.StylesheetURL },
	"script":       func() string { return assets.ScriptURL },
	"backlinkHref": backlinkHref,
}).Parse(layoutTmpl + documentTmpl + listingTmpl + notFoundTmpl))

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render: %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
