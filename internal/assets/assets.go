// Package assets embeds the stylesheet and script served with every page.
package assets

import (
	"embed"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/mdserve/internal/contenttype"
)

// Prefix is the URL prefix reserved for embedded assets.
const Prefix = "/_mdserve/assets/"

const (
	StylesheetURL = Prefix + "style.css"
	ScriptURL     = Prefix + "app.js"
)

//go:embed static/style.css static/app.js
var files embed.FS

// Asset is one embedded file.
type Asset struct {
	Name        string
	ContentType string
	Body        []byte
}

// Lookup returns the asset served at urlPath.
func Lookup(urlPath string) (Asset, bool) {
	name, ok := strings.CutPrefix(urlPath, Prefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return Asset{}, false
	}
	body, err := files.ReadFile("static/" + name)
	if err != nil {
		return Asset{}, false
	}
	return Asset{Name: name, ContentType: contenttype.ForName(name), Body: body}, true
}

var (
	modOnce sync.Once
	modTime time.Time
)

// ModTime is the modification time of the running executable, the closest
// thing embedded files have to one. Zero when it cannot be determined.
func ModTime() time.Time {
	modOnce.Do(func() {
		exe, err := os.Executable()
		if err != nil {
			return
		}
		if info, err := os.Stat(exe); err == nil {
			modTime = info.ModTime()
		}
	})
	return modTime
}
