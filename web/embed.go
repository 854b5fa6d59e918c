// Package web holds the dashboard templates and static assets compiled into
// the server binary.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Templates parses every page and partial. Templates are addressed by file
// name, so partials can be included with {{template "name.html" .}}.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
}

// Static returns the asset tree rooted at static/, ready for http.FileServerFS.
func Static() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
