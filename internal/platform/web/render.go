// Package web renders the HTML pages and serves their static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page templates.
const (
	FormPage    = "form.html"
	ResultsPage = "results.html"
	ErrorPage   = "error.html"
)

var pages = []string{FormPage, ResultsPage, ErrorPage}

// Static returns the embedded static assets, rooted so that "app.css" is at
// the top level.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer executes page templates inside the shared layout. It implements
// echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page against the layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the named page. The page is executed into a buffer first so
// a template error never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"levelClass": levelClass,
	"telURL":     telURL,
}

// levelClass maps a risk level to its CSS modifier.
func levelClass(level scoring.RiskLevel) string {
	if !level.Known() {
		return "unknown"
	}
	return strings.ToLower(string(level))
}

// telURL marks a tel: link as safe. Anything else is dropped.
func telURL(href string) template.URL {
	if !strings.HasPrefix(href, "tel:") || strings.ContainsAny(href[4:], " \"'<>:/") {
		return ""
	}
	return template.URL(href)
}
