package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	webembed "github.com/aarnt28/inventory-app/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"cell":  formatCell,
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
	}
}

// formatCell renders a column value for display. Nil pointers show as an
// empty marker.
func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case *string:
		if v == nil {
			return "-"
		}
		return *v
	case int:
		return humanize.Comma(int64(v))
	case int64:
		return humanize.Comma(v)
	case float64:
		return humanize.CommafWithDigits(v, 2)
	case *float64:
		if v == nil {
			return "-"
		}
		return humanize.CommafWithDigits(*v, 2)
	case time.Time:
		if v.IsZero() {
			return "-"
		}
		return humanize.Time(v)
	default:
		return fmt.Sprint(v)
	}
}

var pages = []string{
	"index.html",
	"list.html",
	"detail.html",
	"form.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with a 200 status.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		zap.L().Error("failed to render template", zap.String("template", name), zap.Error(err))
	}
}

// navEntry is a link in the admin sidebar.
type navEntry struct {
	Name  string
	Title string
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title string
	Nav   []navEntry
	Error string
}

// Server holds all dependencies for admin page handlers.
type Server struct {
	Templates *Templates

	views  []View
	byName map[string]View
}

func (s *Server) page(title string) PageData {
	nav := make([]navEntry, 0, len(s.views))
	for _, v := range s.views {
		nav = append(nav, navEntry{Name: v.Name(), Title: v.Title()})
	}
	return PageData{Title: title, Nav: nav}
}
