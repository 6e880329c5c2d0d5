package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/cppla/lostfound/models"
	"github.com/cppla/lostfound/utils"
)

var pages = []string{
	"home.html",
	"add_item.html",
	"add_form.html",
	"search.html",
	"item_detail.html",
	"error.html",
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title string
	Flash *utils.Flash
}

// Templates holds one parsed template per page, each wrapped in the layout.
// It satisfies gin's render.HTMLRender.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"text": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"date": func(t time.Time) string {
			return t.UTC().Format("2006-01-02")
		},
		"kindLabel": func(k models.Kind) string {
			return k.Label()
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl, err := template.New(page).Funcs(FuncMap()).Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		if tmpl, err = tmpl.Parse(string(pageBytes)); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		ts.templates[page] = tmpl
	}
	return ts, nil
}

// Instance implements render.HTMLRender.
func (ts *Templates) Instance(name string, data any) render.Render {
	tmpl, ok := ts.templates[name]
	if !ok {
		return render.String{Format: "template %s not found", Data: []any{name}}
	}
	return render.HTML{Template: tmpl, Name: "layout", Data: data}
}
