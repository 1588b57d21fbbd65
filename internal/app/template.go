package app

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin/render"
)

// TemplateRenderer renders the board's HTML pages. Every file under
// templates/ outside layouts/ and partials/ is a page, parsed on top of its
// own clone of the shared layouts and partials so that pages can redefine
// the same blocks. Release mode parses once; debug mode re-reads the files
// on every render.
type TemplateRenderer struct {
	fsys  fs.FS
	debug bool
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer reads templates from fsys, which must hold a
// templates/ directory: web.EmbeddedFS in release, the source tree in debug.
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{fsys: fsys, debug: debug}
	if debug {
		return r, nil
	}
	pages, err := loadPages(fsys)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.pages = pages
	return r, nil
}

// Instance renders the page named relative to templates/, e.g. "ads/list.html".
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	pages := r.pages
	if r.debug {
		var err error
		if pages, err = loadPages(r.fsys); err != nil {
			return &pageRender{name: name, err: err}
		}
	}
	return &pageRender{tmpl: pages[name], name: name, data: data}
}

func loadPages(fsys fs.FS) (map[string]*template.Template, error) {
	shared := template.New("").Funcs(pageFuncs())
	for _, dir := range []string{"layouts", "partials"} {
		files, err := fs.Glob(fsys, "templates/"+dir+"/*.html")
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", dir, err)
		}
		for _, f := range files {
			if err := parseFile(shared.New(f), fsys, f); err != nil {
				return nil, err
			}
		}
	}

	names, err := pageNames(fsys)
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		set, err := shared.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layouts for %s: %w", name, err)
		}
		if err := parseFile(set.New(name), fsys, "templates/"+name); err != nil {
			return nil, err
		}
		pages[name] = set
	}
	return pages, nil
}

func parseFile(t *template.Template, fsys fs.FS, file string) error {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	if _, err := t.Parse(string(content)); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

// pageNames lists page files relative to templates/.
func pageNames(fsys fs.FS) ([]string, error) {
	var names []string
	err := fs.WalkDir(fsys, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ".html" {
			return err
		}
		name := strings.TrimPrefix(p, "templates/")
		if dir, _, _ := strings.Cut(name, "/"); dir == "layouts" || dir == "partials" {
			return nil
		}
		names = append(names, name)
		return nil
	})
	return names, err
}

func pageFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		// contains checks the boxes of a filter form against its query values.
		"contains": slices.Contains[[]string, string],
		// truncate shortens s to n runes and marks the cut with an ellipsis.
		"truncate": func(s string, n int) string {
			if n <= 0 {
				return ""
			}
			if utf8.RuneCountInString(s) <= n {
				return s
			}
			return strings.TrimSpace(string([]rune(s)[:n])) + "…"
		},
	}
}

type pageRender struct {
	tmpl *template.Template
	name string
	data any
	err  error
}

func (p *pageRender) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	if p.err != nil {
		return p.err
	}
	if p.tmpl == nil {
		return fmt.Errorf("template %q not found", p.name)
	}
	return p.tmpl.ExecuteTemplate(w, p.name, p.data)
}

func (p *pageRender) WriteContentType(w http.ResponseWriter) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
}
