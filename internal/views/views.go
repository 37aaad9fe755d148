// Package views renders the account HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
)

//go:embed templates
var templateFS embed.FS

// Page names.
const (
	PageLogin          = "login.html"
	PageRegister       = "registrar.html"
	PageForgotPassword = "recuperar_senha.html"
	PageResetPassword  = "resetar_senha.html"
	PageChangePassword = "alterar_senha.html"
	PageProfile        = "perfil.html"
)

// Page is the data handed to every template.
type Page struct {
	Title   string
	Values  map[string]string
	Errors  map[string][]string
	Notice  string
	Action  string
	Data    any
	Year    int
	Session bool
}

// Value returns the submitted value for field.
func (p Page) Value(field string) string {
	if p.Values == nil {
		return ""
	}
	return p.Values[field]
}

// FieldErrors returns the non-empty messages recorded for field.
func (p Page) FieldErrors(field string) []string {
	var out []string
	for _, msg := range p.Errors[field] {
		if msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

// HasError reports whether field carries any error, including blank ones
// used only to highlight the input.
func (p Page) HasError(field string) bool {
	_, ok := p.Errors[field]
	return ok
}

// WithErrors copies the field errors into the page.
func (p Page) WithErrors(fe pkgerrors.FieldErrors) Page {
	p.Errors = fe.Map()
	return p
}

// input is the argument of the shared "field" template.
type input struct {
	Page  Page
	Name  string
	Label string
	Type  string
}

var funcs = template.FuncMap{
	"input": func(p Page, name, label, kind string) input {
		return input{Page: p, Name: name, Label: label, Type: kind}
	},
}

// Renderer holds one parsed template set per page, each sharing the layout.
type Renderer struct {
	pages map[string]*template.Template
	now   func() time.Time
}

func New() (*Renderer, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	entries, err := fs.ReadDir(templateFS, "templates/pages")
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		tpl, err := clone.ParseFS(templateFS, path.Join("templates/pages", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		pages[entry.Name()] = tpl
	}
	return &Renderer{pages: pages, now: time.Now}, nil
}

// Render writes the page with the given status. Nothing is written when the
// template fails, so callers can still report the error.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	tpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	if page.Year == 0 {
		page.Year = r.now().Year()
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
