package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateEmailConfirmation = "confirmacao_email.html"
	TemplatePasswordReset     = "redefinicao_senha.html"
)

// TemplateData feeds both account email templates.
type TemplateData struct {
	ClientName string
	ActionURL  string
	Year       int
}

// Templates renders the embedded account emails.
type Templates struct {
	set *template.Template
}

func LoadTemplates() (*Templates, error) {
	set, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing email templates: %w", err)
	}
	return &Templates{set: set}, nil
}

func (t *Templates) Render(name string, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
