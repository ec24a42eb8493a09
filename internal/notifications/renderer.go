package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templateNames = []string{
	"review_requested",
	"review_started",
	"review_approved",
	"review_rejected",
	"review_needs_revision",
	"reopened",
}

// Renderer renders notification titles and messages from templates.
// Each template file defines a "title" and a "message" block.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":       titleCase,
		"kindLabel":   kindLabel,
		"statusLabel": statusLabel,
		"formatTime":  formatTime,
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(templateNames))}

	for _, name := range templateNames {
		filename := fmt.Sprintf("templates/%s.tmpl", name)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}

		for _, block := range []string{"title", "message"} {
			if tmpl.Lookup(block) == nil {
				return nil, fmt.Errorf("template %s: missing %q block", name, block)
			}
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// Render returns the title and message of a transition notification.
func (r *Renderer) Render(p TransitionPayload) (title, message string, err error) {
	name := templateName(p)
	tmpl, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", name)
	}

	title, err = execute(tmpl, "title", p)
	if err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", name, err)
	}
	message, err = execute(tmpl, "message", p)
	if err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return title, message, nil
}

func execute(tmpl *template.Template, block string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, block, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Template functions

// A Caser is stateful, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func kindLabel(kind domain.ResourceKind) string {
	return titleCase(strings.ReplaceAll(string(kind), "_", " "))
}

func statusLabel(status domain.WorkflowStatus) string {
	return titleCase(strings.ReplaceAll(string(status), "_", " "))
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}
