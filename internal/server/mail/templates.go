package mail

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/flosch/pongo2/v6"
)

// Template names, without the .html suffix.
const (
	TemplateForgotUsername = "forgot_username"
	TemplateForgotPassword = "forgot_password"
	TemplateResetPassword  = "reset_password"
)

var templateNames = []string{TemplateForgotUsername, TemplateForgotPassword, TemplateResetPassword}

//go:embed templates/*.html
var embedded embed.FS

// Source returns the raw text of a template file such as "forgot_password.html".
type Source interface {
	Load(ctx context.Context, name string) (string, error)
}

// FSSource reads templates from a file system.
type FSSource struct {
	fsys fs.FS
}

// EmbeddedSource serves the templates compiled into the binary.
func EmbeddedSource() *FSSource {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return &FSSource{fsys: sub}
}

func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

func (s *FSSource) Load(_ context.Context, name string) (string, error) {
	b, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Templates holds the compiled email templates. Compiled once at start-up
// and read-only afterwards.
type Templates struct {
	byName map[string]*pongo2.Template
}

// LoadTemplates fetches and compiles every template from src.
func LoadTemplates(ctx context.Context, src Source) (*Templates, error) {
	t := &Templates{byName: make(map[string]*pongo2.Template, len(templateNames))}
	for _, name := range templateNames {
		text, err := src.Load(ctx, name+".html")
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", name, err)
		}
		tpl, err := pongo2.FromString(text)
		if err != nil {
			return nil, fmt.Errorf("compile template %s: %w", name, err)
		}
		t.byName[name] = tpl
	}
	return t, nil
}

// Render executes the named template with data.
func (t *Templates) Render(name string, data map[string]any) (string, error) {
	tpl, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	return tpl.Execute(pongo2.Context(data))
}
