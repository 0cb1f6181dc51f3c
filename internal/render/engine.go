// Package render builds the context of a page and hands it to a template
// engine. The default engine is text/template with built-in Markdown and
// reStructuredText templates that a directory of user templates can override.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/autoapi/internal/config"
)

//go:embed templates/*/*.tmpl
var builtin embed.FS

const templateSuffix = ".tmpl"

// ErrTemplateNotFound is returned by Lookup for unknown template names.
var ErrTemplateNotFound = errors.New("template not found")

// Engine renders named templates. It is the only thing the Renderer knows
// about the template language.
type Engine interface {
	// Lookup fails when name cannot be rendered at all.
	Lookup(name string) error
	Render(name string, data any) (string, error)
}

// TemplateEngine is the text/template Engine.
type TemplateEngine struct {
	templates map[string]*template.Template
	// broken holds user templates that failed to parse; only roots that use
	// them are affected.
	broken map[string]error
}

var _ Engine = (*TemplateEngine)(nil)

// NewTemplateEngine loads the built-in templates for the output extension
// and then every *.tmpl file of overrideDir, which replace built-ins of the
// same name. An empty overrideDir uses only the built-ins; extensions without
// built-ins rely on overrideDir alone.
func NewTemplateEngine(overrideDir, ext string) (*TemplateEngine, error) {
	e := &TemplateEngine{templates: map[string]*template.Template{}, broken: map[string]error{}}

	if format := config.BuiltinFormat(ext); format != "" {
		if err := e.load(builtin, "templates/"+format, true); err != nil {
			return nil, err
		}
	}
	if overrideDir == "" {
		return e, nil
	}
	info, err := os.Stat(overrideDir)
	if err != nil {
		return nil, fmt.Errorf("template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template directory %s is not a directory", overrideDir)
	}
	if err := e.load(os.DirFS(overrideDir), ".", false); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *TemplateEngine) load(fsys fs.FS, dir string, strict bool) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), templateSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), templateSuffix)
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, entry.Name())))
		if err != nil {
			return fmt.Errorf("read template %s: %w", name, err)
		}
		tpl, err := template.New(name).Funcs(funcs()).Option("missingkey=error").Parse(string(data))
		if err != nil {
			if strict {
				return fmt.Errorf("parse built-in template %s: %w", name, err)
			}
			e.broken[name] = fmt.Errorf("parse template %s: %w", name, err)
			delete(e.templates, name)
			continue
		}
		delete(e.broken, name)
		e.templates[name] = tpl
	}
	return nil
}

// Lookup implements Engine.
func (e *TemplateEngine) Lookup(name string) error {
	if err, ok := e.broken[name]; ok {
		return err
	}
	if _, ok := e.templates[name]; !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return nil
}

// Render implements Engine.
func (e *TemplateEngine) Render(name string, data any) (string, error) {
	if err := e.Lookup(name); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := e.templates[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Names lists the loaded templates.
func (e *TemplateEngine) Names() []string {
	out := make([]string, 0, len(e.templates))
	for n := range e.templates {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func funcs() template.FuncMap {
	return template.FuncMap{
		// A Caser keeps state, so each call gets its own.
		"title": func(s string) string {
			return cases.Title(language.English, cases.NoLower).String(s)
		},
		"lower":   strings.ToLower,
		"upper":   strings.ToUpper,
		"join":    strings.Join,
		"trim":    strings.TrimSpace,
		"quote":   strconv.Quote,
		"summary": Summary,
		"indent": func(n int, s string) string {
			pad := strings.Repeat(" ", n)
			return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
		},
		"stem": func(s string) string {
			return strings.TrimSuffix(s, filepath.Ext(s))
		},
		"underline": func(ch, s string) string {
			return strings.Repeat(ch, len([]rune(s)))
		},
	}
}

// Summary returns the first paragraph of a doc string on one line.
func Summary(doc string) string {
	para, _, _ := strings.Cut(strings.TrimSpace(doc), "\n\n")
	return strings.Join(strings.Fields(para), " ")
}
