// Package manifest is an Introspector backed by a YAML symbol manifest. It is
// how symbols of codebases that are not Go source reach the tree builder: an
// external extractor writes the manifest, autoapi reads it.
//
//	modules:
//	  mypkg:
//	    doc: Top level package.
//	    all: [Client]
//	    members:
//	      - {name: sub, kind: module}
//	      - {name: Client, kind: class, doc: "...", members: [connect]}
//	  mypkg.sub:
//	    api: [f]
//	    members:
//	      - {name: f, kind: function, signature: "f(x)"}
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/discovery"
	"git.home.luguber.info/inful/autoapi/internal/exports"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// Manifest is the decoded document.
type Manifest struct {
	Modules map[string]*Module `yaml:"modules"`
}

// Module describes one module. API and All are the two export listings; a nil
// slice means the listing is not declared.
type Module struct {
	Package *bool     `yaml:"package,omitempty"`
	Doc     string    `yaml:"doc,omitempty"`
	API     *[]string `yaml:"api,omitempty"`
	All     *[]string `yaml:"all,omitempty"`
	Members []Member  `yaml:"members,omitempty"`
	// Error simulates a module that cannot be imported.
	Error string `yaml:"error,omitempty"`
}

// Member is one immediate child of a module.
type Member struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Doc       string   `yaml:"doc,omitempty"`
	Signature string   `yaml:"signature,omitempty"`
	Target    string   `yaml:"target,omitempty"`
	Members   []string `yaml:"members,omitempty"`
}

// ErrModuleNotFound is returned for modules absent from the manifest.
var ErrModuleNotFound = errors.New("module not found in manifest")

// Introspector serves a decoded manifest.
type Introspector struct {
	manifest *Manifest
	logger   *slog.Logger
}

var _ discovery.Introspector = (*Introspector)(nil)

// Load reads and decodes a manifest file.
func Load(path string, logger *slog.Logger) (*Introspector, error) {
	// #nosec G304 -- the manifest path comes from the configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data, logger)
}

// Parse decodes a manifest document. Unknown fields are rejected.
func Parse(data []byte, logger *slog.Logger) (*Introspector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Modules == nil {
		m.Modules = map[string]*Module{}
	}
	for name, mod := range m.Modules {
		if mod == nil {
			m.Modules[name] = &Module{}
		}
	}
	return &Introspector{manifest: &m, logger: logger}, nil
}

func (in *Introspector) module(name string) (*Module, error) {
	mod, ok := in.manifest.Modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	if mod.Error != "" {
		return nil, errors.New(mod.Error)
	}
	return mod, nil
}

// IsPackage reports the explicit package flag, or whether any member is a
// module or package.
func (in *Introspector) IsPackage(_ context.Context, module string) (bool, error) {
	mod, err := in.module(module)
	if err != nil {
		return false, err
	}
	if mod.Package != nil {
		return *mod.Package, nil
	}
	for _, m := range mod.Members {
		if k, err := apinode.ParseKind(m.Kind); err == nil && k.IsPage() {
			return true, nil
		}
	}
	return false, nil
}

// ModuleDoc returns the module's own documentation.
func (in *Introspector) ModuleDoc(_ context.Context, module string) string {
	mod, err := in.module(module)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(mod.Doc)
}

// ListChildren returns the module's members in manifest order.
func (in *Introspector) ListChildren(ctx context.Context, module string) ([]discovery.Symbol, error) {
	mod, err := in.module(module)
	if err != nil {
		return nil, err
	}

	var l exports.Listings
	if mod.API != nil {
		l.API, l.HasAPI = *mod.API, true
	}
	if mod.All != nil {
		l.All, l.HasAll = *mod.All, true
	}
	listed, _ := exports.Select(l)
	public := sets.New(listed...)

	present := sets.New[string]()
	symbols := make([]discovery.Symbol, 0, len(mod.Members))
	for _, m := range mod.Members {
		kind, err := apinode.ParseKind(m.Kind)
		if err != nil {
			return nil, fmt.Errorf("member %s.%s: %w", module, m.Name, err)
		}
		if m.Name == "" || strings.Contains(m.Name, ".") {
			return nil, fmt.Errorf("member of %s has invalid name %q", module, m.Name)
		}
		present.Add(m.Name)
		symbols = append(symbols, discovery.Symbol{
			Name:       m.Name,
			Kind:       kind,
			Exported:   public.Has(m.Name),
			Documented: strings.TrimSpace(m.Doc) != "",
			Visibility: exports.VisibilityOf(m.Name),
			Doc:        strings.TrimSpace(m.Doc),
			Signature:  m.Signature,
			Target:     m.Target,
			Members:    m.Members,
		})
	}

	for _, name := range listed {
		if !present.Has(name) {
			in.logger.WarnContext(ctx, "Listed name is not defined in module",
				logfields.QualifiedPath(module), slog.String("name", name))
		}
	}
	return symbols, nil
}
