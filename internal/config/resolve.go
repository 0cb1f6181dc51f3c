package config

import (
	"errors"
	"path/filepath"
	"strings"

	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/exports"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// DefaultTemplate is the template used when no layer names one.
const DefaultTemplate = "module"

// Options is the effective configuration of a root. Every node under the root
// shares the same values.
type Options struct {
	Prune          bool
	Override       bool
	Template       string
	Output         string
	Orphan         bool
	ModuleMembers  sets.Set[exports.Category]
	ClassMembers   sets.Set[string]
	ExcludeMembers sets.Set[string]
}

// Clone returns a deep copy.
func (o Options) Clone() Options {
	o.ModuleMembers = o.ModuleMembers.Clone()
	o.ClassMembers = o.ClassMembers.Clone()
	o.ExcludeMembers = o.ExcludeMembers.Clone()
	return o
}

// BuiltinOptions returns the built-in defaults for a root.
func BuiltinOptions(root string) Options {
	return Options{
		Prune:          false,
		Override:       true,
		Template:       DefaultTemplate,
		Output:         root,
		Orphan:         false,
		ModuleMembers:  sets.New[exports.Category](),
		ClassMembers:   sets.New[string](),
		ExcludeMembers: sets.New[string](),
	}
}

// Resolve merges the built-in defaults with the given layers, later layers
// winning, and validates the result. Set-valued options replace rather than
// extend the previous layer.
func Resolve(root string, layers ...RootOptions) (Options, error) {
	opts := BuiltinOptions(root)
	for _, l := range layers {
		if l.Prune != nil {
			opts.Prune = *l.Prune
		}
		if l.Override != nil {
			opts.Override = *l.Override
		}
		if l.Template != nil {
			opts.Template = *l.Template
		}
		if l.Output != nil {
			opts.Output = *l.Output
		}
		if l.Orphan != nil {
			opts.Orphan = *l.Orphan
		}
		if l.ClassMembers != nil {
			opts.ClassMembers = sets.New(*l.ClassMembers...)
		}
		if l.ExcludeMembers != nil {
			opts.ExcludeMembers = sets.New(*l.ExcludeMembers...)
		}
		if l.ModuleMembers != nil {
			opts.ModuleMembers = sets.New[exports.Category]()
			for _, raw := range *l.ModuleMembers {
				c, err := exports.ParseCategory(raw)
				if err != nil {
					return Options{}, errs.InvalidOption(root, OptModuleMembers, err.Error())
				}
				opts.ModuleMembers.Add(c)
			}
		}
	}

	var problems []error
	if strings.TrimSpace(opts.Template) == "" {
		problems = append(problems, errs.InvalidOption(root, OptTemplate, "template name is empty"))
	} else if strings.Contains(opts.Template, "..") || filepath.IsAbs(opts.Template) {
		problems = append(problems, errs.InvalidOption(root, OptTemplate, "template name must not leave the template directory"))
	}
	if err := validateOutput(root, opts.Output); err != nil {
		problems = append(problems, err)
	} else {
		opts.Output = filepath.Clean(opts.Output)
	}
	if len(problems) > 0 {
		return Options{}, errors.Join(problems...)
	}
	return opts, nil
}

func validateOutput(root, output string) error {
	if strings.TrimSpace(output) == "" {
		return errs.InvalidOutputPath(root, output)
	}
	clean := filepath.Clean(output)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errs.InvalidOutputPath(root, output)
	}
	return nil
}

// ResolvedRoot pairs a root name with its effective options.
type ResolvedRoot struct {
	Name    string
	Options Options
}

// ResolveRoots resolves every configured root in file order. All problems are
// reported together so a single run surfaces every offending root and key.
func (c *Config) ResolveRoots() ([]ResolvedRoot, error) {
	out := make([]ResolvedRoot, 0, len(c.Roots))
	var problems []error
	for _, r := range c.Roots {
		opts, err := Resolve(r.Name, c.Defaults, r.Options)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		out = append(out, ResolvedRoot{Name: r.Name, Options: opts})
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return out, nil
}
