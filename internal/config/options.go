package config

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// Option keys recognized in the defaults block and in every root.
const (
	OptPrune          = "prune"
	OptOverride       = "override"
	OptTemplate       = "template"
	OptOutput         = "output"
	OptOrphan         = "orphan"
	OptModuleMembers  = "module-members"
	OptClassMembers   = "class-members"
	OptExcludeMembers = "exclude-members"
)

var optionKeys = sets.New(
	OptPrune, OptOverride, OptTemplate, OptOutput, OptOrphan,
	OptModuleMembers, OptClassMembers, OptExcludeMembers,
)

// OptionKeys returns the recognized option keys in sorted order.
func OptionKeys() []string { return sets.Sorted(optionKeys) }

// RootOptions is the raw options record of a root (or of the defaults block).
// Nil fields were not set and fall through to the previous layer.
type RootOptions struct {
	Prune          *bool     `yaml:"prune,omitempty"`
	Override       *bool     `yaml:"override,omitempty"`
	Template       *string   `yaml:"template,omitempty"`
	Output         *string   `yaml:"output,omitempty"`
	Orphan         *bool     `yaml:"orphan,omitempty"`
	ModuleMembers  *[]string `yaml:"module-members,omitempty"`
	ClassMembers   *[]string `yaml:"class-members,omitempty"`
	ExcludeMembers *[]string `yaml:"exclude-members,omitempty"`
}

// decodeOptions decodes one options mapping. Every unknown key is reported,
// named together with its scope (a root name or "defaults").
func decodeOptions(scope string, n *yaml.Node) (RootOptions, error) {
	var opts RootOptions
	if n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return opts, nil
	}
	if n.Kind != yaml.MappingNode {
		return opts, errs.InvalidOption(scope, "", fmt.Sprintf("options must be a mapping (line %d)", n.Line))
	}

	var problems []error
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if !optionKeys.Has(key) {
			problems = append(problems, errs.UnknownOption(scope, key))
		}
	}
	if len(problems) > 0 {
		return opts, errors.Join(problems...)
	}

	if err := n.Decode(&opts); err != nil {
		return opts, errs.InvalidOption(scope, "", err.Error())
	}
	return opts, nil
}

// decodeRoots decodes the roots mapping keeping the file order.
func decodeRoots(n *yaml.Node) ([]Root, error) {
	if n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errs.New(errs.CategoryConfig, errs.SeverityFatal, "roots must be a mapping of module name to options").
			WithContext("line", n.Line)
	}

	var (
		roots    []Root
		problems []error
		seen     = sets.New[string]()
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		if seen.Has(name) {
			problems = append(problems, errs.New(errs.CategoryConfig, errs.SeverityFatal, "root listed twice").
				WithContext("root", name))
			continue
		}
		seen.Add(name)

		opts, err := decodeOptions(name, n.Content[i+1])
		if err != nil {
			problems = append(problems, err)
			continue
		}
		roots = append(roots, Root{Name: name, Options: opts})
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return roots, nil
}

// RootNames returns the configured roots in file order.
func (c *Config) RootNames() []string {
	names := make([]string, 0, len(c.Roots))
	for _, r := range c.Roots {
		names = append(names, r.Name)
	}
	return names
}

// Root returns the raw options of a configured root.
func (c *Config) Root(name string) (Root, bool) {
	i := slices.IndexFunc(c.Roots, func(r Root) bool { return r.Name == name })
	if i < 0 {
		return Root{}, false
	}
	return c.Roots[i], true
}

// Bool and String are small helpers for building RootOptions in code.
func Bool(v bool) *bool       { return &v }
func String(v string) *string { return &v }
func Strings(v ...string) *[]string {
	return &v
}
