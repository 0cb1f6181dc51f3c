package config

import (
	"errors"
	"fmt"
	"strings"

	errs "git.home.luguber.info/inful/autoapi/internal/errors"
)

// ValidateConfig validates a configuration after defaults were applied.
// Every problem is reported, not just the first one.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	return errors.Join(
		cv.validateVersion(),
		cv.validateSource(),
		cv.validateOutput(),
		cv.validateRoots(),
	)
}

func (cv *configurationValidator) validateVersion() error {
	if cv.config.Version != "1" {
		return errs.New(errs.CategoryConfig, errs.SeverityFatal, "unsupported configuration version").
			WithContext("version", cv.config.Version)
	}
	return nil
}

func (cv *configurationValidator) validateSource() error {
	switch cv.config.Source.Kind {
	case SourceGo, SourceManifest:
		return nil
	default:
		return errs.New(errs.CategoryConfig, errs.SeverityFatal, "unsupported source kind").
			WithContext("kind", string(cv.config.Source.Kind))
	}
}

func (cv *configurationValidator) validateOutput() error {
	ext := cv.config.Output.Extension
	if strings.ContainsAny(ext, `/\.`) {
		return errs.New(errs.CategoryConfig, errs.SeverityFatal, fmt.Sprintf("output extension %q must be a bare suffix", ext))
	}
	if BuiltinFormat(ext) == "" && cv.config.Templates.Directory == "" {
		return errs.New(errs.CategoryConfig, errs.SeverityFatal,
			fmt.Sprintf("no built-in templates for output extension %q", ext)).
			WithContext("hint", "set templates.directory")
	}
	return nil
}

// Built-in template formats.
const (
	FormatMarkdown = "markdown"
	FormatRST      = "rst"
)

// BuiltinFormat returns the built-in template format for an output
// extension, or "" when only user templates can render it.
func BuiltinFormat(ext string) string {
	switch strings.ToLower(ext) {
	case "md", "markdown", "mdx":
		return FormatMarkdown
	case "rst":
		return FormatRST
	default:
		return ""
	}
}

func (cv *configurationValidator) validateRoots() error {
	if len(cv.config.Roots) == 0 {
		return errs.ConfigRequired("roots")
	}
	var problems []error
	for _, r := range cv.config.Roots {
		if strings.TrimSpace(r.Name) == "" {
			problems = append(problems, errs.New(errs.CategoryConfig, errs.SeverityFatal, "root name is empty"))
		}
	}
	if _, err := cv.config.ResolveRoots(); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}
