package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	errs "git.home.luguber.info/inful/autoapi/internal/errors"
)

// Config represents the application configuration.
type Config struct {
	Version     string          `yaml:"version"`
	Source      SourceConfig    `yaml:"source"`
	Output      OutputConfig    `yaml:"output"`
	Templates   TemplatesConfig `yaml:"templates,omitempty"`
	Concurrency int             `yaml:"concurrency,omitempty"`
	Logging     LoggingConfig   `yaml:"logging,omitempty"`
	Metrics     MetricsConfig   `yaml:"metrics,omitempty"`
	History     HistoryConfig   `yaml:"history,omitempty"`
	Watch       WatchConfig     `yaml:"watch,omitempty"`

	// Defaults apply to every root before the root's own options.
	Defaults RootOptions `yaml:"-"`
	// Roots keeps the order of the configuration file.
	Roots []Root `yaml:"-"`
}

// SourceKind selects the symbol introspector.
type SourceKind string

const (
	SourceGo       SourceKind = "go"
	SourceManifest SourceKind = "manifest"
)

// SourceConfig tells the introspector where symbols come from.
type SourceConfig struct {
	Kind SourceKind `yaml:"kind"`
	// Path is the source tree root for "go" or the manifest file for "manifest".
	Path string `yaml:"path"`
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Extension string `yaml:"extension,omitempty"`
	// Report, when set, receives the JSON run report.
	Report string `yaml:"report,omitempty"`
}

// TemplatesConfig points at user templates that override the embedded ones.
type TemplatesConfig struct {
	Directory string `yaml:"directory,omitempty"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	// Textfile, when set, receives the Prometheus metrics of the run.
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig represents the run history database.
type HistoryConfig struct {
	Database string `yaml:"database,omitempty"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
	// Interval, when positive, also regenerates on a fixed schedule.
	Interval time.Duration `yaml:"interval,omitempty"`
}

// Root is one requested root module with its raw options.
type Root struct {
	Name    string
	Options RootOptions
}

// file is the on-disk shape; defaults and roots are decoded by hand so that
// unknown option keys are reported with the root they belong to.
type file struct {
	Config   `yaml:",inline"`
	Defaults yaml.Node `yaml:"defaults"`
	Roots    yaml.Node `yaml:"roots"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errs.ConfigNotFound(configPath)
	}

	// #nosec G304 -- the configuration path is chosen by the operator.
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates a configuration document.
// Environment variables in the document are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var f file
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg := f.Config
	var problems []error

	defaults, err := decodeOptions("defaults", &f.Defaults)
	if err != nil {
		problems = append(problems, err)
	}
	cfg.Defaults = defaults

	roots, err := decodeRoots(&f.Roots)
	if err != nil {
		problems = append(problems, err)
	}
	cfg.Roots = roots

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	applyDefaults(&cfg)
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	// #nosec G306 -- configuration is not secret and is meant to be committed.
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

const exampleConfig = `version: "1"

source:
  kind: go        # go | manifest
  path: .

output:
  directory: ./docs/api
  extension: md

# templates:
#   directory: ./_templates

logging:
  level: info
  format: text

defaults:
  orphan: false

roots:
  mypkg:
    prune: true
    template: module
    module-members: [undoc-members]
    exclude-members: [Deprecated]
`
