package config

import "time"

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

// SourceDefaultApplier handles source configuration defaults.
type SourceDefaultApplier struct{}

func (SourceDefaultApplier) Domain() string { return "source" }

func (SourceDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceGo
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = "."
	}
}

// OutputDefaultApplier handles output and template defaults.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./docs/api"
	}
	if cfg.Output.Extension == "" {
		cfg.Output.Extension = "md"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
}

// LoggingDefaultApplier normalizes logging settings.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

// WatchDefaultApplier handles watch mode defaults.
type WatchDefaultApplier struct{}

func (WatchDefaultApplier) Domain() string { return "watch" }

func (WatchDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.Interval < 0 {
		cfg.Watch.Interval = 0
	}
}

var defaultAppliers = []DefaultApplier{
	SourceDefaultApplier{},
	OutputDefaultApplier{},
	LoggingDefaultApplier{},
	WatchDefaultApplier{},
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}
