// Package commands holds the kong command tree of the autoapi binary.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/autoapi/internal/config"
	"git.home.luguber.info/inful/autoapi/internal/discovery"
	"git.home.luguber.info/inful/autoapi/internal/introspect/gosrc"
	"git.home.luguber.info/inful/autoapi/internal/introspect/manifest"
)

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

// Global is state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"autoapi.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Override the configured log format (text or json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Generate GenerateCmd `cmd:"" default:"withargs" help:"Generate documentation pages for every configured root"`
	Tree     TreeCmd     `cmd:"" help:"Print the discovered documentation tree"`
	Watch    WatchCmd    `cmd:"" help:"Regenerate when sources, templates or the configuration change"`
	Check    CheckCmd    `cmd:"" help:"Report generated pages that were edited by hand"`
	History  HistoryCmd  `cmd:"" help:"List recorded generation runs"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once. The configured
// logging section takes over in loadConfig.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(config.NewLogger(os.Stderr, c.loggingOverrides(config.LoggingConfig{})))
	return nil
}

func (c *CLI) loggingOverrides(lc config.LoggingConfig) config.LoggingConfig {
	if c.Verbose {
		lc.Level = config.LogLevelDebug
	}
	if c.LogFormat != "" {
		lc.Format = config.NormalizeLogFormat(c.LogFormat)
	}
	return lc
}

// loadConfig loads the configuration file and installs its logger.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	cfg.Logging = root.loggingOverrides(cfg.Logging)
	g.Logger = config.NewLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// newIntrospector selects the introspector for the configured source.
func newIntrospector(cfg *config.Config, logger *slog.Logger) (discovery.Introspector, error) {
	switch cfg.Source.Kind {
	case config.SourceGo:
		return gosrc.New(cfg.Source.Path, logger), nil
	case config.SourceManifest:
		in, err := manifest.Load(cfg.Source.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("load symbol manifest: %w", err)
		}
		return in, nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", cfg.Source.Kind)
	}
}
