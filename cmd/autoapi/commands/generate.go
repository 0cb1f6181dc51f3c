package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/autoapi/internal/config"
	"git.home.luguber.info/inful/autoapi/internal/generator"
	"git.home.luguber.info/inful/autoapi/internal/history"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
	"git.home.luguber.info/inful/autoapi/internal/metrics"
	"git.home.luguber.info/inful/autoapi/internal/render"
)

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct {
	Output string `short:"o" help:"Override the configured output directory"`
	Report string `help:"Write the JSON run report to this file"`
}

func (c *GenerateCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if c.Output != "" {
		cfg.Output.Directory = c.Output
	}
	if c.Report != "" {
		cfg.Output.Report = c.Report
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := generateOnce(ctx, cfg, g.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, report.Summary())
	return report.Err()
}

// session owns what one generator needs besides the configuration.
type session struct {
	gen      *generator.Generator
	recorder *metrics.PrometheusRecorder
	store    *history.Store
	cfg      *config.Config
	logger   *slog.Logger
}

// newSession wires a generator for cfg. A non-nil recorder is reused so
// that counters accumulate across the runs of a watch.
func newSession(cfg *config.Config, logger *slog.Logger, recorder *metrics.PrometheusRecorder) (*session, error) {
	in, err := newIntrospector(cfg, logger)
	if err != nil {
		return nil, err
	}
	engine, err := render.NewTemplateEngine(cfg.Templates.Directory, cfg.Output.Extension)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	s := &session{cfg: cfg, logger: logger}
	s.gen = generator.New(cfg, in, engine).SetLogger(logger)
	if cfg.Metrics.Textfile != "" {
		if recorder == nil {
			recorder = metrics.NewPrometheusRecorder(nil)
		}
		s.recorder = recorder
		s.gen.SetRecorder(recorder)
	}
	if cfg.History.Database != "" {
		store, err := history.Open(cfg.History.Database)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		s.store = store
		s.gen.SetHistory(store)
	}
	return s, nil
}

// run generates once and exports metrics.
func (s *session) run(ctx context.Context) *generator.RunReport {
	report := s.gen.Run(ctx)
	if s.recorder != nil {
		if err := s.recorder.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			s.logger.Warn("Failed to write metrics", logfields.Path(s.cfg.Metrics.Textfile), logfields.Error(err))
		}
	}
	return report
}

func (s *session) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("Failed to close run history", logfields.Error(err))
		}
	}
}

func generateOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*generator.RunReport, error) {
	s, err := newSession(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	defer s.close()
	return s.run(ctx), nil
}
