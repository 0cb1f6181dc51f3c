package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/autoapi/internal/config"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
	"git.home.luguber.info/inful/autoapi/internal/metrics"
	"git.home.luguber.info/inful/autoapi/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Override the configured debounce window"`
	Interval time.Duration `help:"Also regenerate on this interval (0 disables)"`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if c.Debounce > 0 {
		cfg.Watch.Debounce = c.Debounce
	}
	if c.Interval > 0 {
		cfg.Watch.Interval = c.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder *metrics.PrometheusRecorder
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
	}
	trigger := watch.Serialize(func(ctx context.Context, reason string) {
		regenerate(ctx, g, root, recorder, reason)
	})
	trigger(ctx, "startup")

	w, err := watch.New(cfg.Watch.Debounce, trigger, g.Logger)
	if err != nil {
		return err
	}
	if err := addWatches(w, cfg, root.Config); err != nil {
		return err
	}

	if cfg.Watch.Interval > 0 {
		sched, err := watch.NewScheduler(g.Logger)
		if err != nil {
			return err
		}
		if _, err := sched.Every(ctx, cfg.Watch.Interval, trigger); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				g.Logger.Warn("Failed to stop scheduler", logfields.Error(err))
			}
		}()
	}

	g.Logger.Info("Watching for changes",
		logfields.Path(cfg.Source.Path),
		slog.Duration("debounce", cfg.Watch.Debounce),
		slog.Duration("interval", cfg.Watch.Interval))
	return w.Run(ctx)
}

func addWatches(w *watch.Watcher, cfg *config.Config, configPath string) error {
	if err := w.Ignore(cfg.Output.Directory); err != nil {
		return err
	}
	if cfg.Output.Report != "" {
		if err := w.Ignore(cfg.Output.Report); err != nil {
			return err
		}
	}
	for _, p := range []string{cfg.Metrics.Textfile, cfg.History.Database} {
		if p == "" {
			continue
		}
		if err := w.Ignore(p); err != nil {
			return err
		}
	}
	paths := []string{cfg.Source.Path, configPath}
	if cfg.Templates.Directory != "" {
		paths = append(paths, cfg.Templates.Directory)
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}
	return nil
}

// regenerate reloads the configuration so edits to it take effect, then
// runs one generation. Failures are logged; the watch keeps going.
func regenerate(ctx context.Context, g *Global, root *CLI, recorder *metrics.PrometheusRecorder, reason string) {
	logger := g.Logger.With(slog.String("reason", reason))
	cfg, err := config.Load(root.Config)
	if err != nil {
		logger.Error("Configuration invalid, skipping regeneration", logfields.Error(err))
		return
	}
	cfg.Logging = root.loggingOverrides(cfg.Logging)

	s, err := newSession(cfg, logger, recorder)
	if err != nil {
		logger.Error("Regeneration setup failed", logfields.Error(err))
		return
	}
	defer s.close()

	report := s.run(ctx)
	if err := report.Err(); err != nil {
		logger.Warn("Regeneration completed with errors", slog.String("summary", report.Summary()))
		return
	}
	logger.Info("Regenerated", slog.String("summary", report.Summary()))
}
