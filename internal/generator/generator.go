// Package generator runs the documentation pipeline: discovery, relevance,
// pruning, configuration, listeners, rendering and writing, for every root
// of the configuration.
package generator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/config"
	"git.home.luguber.info/inful/autoapi/internal/discovery"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/history"
	"git.home.luguber.info/inful/autoapi/internal/hooks"
	"git.home.luguber.info/inful/autoapi/internal/linkcheck"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
	"git.home.luguber.info/inful/autoapi/internal/metrics"
	"git.home.luguber.info/inful/autoapi/internal/output"
	"git.home.luguber.info/inful/autoapi/internal/render"
	"git.home.luguber.info/inful/autoapi/internal/vcs"
)

// Stage names used for durations and logs.
const (
	StageResolve   = "resolve"
	StageDiscover  = "discover"
	StageCollision = "collisions"
	StageRoots     = "roots"
	StageLinks     = "links"
)

// Generator owns one configuration and the listeners registered on it.
type Generator struct {
	config       *config.Config
	introspector discovery.Introspector
	engine       render.Engine
	dispatcher   *hooks.Dispatcher
	recorder     metrics.Recorder
	history      *history.Store
	logger       *slog.Logger
	revision     *vcs.Revision
}

// New creates a Generator. The revision listener is registered first so
// templates can use the source revision.
func New(cfg *config.Config, in discovery.Introspector, engine render.Engine) *Generator {
	g := &Generator{
		config:       cfg,
		introspector: in,
		engine:       engine,
		dispatcher:   hooks.NewDispatcher(),
		recorder:     metrics.NoopRecorder{},
		logger:       slog.Default(),
	}
	_ = g.dispatcher.Register("revision", hooks.RevisionListener)
	return g
}

// Config exposes the configuration the generator runs with.
func (g *Generator) Config() *config.Config { return g.config }

// SetRecorder injects a metrics recorder. Returns the generator for chaining.
func (g *Generator) SetRecorder(r metrics.Recorder) *Generator {
	if r == nil {
		g.recorder = metrics.NoopRecorder{}
		return g
	}
	g.recorder = r
	return g
}

// SetHistory records every finished run in store.
func (g *Generator) SetHistory(store *history.Store) *Generator {
	g.history = store
	return g
}

// SetLogger replaces the default logger.
func (g *Generator) SetLogger(l *slog.Logger) *Generator {
	if l != nil {
		g.logger = l
	}
	return g
}

// SetRevision pins the source revision instead of reading it from git.
func (g *Generator) SetRevision(rev vcs.Revision) *Generator {
	g.revision = &rev
	return g
}

// OnNodeFinalized registers a listener that sees every retained node after
// configuration and before rendering. Listeners run in registration order.
func (g *Generator) OnNodeFinalized(name string, fn hooks.Listener) error {
	return g.dispatcher.Register(name, fn)
}

// rootState carries one root through the pipeline.
type rootState struct {
	resolved config.ResolvedRoot
	report   *RootReport
	tree     *apinode.Node
	pages    []render.Page
}

// Run executes one generation. The returned report always describes the
// run; its Status and Err summarize failures.
func (g *Generator) Run(ctx context.Context) *RunReport {
	report := newRunReport(uuid.NewString())
	logger := g.logger.With(logfields.RunID(report.RunID))
	report.Revision = g.sourceRevision(logger)

	defer func() {
		report.finish()
		g.observeRun(report)
		g.persist(ctx, report, logger)
		logger.Info("Generation finished", slog.String("summary", report.Summary()))
	}()

	if r, ok := g.introspector.(interface{ Reset() }); ok {
		r.Reset()
	}

	start := time.Now()
	resolved, err := g.config.ResolveRoots()
	g.stage(report, StageResolve, start)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return report
	}

	states := make([]*rootState, len(resolved))
	for i, rr := range resolved {
		states[i] = &rootState{resolved: rr, report: &RootReport{Root: rr.Name}}
		report.Roots = append(report.Roots, states[i].report)
	}

	g.discover(ctx, report, states, logger)
	if problems := g.checkCollisions(report, states); len(problems) > 0 {
		report.Errors = append(report.Errors, problems...)
		logger.Error("Output paths collide, nothing written", logfields.Count(len(problems)))
		return report
	}

	start = time.Now()
	host := &hooks.HostContext{RunID: report.RunID, Revision: report.Revision, Logger: logger}
	layout := g.layout()
	renderer := render.NewRenderer(g.engine, layout, logger)
	writer := output.NewWriter(logger)
	for _, st := range states {
		if ctx.Err() != nil {
			st.report.addError(errs.InternalError("generation canceled", ctx.Err()))
			continue
		}
		g.generateRoot(ctx, st, host, layout, renderer, writer, logger)
	}
	g.stage(report, StageRoots, start)

	start = time.Now()
	g.checkLinks(states)
	g.stage(report, StageLinks, start)
	return report
}

func (g *Generator) layout() output.Layout {
	return output.Layout{Root: g.config.Output.Directory, Extension: g.config.Output.Extension}
}

func (g *Generator) stage(report *RunReport, name string, start time.Time) {
	d := time.Since(start)
	report.StageDurations[name] = d
	g.recorder.ObserveStageDuration(name, d)
}

func (g *Generator) sourceRevision(logger *slog.Logger) string {
	if g.revision != nil {
		return g.revision.Short()
	}
	rev, err := vcs.Head(g.config.Source.Path)
	if err != nil {
		if !errors.Is(err, vcs.ErrNotRepository) {
			logger.Warn("Could not read source revision", logfields.Error(err))
		}
		return ""
	}
	if rev.Dirty {
		return rev.Short() + "-dirty"
	}
	return rev.Short()
}

// discover builds every root on the worker pool. Results are merged in
// configuration order.
func (g *Generator) discover(ctx context.Context, report *RunReport, states []*rootState, logger *slog.Logger) {
	start := time.Now()
	builder := discovery.NewBuilder(g.introspector, logger)
	results := runOrdered(ctx, states, g.config.Concurrency, func(ctx context.Context, st *rootState) (*discovery.Result, error) {
		opts := discovery.Options{ModuleMembers: st.resolved.Options.ModuleMembers}
		return builder.Build(ctx, st.resolved.Name, opts), nil
	})
	for i, res := range results {
		st := states[i]
		if res.Err != nil {
			st.report.addError(errs.DiscoveryError(st.resolved.Name, res.Err))
			continue
		}
		st.tree = res.Value.Root
		for _, err := range res.Value.Errors {
			st.report.addError(err)
		}
	}
	g.stage(report, StageDiscover, start)
}

// checkCollisions enforces unique qualified paths and destinations across
// all roots. Trees are evaluated and pruned first so that only pages that
// would be written claim a destination.
func (g *Generator) checkCollisions(report *RunReport, states []*rootState) []error {
	start := time.Now()
	defer g.stage(report, StageCollision, start)

	var problems []error
	dir := apinode.NewDirectory()
	for _, st := range states {
		if st.tree != nil {
			problems = append(problems, dir.Add(st.tree)...)
		}
	}

	layout := g.layout()
	claims := output.NewClaims()
	for _, st := range states {
		if st.tree == nil {
			continue
		}
		apinode.EvaluateRelevance(st.tree)
		st.tree = apinode.Prune(st.tree, st.resolved.Options.Prune)
		if st.tree == nil {
			continue
		}
		problems = append(problems, claims.ClaimTree(layout, st.resolved.Options, st.tree)...)
	}
	return problems
}

func (g *Generator) generateRoot(ctx context.Context, st *rootState, host *hooks.HostContext, layout output.Layout,
	renderer *render.Renderer, writer *output.Writer, logger *slog.Logger,
) {
	name := st.resolved.Name
	opts := st.resolved.Options
	logger = logger.With(logfields.Root(name))

	if st.tree == nil {
		logger.Info("Root produces no output")
		g.recorder.SetNodes(name, 0)
		return
	}
	nodes := st.tree.Nodes()
	st.report.Nodes = len(nodes)
	g.recorder.SetNodes(name, len(nodes))

	for _, n := range nodes {
		cfg := opts.Clone()
		n.Config = &cfg
	}

	rootHost := *host
	rootHost.Root = name
	rootHost.OutputRoot = layout.Dir(opts)
	for _, err := range g.dispatcher.Dispatch(ctx, st.tree, &rootHost) {
		st.report.addError(err)
	}

	pages, err := renderer.RenderRoot(ctx, st.tree, opts)
	if err != nil {
		st.report.addError(err)
		logger.Error("Root not rendered", logfields.Error(err))
		return
	}
	st.pages = pages

	counts := map[metrics.PageOutcome]int{}
	for _, p := range pages {
		outcome, err := writer.Write(p.Destination, p.Content, opts.Override)
		if err != nil {
			st.report.addError(errs.WriteError(p.Node.QualifiedPath, p.Destination, err))
			counts[metrics.PageFailed]++
			continue
		}
		switch outcome {
		case output.Written:
			st.report.Generated = append(st.report.Generated, p.Destination)
			counts[metrics.PageWritten]++
		case output.Unchanged:
			st.report.Unchanged = append(st.report.Unchanged, p.Destination)
			counts[metrics.PageUnchanged]++
		case output.Kept:
			st.report.Kept = append(st.report.Kept, p.Destination)
			counts[metrics.PageKept]++
		}
	}
	for outcome, n := range counts {
		g.recorder.AddPages(name, outcome, n)
	}
	logger.Info("Root generated",
		slog.Int("generated", len(st.report.Generated)),
		slog.Int("unchanged", len(st.report.Unchanged)),
		slog.Int("kept", len(st.report.Kept)),
		slog.Int("errors", len(st.report.Errors)))
}

// checkLinks verifies cross links between the pages of the run. Broken
// links are warnings; they never change the status.
func (g *Generator) checkLinks(states []*rootState) {
	checker := linkcheck.NewChecker()
	for _, st := range states {
		for _, p := range st.pages {
			checker.Add(p.Destination)
		}
	}
	for _, st := range states {
		for _, p := range st.pages {
			for _, b := range checker.Check(p.Destination, p.Content) {
				st.report.Warnings = append(st.report.Warnings,
					"broken link "+b.Destination+" in "+b.Page)
			}
		}
	}
}

func (g *Generator) observeRun(report *RunReport) {
	g.recorder.ObserveRunDuration(report.End.Sub(report.Start))
	g.recorder.IncRunOutcome(string(report.Status))
	for _, err := range report.AllErrors() {
		g.recorder.IncErrors(string(errs.GetCategory(err)))
	}
}

// persist stores the report file and the history entry. Failures are logged
// and never change the outcome of the run.
func (g *Generator) persist(ctx context.Context, report *RunReport, logger *slog.Logger) {
	if path := g.config.Output.Report; path != "" {
		if err := report.Persist(path); err != nil {
			logger.Warn("Failed to write run report", logfields.Path(path), logfields.Error(err))
		}
	}
	if g.history == nil {
		return
	}
	run, err := report.HistoryRun()
	if err == nil {
		err = g.history.Record(context.WithoutCancel(ctx), run)
	}
	if err != nil {
		logger.Warn("Failed to record run history", logfields.Error(err))
	}
}
