package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/config"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/frontmatter"
	"git.home.luguber.info/inful/autoapi/internal/history"
	"git.home.luguber.info/inful/autoapi/internal/hooks"
	"git.home.luguber.info/inful/autoapi/internal/introspect/manifest"
	"git.home.luguber.info/inful/autoapi/internal/metrics"
	"git.home.luguber.info/inful/autoapi/internal/render"
	"git.home.luguber.info/inful/autoapi/internal/vcs"
)

const scenario = `
modules:
  mypkg:
    members:
      - {name: sub, kind: module}
  mypkg.sub:
    api: [f]
    members:
      - {name: f, kind: function, doc: Does f., signature: "f(x)"}
      - {name: helper, kind: function}
  other:
    package: false
`

const withBroken = `
modules:
  mypkg:
    members:
      - {name: broken, kind: module}
      - {name: sub, kind: module}
  mypkg.sub:
    api: [f]
    members:
      - {name: f, kind: function}
  mypkg.broken:
    error: "cannot import name 'x'"
`

const colliding = `
modules:
  a+b:
    package: false
    all: [x]
    members:
      - {name: x, kind: attribute}
  a_b:
    package: false
    all: [y]
    members:
      - {name: y, kind: attribute}
`

const withClass = `
modules:
  cpkg:
    package: false
    all: [Client, Version]
    members:
      - {name: Client, kind: class, doc: A client., members: [Connect]}
      - {name: Version, kind: attribute, signature: str}
`

type fixture struct {
	out string
	gen *Generator
}

func newFixture(t *testing.T, manifestDoc, roots string, extra ...string) *fixture {
	t.Helper()
	return newFormatFixture(t, "md", manifestDoc, roots, extra...)
}

func newFormatFixture(t *testing.T, ext, manifestDoc, roots string, extra ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "api")

	doc := fmt.Sprintf(`version: "1"
source:
  kind: manifest
  path: %s
output:
  directory: %s
  extension: %s
%s
roots:
%s`, filepath.Join(dir, "symbols.yaml"), out, ext, strings.Join(extra, "\n"), roots)

	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	in, err := manifest.Parse([]byte(manifestDoc), nil)
	require.NoError(t, err)
	engine, err := render.NewTemplateEngine("", ext)
	require.NoError(t, err)

	g := New(cfg, in, engine).SetRevision(vcs.Revision{})
	return &fixture{out: out, gen: g}
}

// files lists the files below the output root, relative and sorted.
func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(f.out, func(p string, d os.DirEntry, err error) error {
		if errors.Is(err, os.ErrNotExist) {
			return filepath.SkipDir
		}
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(f.out, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.out, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestRun_PruneKeepsAncestorsOfRelevantModules(t *testing.T) {
	f := newFixture(t, scenario, `  mypkg:
    prune: true
  other:
    prune: true
`)
	report := f.gen.Run(context.Background())

	require.NoError(t, report.Err())
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, []string{"mypkg/mypkg.md", "mypkg/mypkg.sub.md"}, f.files(t))
	assert.Len(t, report.Root("mypkg").Generated, 2)
	assert.Empty(t, report.Root("other").Generated)
	assert.Zero(t, report.Root("other").Nodes)

	sub := f.read(t, "mypkg/mypkg.sub.md")
	assert.Contains(t, sub, "# mypkg.sub\n")
	assert.Contains(t, sub, "### f")
	assert.NotContains(t, sub, "### helper")
	assert.Contains(t, f.read(t, "mypkg/mypkg.md"), "(mypkg.sub.md)")
}

func TestRun_IrrelevantRootWithoutPruneGetsStub(t *testing.T) {
	f := newFixture(t, scenario, `  other:
    prune: false
`)
	report := f.gen.Run(context.Background())

	require.NoError(t, report.Err())
	assert.Equal(t, []string{"other/other.md"}, f.files(t))
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, scenario, "  mypkg: {}\n")

	first := f.gen.Run(context.Background())
	require.NoError(t, first.Err())
	before := map[string]string{}
	for _, p := range f.files(t) {
		before[p] = f.read(t, p)
	}

	second := f.gen.Run(context.Background())
	require.NoError(t, second.Err())
	assert.Empty(t, second.Root("mypkg").Generated)
	assert.Len(t, second.Root("mypkg").Unchanged, len(before))
	for p, content := range before {
		assert.Equal(t, content, f.read(t, p), p)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_OverrideFalseKeepsEditedFiles(t *testing.T) {
	f := newFixture(t, scenario, `  mypkg:
    override: false
`)
	require.NoError(t, f.gen.Run(context.Background()).Err())

	edited := filepath.Join(f.out, "mypkg", "mypkg.sub.md")
	require.NoError(t, os.WriteFile(edited, []byte("hand edited\n"), 0o600))
	require.NoError(t, os.Remove(filepath.Join(f.out, "mypkg", "mypkg.md")))

	report := f.gen.Run(context.Background())
	require.NoError(t, report.Err())
	assert.Equal(t, "hand edited\n", f.read(t, "mypkg/mypkg.sub.md"))
	assert.Equal(t, []string{edited}, report.Root("mypkg").Kept)
	assert.Equal(t, []string{filepath.Join(f.out, "mypkg", "mypkg.md")}, report.Root("mypkg").Generated)
}

func TestRun_PathCollisionIsFatal(t *testing.T) {
	f := newFixture(t, colliding, `  a+b:
    output: shared
  a_b:
    output: shared
`)
	report := f.gen.Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	configErrs := report.ErrorsOf(errs.CategoryConfig)
	require.Len(t, configErrs, 1)
	assert.Contains(t, configErrs[0].Error(), "a+b")
	assert.Contains(t, configErrs[0].Error(), "a_b")
	assert.Empty(t, f.files(t))
}

func TestRun_DuplicateQualifiedPathIsFatal(t *testing.T) {
	f := newFixture(t, scenario, `  mypkg:
    output: one
  mypkg.sub:
    output: two
`)
	report := f.gen.Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	require.NotEmpty(t, report.ErrorsOf(errs.CategoryConfig))
	assert.Empty(t, f.files(t))
}

func TestRun_DiscoveryErrorDoesNotStopSiblings(t *testing.T) {
	f := newFixture(t, withBroken, "  mypkg: {}\n")
	report := f.gen.Run(context.Background())

	assert.Equal(t, StatusCompletedWithErrors, report.Status)
	require.Len(t, report.AllErrors(), 1)
	require.Len(t, report.ErrorsOf(errs.CategoryDiscovery), 1)
	assert.Contains(t, report.Err().Error(), "mypkg.broken")
	assert.Equal(t, []string{"mypkg/mypkg.md", "mypkg/mypkg.sub.md"}, f.files(t))
}

func TestRun_TemplateErrorIsScopedToRoot(t *testing.T) {
	f := newFixture(t, scenario, `  mypkg: {}
  other:
    template: nonexistent
`)
	report := f.gen.Run(context.Background())

	assert.Equal(t, StatusCompletedWithErrors, report.Status)
	require.Len(t, report.Root("other").Errors, 1)
	assert.True(t, errs.IsCategory(report.Root("other").Errors[0], errs.CategoryTemplate))
	assert.Equal(t, []string{"mypkg/mypkg.md", "mypkg/mypkg.sub.md"}, f.files(t))
}

func TestRun_HookFailureRendersPreHookState(t *testing.T) {
	f := newFixture(t, scenario, "  mypkg: {}\n")
	require.NoError(t, f.gen.OnNodeFinalized("titles", func(_ context.Context, n *apinode.Node, host *hooks.HostContext) error {
		n.Annotations[render.TitleAnnotation] = "Custom " + n.Name
		if n.QualifiedPath == "mypkg.sub" {
			return errors.New("boom")
		}
		return nil
	}))
	require.Error(t, f.gen.OnNodeFinalized("titles", func(context.Context, *apinode.Node, *hooks.HostContext) error { return nil }))

	report := f.gen.Run(context.Background())

	assert.Equal(t, StatusCompletedWithErrors, report.Status)
	hookErrs := report.ErrorsOf(errs.CategoryHook)
	require.Len(t, hookErrs, 1)
	assert.Contains(t, hookErrs[0].Error(), "mypkg.sub")
	assert.Contains(t, f.read(t, "mypkg/mypkg.md"), "# Custom mypkg\n")
	assert.Contains(t, f.read(t, "mypkg/mypkg.sub.md"), "# mypkg.sub\n")
}

func TestRun_ListenerSeesRootScopedConfig(t *testing.T) {
	f := newFixture(t, scenario, `  mypkg:
    orphan: true
`)
	var mu sync.Mutex
	seen := map[string]bool{}
	require.NoError(t, f.gen.OnNodeFinalized("inspect", func(_ context.Context, n *apinode.Node, host *hooks.HostContext) error {
		mu.Lock()
		defer mu.Unlock()
		require.NotNil(t, n.Config)
		seen[n.QualifiedPath] = n.Config.Orphan
		assert.Equal(t, "mypkg", host.Root)
		return nil
	}))

	require.NoError(t, f.gen.Run(context.Background()).Err())
	assert.Equal(t, map[string]bool{"mypkg": true, "mypkg.sub": true, "mypkg.sub.f": true}, seen)
	assert.Contains(t, f.read(t, "mypkg/mypkg.md"), "orphan: true")
}

func TestRun_RevisionIsRendered(t *testing.T) {
	f := newFixture(t, scenario, "  mypkg: {}\n")
	f.gen.SetRevision(vcs.Revision{Hash: "0123456789abcdef"})

	report := f.gen.Run(context.Background())
	require.NoError(t, report.Err())
	assert.Equal(t, "0123456789ab", report.Revision)
	assert.Contains(t, f.read(t, "mypkg/mypkg.md"), "Generated from revision `0123456789ab`.")
}

func TestRun_ClassMembersChangeThePage(t *testing.T) {
	plain := newFixture(t, withClass, "  cpkg: {}\n")
	require.NoError(t, plain.gen.Run(context.Background()).Err())
	extended := newFixture(t, withClass, `  cpkg:
    class-members: [inherited-members, special-members]
`)
	require.NoError(t, extended.gen.Run(context.Background()).Err())

	before := plain.read(t, "cpkg/cpkg.md")
	after := extended.read(t, "cpkg/cpkg.md")
	assert.NotEqual(t, before, after)
	assert.Contains(t, before, "<!-- directives: members -->")
	assert.Contains(t, after, "<!-- directives: inherited-members, members, special-members -->")
	assert.Contains(t, after, "- `Version` `str` <!-- directives: annotation -->")
}

func TestRun_RestructuredTextPages(t *testing.T) {
	f := newFormatFixture(t, "rst", withClass, `  cpkg:
    class-members: [inherited-members]
    orphan: true
`)
	require.NoError(t, f.gen.Run(context.Background()).Err())
	assert.Equal(t, []string{"cpkg/cpkg.rst"}, f.files(t))

	page := f.read(t, "cpkg/cpkg.rst")
	assert.True(t, strings.HasPrefix(page, ":orphan:\n\ncpkg\n====\n"), page)
	assert.NotContains(t, page, frontmatter.FingerprintField)
	assert.Contains(t, page, ".. module:: cpkg\n")
	assert.Contains(t, page, ".. autoclass:: cpkg.Client\n   :inherited-members:\n   :members: Connect\n")
	assert.Contains(t, page, ".. autodata:: cpkg.Version\n   :annotation:\n")

	sub := newFormatFixture(t, "rst", scenario, "  mypkg: {}\n")
	require.NoError(t, sub.gen.Run(context.Background()).Err())
	assert.Contains(t, sub.read(t, "mypkg/mypkg.rst"), "   mypkg.sub <mypkg.sub>\n")
	assert.Contains(t, sub.read(t, "mypkg/mypkg.sub.rst"), ".. autofunction:: mypkg.sub.f\n")
}

func TestRun_PersistsReportAndHistory(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.json")
	f := newFixture(t, scenario, "  mypkg: {}\n", "  report: "+reportPath)

	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f.gen.SetHistory(store)

	report := f.gen.Run(context.Background())
	require.NoError(t, report.Err())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, report.RunID, decoded["run_id"])

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, []history.RootResult{{Root: "mypkg", Generated: 2}}, runs[0].Roots)
}

type capturingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	pages    map[metrics.PageOutcome]int
	outcomes []string
	stages   []string
}

func (c *capturingRecorder) AddPages(_ string, outcome metrics.PageOutcome, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[outcome] += n
}

func (c *capturingRecorder) IncRunOutcome(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}

func (c *capturingRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, stage)
}

func TestRun_RecordsMetrics(t *testing.T) {
	f := newFixture(t, scenario, "  mypkg: {}\n")
	rec := &capturingRecorder{pages: map[metrics.PageOutcome]int{}}
	f.gen.SetRecorder(rec)

	f.gen.Run(context.Background())
	f.gen.Run(context.Background())

	assert.Equal(t, 2, rec.pages[metrics.PageWritten])
	assert.Equal(t, 2, rec.pages[metrics.PageUnchanged])
	assert.Equal(t, []string{"success", "success"}, rec.outcomes)
	assert.Contains(t, rec.stages, StageDiscover)
	assert.Contains(t, rec.stages, StageRoots)
}

func TestRun_BrokenLinksAreWarnings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "module.tmpl"),
		[]byte("# {{ .Title }}\n\nSee [missing](nowhere.md) and [parent]({{ with .Parent }}{{ .Link }}{{ end }}).\n"), 0o600))

	f := newFixture(t, scenario, "  mypkg: {}\n", "templates:\n  directory: "+dir)
	engine, err := render.NewTemplateEngine(dir, "md")
	require.NoError(t, err)
	f.gen.engine = engine

	report := f.gen.Run(context.Background())
	require.NoError(t, report.Err())
	assert.Equal(t, StatusSuccess, report.Status)
	warnings := report.Root("mypkg").Warnings
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Contains(t, w, "nowhere.md")
	}
}

func TestRun_CanceledContext(t *testing.T) {
	f := newFixture(t, scenario, "  mypkg: {}\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.gen.Run(ctx)
	assert.NotEqual(t, StatusSuccess, report.Status)
	assert.Empty(t, f.files(t))
}

func TestRunReport_Summary(t *testing.T) {
	r := newRunReport("id")
	r.Roots = []*RootReport{{Root: "a", Generated: []string{"x"}, Warnings: []string{"w"}}}
	r.finish()
	s := r.Summary()
	assert.Contains(t, s, "roots=1 generated=1")
	assert.Contains(t, s, "warnings=1")
	assert.Contains(t, s, "status=success")
}

func TestRunOrdered(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	var mu sync.Mutex
	active, peak := 0, 0
	results := runOrdered(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()
		time.Sleep(time.Duration(n) * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		if n == 4 {
			return 0, errors.New("four")
		}
		return n * 10, nil
	})

	require.Len(t, results, 5)
	assert.Equal(t, 50, results[0].Value)
	assert.Equal(t, 10, results[1].Value)
	assert.EqualError(t, results[2].Err, "four")
	assert.Equal(t, 30, results[4].Value)
	assert.LessOrEqual(t, peak, 2)
}
