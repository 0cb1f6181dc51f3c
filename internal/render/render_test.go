package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/config"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/frontmatter"
	"git.home.luguber.info/inful/autoapi/internal/output"
)

func sampleTree() *apinode.Node {
	root := apinode.New("mypkg", apinode.KindPackage, "mypkg")
	root.Doc = "Package mypkg does things.\n\nMore detail."
	sub := apinode.New("sub", apinode.KindModule, "mypkg.sub")
	sub.Doc = "Sub module."

	f := apinode.New("f", apinode.KindFunction, "mypkg.sub.f")
	f.Signature = "func f(x int) error"
	f.Doc = "F does f."
	old := apinode.New("Old", apinode.KindFunction, "mypkg.sub.Old")
	client := apinode.New("Client", apinode.KindClass, "mypkg.sub.Client")
	client.ExportedSymbols.Add("Connect")
	client.ExportedSymbols.Add("Close")
	v := apinode.New("Version", apinode.KindAttribute, "mypkg.sub.Version")

	for _, m := range []*apinode.Node{f, old, client, v} {
		m.HasOwnInterface = true
		sub.AddChild(m)
	}
	root.AddChild(sub)
	return root
}

func options() config.Options {
	opts := config.BuiltinOptions("mypkg")
	opts.ExcludeMembers.Add("Old")
	opts.ExcludeMembers.Add("Close")
	opts.ClassMembers.Add("inherited-members")
	return opts
}

func TestNewContext(t *testing.T) {
	root := sampleTree()
	sub := root.Children[0]
	layout := output.Layout{Root: "/out", Extension: "md"}

	c := NewContext(sub, options(), layout)
	assert.Equal(t, "mypkg.sub", c.Title)
	require.NotNil(t, c.Parent)
	assert.Equal(t, "mypkg.md", c.Parent.Link)
	require.Len(t, c.Ancestors, 1)

	require.Len(t, c.Functions, 1, "excluded members are not rendered")
	assert.Equal(t, "f", c.Functions[0].Name)
	require.Len(t, c.Classes, 1)
	assert.Equal(t, []string{"Connect"}, c.Classes[0].Members)
	assert.Equal(t, []string{"inherited-members", ClassDirective}, c.Classes[0].Directives)
	require.Len(t, c.Attributes, 1)
	assert.Equal(t, []string{AttributeDirective}, c.Attributes[0].Directives)

	rc := NewContext(root, options(), layout)
	assert.Nil(t, rc.Parent)
	require.Len(t, rc.Children, 1)
	assert.Equal(t, "mypkg.sub.md", rc.Children[0].Link)
	assert.Equal(t, "Sub module.", rc.Children[0].Summary)
	assert.True(t, rc.IsPackage)

	root.Annotations[TitleAnnotation] = "My Package"
	assert.Equal(t, "My Package", NewContext(root, options(), layout).Title)
}

func TestNewContext_ReferenceLinksToTarget(t *testing.T) {
	root := sampleTree()
	ref := apinode.New("alias", apinode.KindPackage, "mypkg.sub.alias")
	ref.Ref = "mypkg"
	root.Children[0].AddChild(ref)

	c := NewContext(root.Children[0], options(), output.Layout{Extension: "md"})
	require.Len(t, c.Children, 1)
	assert.True(t, c.Children[0].Reference)
	assert.Equal(t, "mypkg.md", c.Children[0].Link)
}

func TestTemplateEngine_Builtin(t *testing.T) {
	e, err := NewTemplateEngine("", "md")
	require.NoError(t, err)
	assert.Equal(t, []string{"module", "stub"}, e.Names())

	r := NewRenderer(e, output.Layout{Root: "/out", Extension: "md"}, nil)
	pages, err := r.RenderRoot(context.Background(), sampleTree(), options())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, filepath.Join("/out", "mypkg", "mypkg.sub.md"), pages[1].Destination)

	body := string(pages[1].Content)
	assert.Contains(t, body, "title: mypkg.sub\n")
	assert.Contains(t, body, "# mypkg.sub\n")
	assert.Contains(t, body, "func f(x int) error")
	assert.Contains(t, body, "`Connect`")
	assert.NotContains(t, body, "### Old")
	assert.Contains(t, body, "Part of [mypkg](mypkg.md).")
	assert.Contains(t, body, frontmatter.FingerprintField+": ")

	ok, err := frontmatter.Verify(pages[1].Content)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := r.RenderRoot(context.Background(), sampleTree(), options())
	require.NoError(t, err)
	assert.Equal(t, string(pages[0].Content), string(again[0].Content))
}

func TestTemplateEngine_BuiltinFormats(t *testing.T) {
	md, err := NewTemplateEngine("", "md")
	require.NoError(t, err)
	out, err := md.Render("module", NewContext(sampleTree().Children[0], options(), output.Layout{Extension: "md"}))
	require.NoError(t, err)
	assert.Contains(t, out, "### Client\n\n<!-- directives: inherited-members, members -->")
	assert.Contains(t, out, "- `Version` <!-- directives: annotation -->")

	rst, err := NewTemplateEngine("", "rst")
	require.NoError(t, err)
	assert.Equal(t, []string{"module", "stub"}, rst.Names())
	out, err = rst.Render("module", NewContext(sampleTree().Children[0], options(), output.Layout{Extension: "rst"}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mypkg.sub\n=========\n"), out)
	assert.Contains(t, out, ".. autoclass:: mypkg.sub.Client\n   :inherited-members:\n   :members: Connect\n")
	assert.Contains(t, out, ".. autofunction:: mypkg.sub.f\n")
	assert.NotContains(t, out, "mypkg.sub.Old")

	stub, err := rst.Render("stub", NewContext(sampleTree(), options(), output.Layout{Extension: "rst"}))
	require.NoError(t, err)
	assert.Contains(t, stub, ".. toctree::\n   :maxdepth: 1\n\n   mypkg.sub\n")

	html, err := NewTemplateEngine("", "html")
	require.NoError(t, err)
	assert.Empty(t, html.Names())
	assert.True(t, errors.Is(html.Lookup("module"), ErrTemplateNotFound))
}

func TestRenderer_Orphan(t *testing.T) {
	e, err := NewTemplateEngine("", "md")
	require.NoError(t, err)
	opts := options()
	opts.Orphan = true

	page, err := NewRenderer(e, output.Layout{Extension: "md"}, nil).RenderPage(sampleTree(), opts)
	require.NoError(t, err)
	assert.Contains(t, string(page), "orphan: true\n")

	rst, err := finalize([]byte("Title\n"), "rst", true)
	require.NoError(t, err)
	assert.Equal(t, ":orphan:\n\nTitle\n", string(rst))

	plain, err := finalize([]byte("<p>x</p>"), "html", true)
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(plain))
}

func TestTemplateEngine_Overrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "module.tmpl"), []byte("{{ .Title | upper }}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.tmpl"), []byte("{{ .Title "), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.tmpl"), []byte("{{ .Missing }}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600))

	e, err := NewTemplateEngine(dir, "md")
	require.NoError(t, err)

	out, err := e.Render("module", NewContext(sampleTree(), options(), output.Layout{Extension: "md"}))
	require.NoError(t, err)
	assert.Equal(t, "MYPKG\n", out)

	require.Error(t, e.Lookup("broken"))
	assert.True(t, errors.Is(e.Lookup("nope"), ErrTemplateNotFound))

	r := NewRenderer(e, output.Layout{Extension: "md"}, nil)
	opts := options()
	opts.Template = "custom"
	_, err = r.RenderRoot(context.Background(), sampleTree(), opts)
	require.Error(t, err)
	assert.True(t, errs.IsCategory(err, errs.CategoryTemplate))

	opts.Template = "nope"
	_, err = r.RenderRoot(context.Background(), sampleTree(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template=nope")
}

func TestNewTemplateEngine_MissingDirectory(t *testing.T) {
	_, err := NewTemplateEngine(filepath.Join(t.TempDir(), "missing"), "md")
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "First line continues.", Summary("  First line\ncontinues.\n\nSecond paragraph."))
	assert.Equal(t, "", Summary(""))
	assert.True(t, strings.HasPrefix(funcs()["title"].(func(string) string)("hello world"), "Hello"))
}
