package render

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/config"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/frontmatter"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
	"git.home.luguber.info/inful/autoapi/internal/output"
)

// Page is one rendered document waiting to be written.
type Page struct {
	Node        *apinode.Node
	Destination string
	Content     []byte
}

// Renderer turns the pages of a tree into documents.
type Renderer struct {
	engine Engine
	layout output.Layout
	logger *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(engine Engine, layout output.Layout, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{engine: engine, layout: layout, logger: logger}
}

// RenderRoot renders every page of the tree with the root's template. It is
// all or nothing: a missing template or a failure on any page returns a
// template error and no pages, so that a root is never half written.
func (r *Renderer) RenderRoot(ctx context.Context, root *apinode.Node, opts config.Options) ([]Page, error) {
	if err := r.engine.Lookup(opts.Template); err != nil {
		return nil, errs.TemplateError(root.QualifiedPath, opts.Template, err)
	}

	nodes := output.Pages(root)
	pages := make([]Page, 0, len(nodes))
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, errs.TemplateError(root.QualifiedPath, opts.Template, err)
		}
		content, err := r.RenderPage(n, opts)
		if err != nil {
			return nil, errs.TemplateError(root.QualifiedPath, opts.Template, err).
				WithContext("node", n.QualifiedPath)
		}
		pages = append(pages, Page{
			Node:        n,
			Destination: r.layout.Destination(opts, n.QualifiedPath),
			Content:     content,
		})
	}
	r.logger.Debug("Rendered root",
		logfields.Root(root.QualifiedPath),
		logfields.Template(opts.Template),
		logfields.Count(len(pages)))
	return pages, nil
}

// RenderPage renders one page and applies the orphan marker and fingerprint.
// The node's own configuration, which listeners may have changed, wins over
// opts except for the template, which is chosen per root.
func (r *Renderer) RenderPage(n *apinode.Node, opts config.Options) ([]byte, error) {
	nodeOpts := opts
	if n.Config != nil {
		nodeOpts = *n.Config
		nodeOpts.Template = opts.Template
	}
	text, err := r.engine.Render(opts.Template, NewContext(n, nodeOpts, r.layout))
	if err != nil {
		return nil, err
	}
	return finalize([]byte(text), r.layout.Extension, nodeOpts.Orphan)
}

// finalize adds what the host documentation tool needs on top of the
// template output. Markdown pages get frontmatter with the orphan marker and
// a fingerprint; reStructuredText pages get the :orphan: field list.
func finalize(content []byte, ext string, orphan bool) ([]byte, error) {
	switch config.BuiltinFormat(ext) {
	case config.FormatMarkdown:
		extra := map[string]any{}
		if orphan {
			extra["orphan"] = true
		}
		return frontmatter.Stamp(content, extra)
	case config.FormatRST:
		if orphan {
			return append([]byte(":orphan:\n\n"), content...), nil
		}
	}
	return content, nil
}
