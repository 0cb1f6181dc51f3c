package render

import (
	"slices"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/config"
	"git.home.luguber.info/inful/autoapi/internal/hooks"
	"git.home.luguber.info/inful/autoapi/internal/output"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// Default member directives for classes and attributes.
const (
	ClassDirective     = "members"
	AttributeDirective = "annotation"
)

// TitleAnnotation overrides the page title when set by a listener.
const TitleAnnotation = "title"

// PageRef is a link to another page of the same root.
type PageRef struct {
	Name          string
	QualifiedPath string
	Kind          apinode.Kind
	// Link is relative to the page being rendered.
	Link    string
	Summary string
	// Reference is true for cycle leaves; Link then points at the target.
	Reference bool
}

// Member is one symbol rendered inside its module's page.
type Member struct {
	Name          string
	QualifiedPath string
	Kind          apinode.Kind
	Doc           string
	Signature     string
	Documented    bool
	// Members are the public members of a class, exclusions applied.
	Members []string
	// Directives are member-inclusion directives for the host tool.
	Directives  []string
	Annotations map[string]any
}

// Context is the data every template receives.
type Context struct {
	Node      *apinode.Node
	Config    config.Options
	Title     string
	Kind      apinode.Kind
	IsPackage bool
	Revision  string

	Parent    *PageRef
	Ancestors []PageRef
	Children  []PageRef

	Classes    []Member
	Functions  []Member
	Attributes []Member

	// FailedChildren are submodules that could not be discovered.
	FailedChildren []string
	Annotations    map[string]any
}

// NewContext builds the render context of a page node.
func NewContext(n *apinode.Node, opts config.Options, layout output.Layout) *Context {
	c := &Context{
		Node:           n,
		Config:         opts,
		Title:          n.QualifiedPath,
		Kind:           n.Kind,
		IsPackage:      n.Kind == apinode.KindPackage,
		FailedChildren: slices.Clone(n.FailedChildren),
		Annotations:    n.Annotations,
	}
	if t, ok := n.Annotations[TitleAnnotation].(string); ok && t != "" {
		c.Title = t
	}
	if r, ok := n.Annotations[hooks.RevisionAnnotation].(string); ok {
		c.Revision = r
	}

	if n.Parent != nil {
		p := pageRef(n.Parent, layout)
		c.Parent = &p
	}
	for _, a := range n.Ancestors() {
		c.Ancestors = append(c.Ancestors, pageRef(a, layout))
	}

	excluded := opts.ExcludeMembers
	for _, child := range n.Children {
		if child.Kind.IsPage() {
			c.Children = append(c.Children, pageRef(child, layout))
			continue
		}
		if excluded.Has(child.Name) {
			continue
		}
		m := Member{
			Name:          child.Name,
			QualifiedPath: child.QualifiedPath,
			Kind:          child.Kind,
			Doc:           child.Doc,
			Signature:     child.Signature,
			Documented:    child.Documented,
			Annotations:   child.Annotations,
		}
		switch child.Kind {
		case apinode.KindClass:
			m.Members = memberNames(child.ExportedSymbols, excluded)
			m.Directives = classDirectives(opts.ClassMembers)
			c.Classes = append(c.Classes, m)
		case apinode.KindFunction:
			c.Functions = append(c.Functions, m)
		case apinode.KindAttribute:
			m.Directives = []string{AttributeDirective}
			c.Attributes = append(c.Attributes, m)
		}
	}
	return c
}

func pageRef(n *apinode.Node, layout output.Layout) PageRef {
	target := n.QualifiedPath
	if n.IsReference() {
		target = n.Ref
	}
	return PageRef{
		Name:          n.Name,
		QualifiedPath: n.QualifiedPath,
		Kind:          n.Kind,
		Link:          layout.FileName(target),
		Summary:       Summary(n.Doc),
		Reference:     n.IsReference(),
	}
}

func memberNames(names, excluded sets.Set[string]) []string {
	out := make([]string, 0, len(names))
	for _, name := range sets.Sorted(names) {
		if !excluded.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

func classDirectives(extra sets.Set[string]) []string {
	d := sets.New(ClassDirective)
	for k := range extra {
		d.Add(k)
	}
	return sets.Sorted(d)
}
