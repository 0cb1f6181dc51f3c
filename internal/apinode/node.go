// Package apinode holds the in-memory documentation tree: one Node per
// package, module or public symbol, linked parent to child in discovery order.
//
// A tree is built from scratch on every generation run. Relevance is computed
// once the whole subtree exists (see EvaluateRelevance) and pruning is a
// single top-down decision per root (see Prune).
package apinode

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"git.home.luguber.info/inful/autoapi/internal/config"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// Kind identifies what a node documents.
type Kind string

const (
	KindPackage   Kind = "package"
	KindModule    Kind = "module"
	KindClass     Kind = "class"
	KindFunction  Kind = "function"
	KindAttribute Kind = "attribute"
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindPackage, KindModule, KindClass, KindFunction, KindAttribute:
		return true
	default:
		return false
	}
}

// IsPage reports whether nodes of this kind get their own output document.
// Classes, functions and attributes are rendered as members of their module.
func (k Kind) IsPage() bool {
	return k == KindPackage || k == KindModule
}

// ParseKind maps an introspector kind name to a Kind. Common aliases are
// folded: exceptions are classes, variables and constants are attributes.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "package":
		return KindPackage, nil
	case "module":
		return KindModule, nil
	case "class", "exception", "type", "interface", "struct":
		return KindClass, nil
	case "function", "func", "routine":
		return KindFunction, nil
	case "attribute", "variable", "var", "const", "constant", "data":
		return KindAttribute, nil
	default:
		return "", fmt.Errorf("unknown symbol kind %q", raw)
	}
}

// Node is one element of the documentation tree.
type Node struct {
	Name          string
	Kind          Kind
	QualifiedPath string

	// Parent is a back-reference; the parent owns the Children slice.
	Parent   *Node
	Children []*Node

	// ExportedSymbols lists the public member names of a module or class.
	ExportedSymbols sets.Set[string]

	HasOwnInterface bool
	Relevant        bool
	Documented      bool

	// Doc and Signature come from the introspector and are opaque here.
	Doc       string
	Signature string

	// Ref is set on reference-only leaves created when a module re-appears in
	// its own ancestor chain. It names the module the reference points to.
	Ref string

	// FailedChildren records submodules that could not be enumerated.
	FailedChildren []string

	// Config is the effective, root-scoped configuration. Nil until resolved.
	Config *config.Options

	// Annotations is free-form data for listeners and custom templates.
	Annotations map[string]any
}

// New creates a detached node.
func New(name string, kind Kind, qualifiedPath string) *Node {
	return &Node{
		Name:            name,
		Kind:            kind,
		QualifiedPath:   qualifiedPath,
		ExportedSymbols: sets.New[string](),
		Annotations:     map[string]any{},
	}
}

// AddChild appends child and sets its parent link.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.Parent == nil }

// IsLeaf reports whether the node has no children. A package with only an
// entry point and no members is also a leaf.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// IsReference reports whether the node is a reference-only cycle leaf.
func (n *Node) IsReference() bool { return n.Ref != "" }

// Depth is the number of dotted components in the qualified path, so
// "my.add.foo" has depth 3.
func (n *Node) Depth() int {
	return len(strings.Split(n.QualifiedPath, "."))
}

// Root walks parent links up to the root of the tree.
func (n *Node) Root() *Node {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// Ancestors returns the chain from the tree root down to the node's parent.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	slices.Reverse(out)
	return out
}

// Pages returns the children that get their own output document.
func (n *Node) Pages() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind.IsPage() {
			out = append(out, c)
		}
	}
	return out
}

// MembersOf returns the non-page children of the given kind in discovery order.
func (n *Node) MembersOf(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits the subtree in pre-order, parents before children. Returning
// false from fn skips the node's descendants.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Nodes returns every node of the subtree in pre-order.
func (n *Node) Nodes() []*Node {
	var out []*Node
	n.Walk(func(x *Node) bool {
		out = append(out, x)
		return true
	})
	return out
}

// String returns the qualified path.
func (n *Node) String() string { return n.QualifiedPath }

// Snapshot captures the mutable state of a node so it can be restored after a
// failed listener.
type Snapshot struct {
	node     Node
	children []*Node
}

// Snapshot copies the node's fields, cloning maps, slices and configuration.
func (n *Node) Snapshot() Snapshot {
	saved := *n
	saved.ExportedSymbols = n.ExportedSymbols.Clone()
	saved.Annotations = maps.Clone(n.Annotations)
	saved.FailedChildren = slices.Clone(n.FailedChildren)
	if n.Config != nil {
		cfg := n.Config.Clone()
		saved.Config = &cfg
	}
	return Snapshot{node: saved, children: slices.Clone(n.Children)}
}

// Restore resets the node to a previously captured state.
func (n *Node) Restore(s Snapshot) {
	*n = s.node
	n.Children = s.children
	if n.Annotations == nil {
		n.Annotations = map[string]any{}
	}
}
