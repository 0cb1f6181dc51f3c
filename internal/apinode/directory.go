package apinode

import (
	"slices"

	errs "git.home.luguber.info/inful/autoapi/internal/errors"
)

// Directory indexes nodes of one or more trees by qualified path. It enforces
// the uniqueness of qualified paths within a generation run.
type Directory struct {
	byPath map[string]*Node
	order  []string
}

// NewDirectory creates an empty index.
func NewDirectory() *Directory {
	return &Directory{byPath: make(map[string]*Node)}
}

// Add indexes every node of the tree rooted at root. Each qualified path that
// is already present is reported as a configuration error naming both nodes;
// indexing continues so that all collisions are reported at once.
func (d *Directory) Add(root *Node) []error {
	var problems []error
	root.Walk(func(n *Node) bool {
		if prev, ok := d.byPath[n.QualifiedPath]; ok {
			problems = append(problems, errs.DuplicatePath(describe(prev), describe(n), n.QualifiedPath))
			return true
		}
		d.byPath[n.QualifiedPath] = n
		d.order = append(d.order, n.QualifiedPath)
		return true
	})
	return problems
}

// Get returns the node with the given qualified path.
func (d *Directory) Get(path string) (*Node, bool) {
	n, ok := d.byPath[path]
	return n, ok
}

// Paths returns the indexed qualified paths in insertion order.
func (d *Directory) Paths() []string {
	return slices.Clone(d.order)
}

// Len returns the number of indexed nodes.
func (d *Directory) Len() int { return len(d.order) }

func describe(n *Node) string {
	if root := n.Root(); root != n {
		return n.QualifiedPath + " (root " + root.QualifiedPath + ")"
	}
	return n.QualifiedPath
}
