// Package output maps nodes to destination files and writes them.
package output

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/config"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
)

// DerivedName turns a qualified path into a file name stem. Characters other
// than ASCII letters, digits, '.', '_' and '-' become '_'. The mapping is
// stable but not injective, which is why layouts are collision-checked.
func DerivedName(qualified string) string {
	var b strings.Builder
	b.Grow(len(qualified))
	for _, r := range qualified {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Layout places the pages of a run below Root.
type Layout struct {
	Root      string
	Extension string
}

// FileName is the base name of the page documenting qualified.
func (l Layout) FileName(qualified string) string {
	return DerivedName(qualified) + "." + l.Extension
}

// Dir is the directory all pages of a root are written to.
func (l Layout) Dir(opts config.Options) string {
	return filepath.Join(l.Root, opts.Output)
}

// Destination is <root>/<opts.Output>/<derived name>.<ext>.
func (l Layout) Destination(opts config.Options, qualified string) string {
	return filepath.Join(l.Dir(opts), l.FileName(qualified))
}

// Claims tracks destinations across roots so that two nodes never write the
// same file.
type Claims struct {
	owners map[string]string
}

// NewClaims creates an empty claim set.
func NewClaims() *Claims {
	return &Claims{owners: map[string]string{}}
}

// Claim records that qualified writes to path. A path already claimed by a
// different node is a configuration error naming both.
func (c *Claims) Claim(path, qualified string) error {
	key := filepath.Clean(path)
	if prev, ok := c.owners[key]; ok && prev != qualified {
		return errs.DuplicatePath(prev, qualified, path)
	}
	c.owners[key] = qualified
	return nil
}

// ClaimTree claims the destination of every page of the tree.
func (c *Claims) ClaimTree(l Layout, opts config.Options, root *apinode.Node) []error {
	var problems []error
	for _, n := range Pages(root) {
		if err := c.Claim(l.Destination(opts, n.QualifiedPath), n.QualifiedPath); err != nil {
			problems = append(problems, err)
		}
	}
	return problems
}

// Pages returns the nodes of the tree that are written as files, in pre-order.
// Reference-only leaves are listed by their parent but have no file.
func Pages(root *apinode.Node) []*apinode.Node {
	var out []*apinode.Node
	if root == nil {
		return nil
	}
	root.Walk(func(n *apinode.Node) bool {
		if !n.Kind.IsPage() {
			return false
		}
		if !n.IsReference() {
			out = append(out, n)
		}
		return true
	})
	return out
}
