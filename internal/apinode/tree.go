package apinode

import (
	"strings"
)

var kindTags = []struct {
	kind Kind
	tag  string
}{
	{KindFunction, "f"},
	{KindClass, "c"},
	{KindAttribute, "v"},
}

// Tree pretty-prints the page nodes of the subtree, one per line, indented
// four spaces per level. Tags after the name show which member kinds the
// module exposes (f functions, c classes, v attributes), for example:
//
//	confspec
//	    confspec.manager [c]
//	    confspec.providers [c, v]
//	        confspec.providers.dict [c]
//	    confspec.utils [f]
//
// Reference-only leaves are suffixed with "-> target".
func (n *Node) Tree(fullname bool) string {
	var b strings.Builder
	n.writeTree(&b, 0, fullname)
	return strings.TrimSuffix(b.String(), "\n")
}

func (n *Node) writeTree(b *strings.Builder, level int, fullname bool) {
	b.WriteString(strings.Repeat("    ", level))
	if fullname {
		b.WriteString(n.QualifiedPath)
	} else {
		b.WriteString(n.Name)
	}

	var tags []string
	for _, kt := range kindTags {
		if len(n.MembersOf(kt.kind)) > 0 {
			tags = append(tags, kt.tag)
		}
	}
	if len(tags) > 0 {
		b.WriteString(" [" + strings.Join(tags, ", ") + "]")
	}
	if n.IsReference() {
		b.WriteString(" -> " + n.Ref)
	}
	b.WriteString("\n")

	for _, c := range n.Pages() {
		c.writeTree(b, level+1, fullname)
	}
}
