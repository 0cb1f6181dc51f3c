package apinode

// Prune filters the tree rooted at n. When prune is false the tree is left
// untouched, irrelevant stubs included. When prune is true only relevant nodes
// are retained; the descendants of a dropped node go with it. Child order is
// preserved. Prune returns nil when the root itself is dropped, which means
// the root yields no output at all.
//
// EvaluateRelevance must have run on the tree first.
func Prune(n *Node, prune bool) *Node {
	if !prune {
		return n
	}
	if !n.Relevant {
		return nil
	}
	pruneChildren(n)
	return n
}

func pruneChildren(n *Node) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if !c.Relevant {
			c.Parent = nil
			continue
		}
		pruneChildren(c)
		kept = append(kept, c)
	}
	// Clear the tail so dropped subtrees are not kept alive by the backing array.
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
}
