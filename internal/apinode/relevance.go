package apinode

// EvaluateRelevance computes Relevant for every node of the subtree in
// post-order: a node is relevant if it has its own interface or any child is
// relevant. It depends only on structure and export listings, never on
// configuration, and returns the root's relevance.
func EvaluateRelevance(n *Node) bool {
	relevant := n.HasOwnInterface
	for _, c := range n.Children {
		// Every child must be evaluated, so no short-circuit here.
		if EvaluateRelevance(c) {
			relevant = true
		}
	}
	n.Relevant = relevant
	return relevant
}
