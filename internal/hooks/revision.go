package hooks

import (
	"context"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
)

// RevisionAnnotation is the annotation key set by RevisionListener.
const RevisionAnnotation = "revision"

// RevisionListener stamps page nodes with the source revision of the run so
// templates can link generated pages back to the code they describe.
func RevisionListener(_ context.Context, n *apinode.Node, host *HostContext) error {
	if host.Revision == "" || !n.Kind.IsPage() {
		return nil
	}
	n.Annotations[RevisionAnnotation] = host.Revision
	return nil
}
