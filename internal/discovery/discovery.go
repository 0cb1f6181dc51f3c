// Package discovery builds the documentation tree of a root module by asking
// an Introspector for the children of each module, recursively.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/exports"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// Symbol is one immediate child of a module as reported by an Introspector.
type Symbol struct {
	Name string
	Kind apinode.Kind
	// Exported is true when the name is in the module's export listing.
	Exported   bool
	Documented bool
	// Visibility refines the naming convention; Public defers to the name.
	Visibility exports.Visibility
	Doc        string
	Signature  string
	// Target is the module a package or module child actually resolves to.
	// Empty means "<parent module>.<Name>". Re-exports point elsewhere.
	Target string
	// Members are the public member names of a class.
	Members []string
}

// Introspector enumerates modules. Implementations decide public-ness using
// the export listing convention; the tree builder never looks at source.
type Introspector interface {
	// ListChildren returns the immediate children of module in a stable order.
	ListChildren(ctx context.Context, module string) ([]Symbol, error)
	// IsPackage reports whether module has submodules.
	IsPackage(ctx context.Context, module string) (bool, error)
}

// ModuleDocumenter is implemented by introspectors that know the
// documentation text of a module itself.
type ModuleDocumenter interface {
	ModuleDoc(ctx context.Context, module string) string
}

// Options are the root-scoped settings that affect which symbols are public.
type Options struct {
	// ModuleMembers admits members of modules without an export listing.
	ModuleMembers sets.Set[exports.Category]
}

// Result is the outcome of building one root. Root is nil when the root
// itself could not be enumerated.
type Result struct {
	Root   *apinode.Node
	Errors []error
}

// Builder constructs trees. It holds no per-run state and may build several
// roots concurrently.
type Builder struct {
	introspector Introspector
	logger       *slog.Logger
}

// NewBuilder creates a Builder over the given introspector.
func NewBuilder(in Introspector, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{introspector: in, logger: logger}
}

// Build discovers the tree of root. A module that cannot be enumerated is left
// out of the tree, recorded on its parent's FailedChildren and reported as a
// discovery error; its siblings are still discovered.
func (b *Builder) Build(ctx context.Context, root string, opts Options) *Result {
	res := &Result{}

	isPkg, err := b.introspector.IsPackage(ctx, root)
	if err != nil {
		res.Errors = append(res.Errors, errs.DiscoveryError(root, err))
		return res
	}
	node := apinode.New(localName(root), pageKind(isPkg), root)
	b.describe(ctx, node, root)

	active := sets.New(root)
	if err := b.expand(ctx, node, root, active, opts, res); err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	res.Root = node
	return res
}

// expand fills in the children of n, which documents module target. active
// holds the module targets on the current ancestor chain.
func (b *Builder) expand(ctx context.Context, n *apinode.Node, target string, active sets.Set[string], opts Options, res *Result) error {
	if err := ctx.Err(); err != nil {
		return errs.DiscoveryError(n.QualifiedPath, err)
	}

	symbols, err := b.introspector.ListChildren(ctx, target)
	if err != nil {
		return errs.DiscoveryError(n.QualifiedPath, err)
	}

	public := publicNames(symbols, opts)
	n.HasOwnInterface = len(public) > 0

	for _, sym := range symbols {
		qualified := n.QualifiedPath + "." + sym.Name
		if !sym.Kind.IsPage() {
			if !public.Has(sym.Name) {
				continue
			}
			n.ExportedSymbols.Add(sym.Name)
			member := apinode.New(sym.Name, sym.Kind, qualified)
			member.HasOwnInterface = true
			member.Documented = sym.Documented
			member.Doc = sym.Doc
			member.Signature = sym.Signature
			for _, m := range sym.Members {
				member.ExportedSymbols.Add(m)
			}
			n.AddChild(member)
			continue
		}

		childTarget := sym.Target
		if childTarget == "" {
			childTarget = target + "." + sym.Name
		}
		child := apinode.New(sym.Name, sym.Kind, qualified)
		child.Documented = sym.Documented

		if active.Has(childTarget) {
			child.Ref = childTarget
			n.AddChild(child)
			b.logger.Debug("Module already on ancestor chain, emitting reference",
				logfields.QualifiedPath(qualified), slog.String("target", childTarget))
			continue
		}

		if err := b.expandChild(ctx, child, childTarget, active, opts, res); err != nil {
			n.FailedChildren = append(n.FailedChildren, qualified)
			res.Errors = append(res.Errors, err)
			b.logger.Warn("Module discovery failed",
				logfields.QualifiedPath(qualified), logfields.Error(err))
			continue
		}
		n.AddChild(child)
	}

	b.logger.Debug("Module discovered",
		logfields.QualifiedPath(n.QualifiedPath),
		logfields.Kind(string(n.Kind)),
		logfields.Count(len(n.Children)))
	return nil
}

func (b *Builder) expandChild(ctx context.Context, child *apinode.Node, target string, active sets.Set[string], opts Options, res *Result) error {
	isPkg, err := b.introspector.IsPackage(ctx, target)
	if err != nil {
		return errs.DiscoveryError(child.QualifiedPath, err)
	}
	child.Kind = pageKind(isPkg)
	b.describe(ctx, child, target)

	active.Add(target)
	defer active.Delete(target)
	return b.expand(ctx, child, target, active, opts, res)
}

// publicNames returns the member names of a module that are documented as
// its interface. Exported symbols win; without any, the module-members
// fallback may admit members by category.
func publicNames(symbols []Symbol, opts Options) sets.Set[string] {
	public := sets.New[string]()
	var candidates []exports.Candidate
	for _, s := range symbols {
		if s.Kind.IsPage() {
			continue
		}
		if s.Exported {
			public.Add(s.Name)
		}
		vis := s.Visibility
		if vis == exports.Public {
			vis = exports.VisibilityOf(s.Name)
		}
		candidates = append(candidates, exports.Candidate{
			Name:       s.Name,
			Visibility: vis,
			Documented: s.Documented,
		})
	}
	if len(public) > 0 {
		return public
	}
	return sets.New(exports.Fallback(candidates, opts.ModuleMembers)...)
}

func (b *Builder) describe(ctx context.Context, n *apinode.Node, target string) {
	d, ok := b.introspector.(ModuleDocumenter)
	if !ok {
		return
	}
	if doc := d.ModuleDoc(ctx, target); doc != "" {
		n.Doc = doc
		n.Documented = true
	}
}

func pageKind(isPackage bool) apinode.Kind {
	if isPackage {
		return apinode.KindPackage
	}
	return apinode.KindModule
}

func localName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// String is used in log output and test failures.
func (s Symbol) String() string {
	return fmt.Sprintf("%s %s (exported=%t)", s.Kind, s.Name, s.Exported)
}
