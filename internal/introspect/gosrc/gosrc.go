// Package gosrc is an Introspector over a tree of Go packages. Dotted module
// names map to directories below a base path: "mypkg.sub" is <base>/mypkg/sub.
//
// The export listing of a package is the set of exported identifiers. A
// package can narrow or widen it with a directive in any of its comments:
//
//	//autoapi:api Client, NewClient
//
// The directive takes precedence and is never merged with the identifiers.
package gosrc

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/discovery"
	"git.home.luguber.info/inful/autoapi/internal/exports"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

const apiDirective = "//autoapi:api"

// Introspector parses packages on first use and caches the result for its
// lifetime. It is safe for concurrent use.
type Introspector struct {
	base   string
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*pkgInfo
}

var _ discovery.Introspector = (*Introspector)(nil)

type pkgInfo struct {
	doc      string
	symbols  []discovery.Symbol
	children []string
	err      error
}

// New creates an Introspector rooted at base.
func New(base string, logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Introspector{base: base, logger: logger, cache: map[string]*pkgInfo{}}
}

// IsPackage reports whether the module's directory holds sub-packages.
func (in *Introspector) IsPackage(ctx context.Context, module string) (bool, error) {
	info := in.load(ctx, module)
	if info.err != nil {
		return false, info.err
	}
	return len(info.children) > 0, nil
}

// ModuleDoc returns the package comment.
func (in *Introspector) ModuleDoc(ctx context.Context, module string) string {
	return in.load(ctx, module).doc
}

// ListChildren returns top-level declarations in file order followed by
// sub-packages in directory order.
func (in *Introspector) ListChildren(ctx context.Context, module string) ([]discovery.Symbol, error) {
	info := in.load(ctx, module)
	if info.err != nil {
		return nil, info.err
	}
	out := make([]discovery.Symbol, 0, len(info.symbols)+len(info.children))
	out = append(out, info.symbols...)
	for _, c := range info.children {
		out = append(out, discovery.Symbol{Name: c, Kind: apinode.KindModule})
	}
	return out, nil
}

// Reset drops cached packages so the next call parses again.
func (in *Introspector) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cache = map[string]*pkgInfo{}
}

func (in *Introspector) load(ctx context.Context, module string) *pkgInfo {
	in.mu.Lock()
	defer in.mu.Unlock()
	if info, ok := in.cache[module]; ok {
		return info
	}
	info := in.parse(ctx, module)
	in.cache[module] = info
	return info
}

func (in *Introspector) dir(module string) string {
	return filepath.Join(append([]string{in.base}, strings.Split(module, ".")...)...)
}

func (in *Introspector) parse(ctx context.Context, module string) *pkgInfo {
	dir := in.dir(module)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &pkgInfo{err: fmt.Errorf("read package directory: %w", err)}
	}

	info := &pkgInfo{}
	fset := token.NewFileSet()
	var files []*ast.File
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if skipDir(name) || strings.Contains(name, ".") {
				continue
			}
			if hasGoFiles(filepath.Join(dir, name)) {
				info.children = append(info.children, name)
			}
			continue
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ParseComments)
		if err != nil {
			return &pkgInfo{err: fmt.Errorf("parse %s: %w", name, err)}
		}
		files = append(files, f)
	}
	if len(files) == 0 && len(info.children) == 0 {
		return &pkgInfo{err: fmt.Errorf("no Go package in %s", dir)}
	}

	var (
		directive []string
		found     bool
	)
	for _, f := range files {
		if info.doc == "" && f.Doc != nil {
			info.doc = strings.TrimSpace(f.Doc.Text())
		}
		if names, ok := scanDirective(f); ok {
			directive = append(directive, names...)
			found = true
		}
	}

	decls := collect(fset, files)
	l := exports.Listings{API: directive, HasAPI: found, HasAll: true}
	for _, d := range decls {
		if ast.IsExported(d.Name) {
			l.All = append(l.All, d.Name)
		}
	}
	listed, _ := exports.Select(l)
	public := sets.New(listed...)

	present := sets.New[string]()
	for _, d := range decls {
		present.Add(d.Name)
		d.Exported = public.Has(d.Name)
		info.symbols = append(info.symbols, d)
	}
	for _, name := range listed {
		if !present.Has(name) {
			in.logger.WarnContext(ctx, "Listed name is not defined in package",
				logfields.QualifiedPath(module), slog.String("name", name))
		}
	}
	return info
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor"
}

func hasGoFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			if !skipDir(e.Name()) && hasGoFiles(filepath.Join(dir, e.Name())) {
				return true
			}
			continue
		}
		if strings.HasSuffix(e.Name(), ".go") && !strings.HasSuffix(e.Name(), "_test.go") {
			return true
		}
	}
	return false
}

func scanDirective(f *ast.File) ([]string, bool) {
	var (
		names []string
		found bool
	)
	for _, cg := range f.Comments {
		for _, c := range cg.List {
			rest, ok := strings.CutPrefix(c.Text, apiDirective)
			if !ok {
				continue
			}
			found = true
			names = append(names, strings.FieldsFunc(rest, func(r rune) bool {
				return r == ',' || r == ' ' || r == '\t'
			})...)
		}
	}
	return names, found
}

// collect returns the top-level declarations of the package. Methods are
// attached to their receiver type as members.
func collect(fset *token.FileSet, files []*ast.File) []discovery.Symbol {
	var out []discovery.Symbol
	index := map[string]int{}
	methods := map[string][]string{}

	add := func(s discovery.Symbol) {
		if s.Name == "_" || s.Name == "init" {
			return
		}
		if _, dup := index[s.Name]; dup {
			return
		}
		if !ast.IsExported(s.Name) {
			s.Visibility = exports.Private
		}
		s.Documented = s.Doc != ""
		index[s.Name] = len(out)
		out = append(out, s)
	}

	for _, f := range files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv != nil {
					if recv := receiverName(d.Recv); recv != "" && ast.IsExported(d.Name.Name) {
						methods[recv] = append(methods[recv], d.Name.Name)
					}
					continue
				}
				add(discovery.Symbol{
					Name:      d.Name.Name,
					Kind:      apinode.KindFunction,
					Doc:       docText(d.Doc),
					Signature: signature(fset, d),
				})
			case *ast.GenDecl:
				collectGen(d, add)
			}
		}
	}

	for recv, names := range methods {
		if i, ok := index[recv]; ok {
			out[i].Members = names
		}
	}
	return out
}

func collectGen(d *ast.GenDecl, add func(discovery.Symbol)) {
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			doc := docText(s.Doc)
			if doc == "" && len(d.Specs) == 1 {
				doc = docText(d.Doc)
			}
			add(discovery.Symbol{Name: s.Name.Name, Kind: apinode.KindClass, Doc: doc})
		case *ast.ValueSpec:
			doc := docText(s.Doc)
			if doc == "" {
				doc = docText(d.Doc)
			}
			for _, n := range s.Names {
				add(discovery.Symbol{Name: n.Name, Kind: apinode.KindAttribute, Doc: doc})
			}
		}
	}
}

func receiverName(fl *ast.FieldList) string {
	if len(fl.List) == 0 {
		return ""
	}
	expr := fl.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.IndexListExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}

func docText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}

func signature(fset *token.FileSet, d *ast.FuncDecl) string {
	stripped := *d
	stripped.Doc = nil
	stripped.Body = nil
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, &stripped); err != nil {
		return d.Name.Name
	}
	return buf.String()
}
