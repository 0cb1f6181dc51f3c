// Package linkcheck verifies relative links between generated pages. Markdown
// is parsed with goldmark, HTML with golang.org/x/net/html.
package linkcheck

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/autoapi/internal/frontmatter"
	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// Broken is a link whose target neither belongs to the run nor exists on disk.
type Broken struct {
	Page        string
	Destination string
	Resolved    string
}

// Checker knows the pages of the current run.
type Checker struct {
	pages sets.Set[string]
}

// NewChecker creates a Checker that treats the given paths as existing.
func NewChecker(pages ...string) *Checker {
	c := &Checker{pages: sets.New[string]()}
	for _, p := range pages {
		c.Add(p)
	}
	return c
}

// Add registers a page path of the run.
func (c *Checker) Add(path string) {
	c.pages.Add(filepath.Clean(path))
}

// Check returns the broken relative links of the page at pagePath. Links
// with a scheme, site-absolute links and pure fragments are not checked.
func (c *Checker) Check(pagePath string, content []byte) []Broken {
	var dests []string
	switch strings.ToLower(filepath.Ext(pagePath)) {
	case ".md", ".markdown", ".mdx":
		dests = markdownLinks(content)
	case ".html", ".htm":
		dests = htmlLinks(content)
	default:
		return nil
	}

	var out []Broken
	dir := filepath.Dir(pagePath)
	for _, d := range dests {
		target, ok := localTarget(d)
		if !ok {
			continue
		}
		resolved := filepath.Clean(filepath.Join(dir, filepath.FromSlash(target)))
		if c.pages.Has(resolved) {
			continue
		}
		if _, err := os.Stat(resolved); err == nil {
			continue
		}
		out = append(out, Broken{Page: pagePath, Destination: d, Resolved: resolved})
	}
	return out
}

func localTarget(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}

func markdownLinks(content []byte) []string {
	body := content
	if _, b, had, err := frontmatter.Split(content); err == nil && had {
		body = b
	}

	ctx := parser.NewContext()
	root := goldmark.New().Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	var out []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			out = append(out, string(node.Destination))
		case *gmast.Image:
			out = append(out, string(node.Destination))
		}
		return gmast.WalkContinue, nil
	})
	return out
}

func htmlLinks(content []byte) []string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil
	}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attr := ""
			switch n.Data {
			case "a", "link":
				attr = "href"
			case "img", "script":
				attr = "src"
			}
			for _, a := range n.Attr {
				if attr != "" && a.Key == attr {
					out = append(out, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
