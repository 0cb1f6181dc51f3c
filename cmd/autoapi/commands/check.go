package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/autoapi/internal/frontmatter"
)

// ErrEditedPages is returned by check when hand-edited pages were found.
var ErrEditedPages = errors.New("generated pages were edited by hand")

// CheckCmd implements the 'check' command. It compares the fingerprint of
// every markdown page below the output directory with its content; pages
// without a fingerprint were not generated and are ignored.
type CheckCmd struct {
	Dir string `arg:"" optional:"" help:"Directory to check (default: configured output directory)" type:"path"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	dir := c.Dir
	if dir == "" {
		cfg, err := loadConfig(g, root)
		if err != nil {
			return err
		}
		dir = cfg.Output.Directory
	}

	var edited []string
	checked := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isMarkdown(p) {
			return nil
		}
		// #nosec G304 -- walking the output directory.
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if !hasFingerprint(content) {
			return nil
		}
		checked++
		ok, err := frontmatter.Verify(content)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if !ok {
			edited = append(edited, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range edited {
		fmt.Fprintf(stdout, "edited: %s\n", p)
	}
	fmt.Fprintf(stdout, "checked=%d edited=%d\n", checked, len(edited))
	if len(edited) > 0 {
		return fmt.Errorf("%w: %d", ErrEditedPages, len(edited))
	}
	return nil
}

func isMarkdown(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}

func hasFingerprint(content []byte) bool {
	fm, _, had, err := frontmatter.Split(content)
	if err != nil || !had {
		return false
	}
	fields, err := frontmatter.Parse(fm)
	if err != nil {
		return false
	}
	_, ok := fields[frontmatter.FingerprintField]
	return ok
}
