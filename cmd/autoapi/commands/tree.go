package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	"git.home.luguber.info/inful/autoapi/internal/discovery"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
)

// TreeCmd implements the 'tree' command.
type TreeCmd struct {
	Fullname bool     `help:"Print qualified paths instead of local names"`
	NoPrune  bool     `name:"no-prune" help:"Show the tree before pruning"`
	Roots    []string `arg:"" optional:"" help:"Roots to print (default: all configured roots)"`
}

func (c *TreeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	in, err := newIntrospector(cfg, g.Logger)
	if err != nil {
		return err
	}
	resolved, err := cfg.ResolveRoots()
	if err != nil {
		return err
	}
	wanted := map[string]bool{}
	for _, r := range c.Roots {
		wanted[r] = true
	}
	builder := discovery.NewBuilder(in, g.Logger)
	var problems []error
	for _, rr := range resolved {
		if len(wanted) > 0 && !wanted[rr.Name] {
			continue
		}
		delete(wanted, rr.Name)

		res := builder.Build(context.Background(), rr.Name, discovery.Options{ModuleMembers: rr.Options.ModuleMembers})
		problems = append(problems, res.Errors...)
		if res.Root == nil {
			continue
		}
		apinode.EvaluateRelevance(res.Root)
		tree := res.Root
		if !c.NoPrune {
			tree = apinode.Prune(tree, rr.Options.Prune)
		}
		if tree == nil {
			fmt.Fprintf(stdout, "%s (pruned)\n", rr.Name)
			continue
		}
		fmt.Fprintln(stdout, tree.Tree(c.Fullname))
	}
	for name := range wanted {
		problems = append(problems, fmt.Errorf("root %q is not configured", name))
	}
	for _, p := range problems {
		g.Logger.Warn("Discovery problem", logfields.Error(p))
	}
	if len(problems) > 0 {
		return problems[0]
	}
	return nil
}
