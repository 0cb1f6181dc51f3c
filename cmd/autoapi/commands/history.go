package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/autoapi/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to list" default:"20"`
	ID    string `arg:"" optional:"" name:"run" help:"Print the JSON report of this run"`
}

func (c *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if cfg.History.Database == "" {
		return fmt.Errorf("history.database is not configured")
	}
	store, err := history.Open(cfg.History.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if c.ID != "" {
		run, err := store.Get(ctx, c.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(run.Report))
		return nil
	}

	runs, err := store.List(ctx, c.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tSTATUS\tREVISION\tPAGES\tERRORS")
	for _, r := range runs {
		pages, errCount := 0, 0
		for _, rr := range r.Roots {
			pages += rr.Generated + rr.Unchanged + rr.Kept
			errCount += rr.Errors
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond),
			r.Status, r.Revision, pages, errCount)
	}
	return tw.Flush()
}
