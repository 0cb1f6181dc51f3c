package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/history"
)

// Status is the overall result of a run.
type Status string

const (
	// StatusSuccess means no error of any kind was recorded.
	StatusSuccess Status = "success"
	// StatusCompletedWithErrors means scoped errors were recorded; unaffected
	// pages were still written.
	StatusCompletedWithErrors Status = "completed_with_errors"
	// StatusFailed means a configuration error stopped the run before any
	// page was written.
	StatusFailed Status = "failed"
)

// RootReport is the per-root part of a run report.
type RootReport struct {
	Root string
	// Nodes is the size of the tree after pruning, zero when the root was
	// dropped or could not be discovered.
	Nodes int
	// Generated, Unchanged and Kept hold destination paths.
	Generated []string
	Unchanged []string
	Kept      []string
	Errors    []error
	// Warnings are non-fatal findings such as broken cross links.
	Warnings []string
}

func (r *RootReport) addError(err error) { r.Errors = append(r.Errors, err) }

// RunReport captures the outcome of one generation run.
type RunReport struct {
	SchemaVersion int
	RunID         string
	Revision      string
	Start         time.Time
	End           time.Time
	Status        Status
	// Errors are run-level errors. They stop the run before any write.
	Errors         []error
	Roots          []*RootReport
	StageDurations map[string]time.Duration
}

func newRunReport(runID string) *RunReport {
	return &RunReport{
		SchemaVersion:  1,
		RunID:          runID,
		Start:          time.Now(),
		StageDurations: map[string]time.Duration{},
	}
}

// Root returns the report of the named root, or nil.
func (r *RunReport) Root(name string) *RootReport {
	for _, rr := range r.Roots {
		if rr.Root == name {
			return rr
		}
	}
	return nil
}

// AllErrors returns run-level errors followed by every root's errors in
// configuration order.
func (r *RunReport) AllErrors() []error {
	out := append([]error(nil), r.Errors...)
	for _, rr := range r.Roots {
		out = append(out, rr.Errors...)
	}
	return out
}

// Err joins all recorded errors, nil on success.
func (r *RunReport) Err() error {
	return errors.Join(r.AllErrors()...)
}

// ErrorsOf returns the recorded errors of one category.
func (r *RunReport) ErrorsOf(category errs.ErrorCategory) []error {
	var out []error
	for _, err := range r.AllErrors() {
		if errs.IsCategory(err, category) {
			out = append(out, err)
		}
	}
	return out
}

func (r *RunReport) finish() {
	r.End = time.Now()
	r.deriveStatus()
}

func (r *RunReport) deriveStatus() {
	if len(r.Errors) > 0 {
		r.Status = StatusFailed
		return
	}
	if len(r.AllErrors()) > 0 {
		r.Status = StatusCompletedWithErrors
		return
	}
	r.Status = StatusSuccess
}

func (r *RunReport) totals() (generated, unchanged, kept, errors, warnings int) {
	for _, rr := range r.Roots {
		generated += len(rr.Generated)
		unchanged += len(rr.Unchanged)
		kept += len(rr.Kept)
		errors += len(rr.Errors)
		warnings += len(rr.Warnings)
	}
	return generated, unchanged, kept, errors + len(r.Errors), warnings
}

// Summary returns a human-readable single-line summary.
func (r *RunReport) Summary() string {
	generated, unchanged, kept, errCount, warnings := r.totals()
	return fmt.Sprintf("roots=%d generated=%d unchanged=%d kept=%d errors=%d warnings=%d duration=%s status=%s",
		len(r.Roots), generated, unchanged, kept, errCount, warnings,
		r.End.Sub(r.Start).Truncate(time.Millisecond), r.Status)
}

type rootReportJSON struct {
	Root      string   `json:"root"`
	Nodes     int      `json:"nodes"`
	Generated []string `json:"generated"`
	Unchanged []string `json:"unchanged"`
	Kept      []string `json:"kept_existing"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
}

type runReportJSON struct {
	SchemaVersion  int               `json:"schema_version"`
	RunID          string            `json:"run_id"`
	Revision       string            `json:"revision,omitempty"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Status         Status            `json:"status"`
	Errors         []string          `json:"errors"`
	Roots          []rootReportJSON  `json:"roots"`
	StageDurations map[string]string `json:"stage_durations"`
}

func errorStrings(in []error) []string {
	out := make([]string, 0, len(in))
	for _, err := range in {
		out = append(out, err.Error())
	}
	return out
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// MarshalJSON renders errors as strings and durations in Go notation.
func (r *RunReport) MarshalJSON() ([]byte, error) {
	out := runReportJSON{
		SchemaVersion:  r.SchemaVersion,
		RunID:          r.RunID,
		Revision:       r.Revision,
		Start:          r.Start,
		End:            r.End,
		Status:         r.Status,
		Errors:         errorStrings(r.Errors),
		Roots:          make([]rootReportJSON, 0, len(r.Roots)),
		StageDurations: make(map[string]string, len(r.StageDurations)),
	}
	for _, rr := range r.Roots {
		out.Roots = append(out.Roots, rootReportJSON{
			Root:      rr.Root,
			Nodes:     rr.Nodes,
			Generated: orEmpty(rr.Generated),
			Unchanged: orEmpty(rr.Unchanged),
			Kept:      orEmpty(rr.Kept),
			Errors:    errorStrings(rr.Errors),
			Warnings:  orEmpty(rr.Warnings),
		})
	}
	for k, v := range r.StageDurations {
		out.StageDurations[k] = v.String()
	}
	return json.Marshal(out)
}

// Persist writes the JSON report atomically to path.
func (r *RunReport) Persist(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	tmp := path + ".tmp"
	// #nosec G306 -- the report is meant to be read by CI tooling.
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}

// HistoryRun converts the report to a ledger entry.
func (r *RunReport) HistoryRun() (history.Run, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return history.Run{}, fmt.Errorf("marshal report json: %w", err)
	}
	run := history.Run{
		ID:         r.RunID,
		StartedAt:  r.Start,
		FinishedAt: r.End,
		Status:     string(r.Status),
		Revision:   r.Revision,
		Report:     data,
	}
	for _, rr := range r.Roots {
		run.Roots = append(run.Roots, history.RootResult{
			Root:      rr.Root,
			Generated: len(rr.Generated),
			Unchanged: len(rr.Unchanged),
			Kept:      len(rr.Kept),
			Errors:    len(rr.Errors),
		})
	}
	return run, nil
}
