package metrics

import "time"

// PageOutcome labels what happened to a page.
type PageOutcome string

const (
	PageWritten   PageOutcome = "written"
	PageUnchanged PageOutcome = "unchanged"
	PageKept      PageOutcome = "kept_existing"
	PageFailed    PageOutcome = "failed"
)

// Recorder defines the observability hooks of a generation run.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // outcome: success|completed_with_errors|failed
	AddPages(root string, outcome PageOutcome, n int)
	SetNodes(root string, n int)
	IncErrors(category string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) AddPages(string, PageOutcome, int)          {}
func (NoopRecorder) SetNodes(string, int)                       {}
func (NoopRecorder) IncErrors(string)                           {}
