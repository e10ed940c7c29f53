package scanner

import (
	"fmt"
	"time"
)

// Outcome is the result of processing one page
type Outcome int

const (
	OutcomeMerged Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomeMerged:
		return "merged"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skip records a page that was not ready to merge
type Skip struct {
	PageID string
	Reason string
}

// Failure records a page whose commit failed
type Failure struct {
	PageID string
	Err    error
}

// Report summarizes one scan
type Report struct {
	// Merged, Skipped and Failed count pages by outcome
	Merged  int
	Skipped int
	Failed  int

	// Objects and Detections total the committed pages
	Objects    int
	Detections int

	// Issues counts malformed detections dropped on committed pages
	Issues int

	// Duration is the wall time of the scan
	Duration time.Duration

	Skips    []Skip
	Failures []Failure
}

// Pages returns the number of pages processed
func (r Report) Pages() int {
	return r.Merged + r.Skipped + r.Failed
}

// String returns a one-line summary
func (r Report) String() string {
	return fmt.Sprintf("%d pages (%d merged, %d skipped, %d failed), %d detections merged into %d objects in %s",
		r.Pages(), r.Merged, r.Skipped, r.Failed, r.Detections, r.Objects, r.Duration.Round(time.Millisecond))
}

// add folds the result of one page into the report
func (r *Report) add(res pageResult) {
	switch res.outcome {
	case OutcomeMerged:
		r.Merged++
		r.Objects += res.objects
		r.Detections += res.detections
		r.Issues += res.issues
	case OutcomeSkipped:
		r.Skipped++
		r.Skips = append(r.Skips, Skip{PageID: res.pageID, Reason: res.reason})
	case OutcomeFailed:
		r.Failed++
		r.Failures = append(r.Failures, Failure{PageID: res.pageID, Err: res.err})
	}
}
