package scanner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pagemerge/internal/logger"
	"github.com/tsawler/pagemerge/merge"
	"github.com/tsawler/pagemerge/model"
)

// ErrNoRepository is returned by New when no repository is supplied
var ErrNoRepository = errors.New("scanner: no repository")

// Repository is the page store the scanner reads from and commits to
type Repository interface {
	// FetchUnmergedPages returns up to limit postprocessed, unmerged pages
	// whose IDs sort after the given cursor, in ID order
	FetchUnmergedPages(ctx context.Context, after string, limit int) ([]model.Page, error)

	// CommitMergedPage stores the objects of a page and sets its merged
	// flag atomically
	CommitMergedPage(ctx context.Context, pageID string, objects []model.MergedObject) error
}

// Resetter is implemented by repositories that can clear the merged flag
type Resetter interface {
	ResetMerged(ctx context.Context, pageIDs []string) (int64, error)
}

// Observer receives per-page and per-scan events, typically metrics
type Observer interface {
	PageMerged(objects, detections int, d time.Duration)
	PageSkipped()
	PageFailed()
	ScanFinished(d time.Duration)
}

// Config holds scanner configuration
type Config struct {
	// Workers is the number of pages merged concurrently
	Workers int

	// BatchSize is the number of pages fetched per query
	BatchSize int
}

// DefaultConfig uses one worker per CPU and four pages per worker per batch
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	return Config{
		Workers:   workers,
		BatchSize: workers * 4,
	}
}

// Scanner drives batch merging over a repository
type Scanner struct {
	repo     Repository
	merger   *merge.Merger
	config   Config
	observer Observer
}

// New creates a scanner. Non-positive config values fall back to
// DefaultConfig.
func New(repo Repository, merger *merge.Merger, config Config) (*Scanner, error) {
	if repo == nil {
		return nil, ErrNoRepository
	}
	if merger == nil {
		return nil, errors.New("scanner: no merger")
	}
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = config.Workers * 4
	}
	return &Scanner{repo: repo, merger: merger, config: config}, nil
}

// SetObserver installs an observer for subsequent scans
func (s *Scanner) SetObserver(o Observer) {
	s.observer = o
}

// Config returns the effective configuration
func (s *Scanner) Config() Config {
	return s.config
}

// Scan processes every page that is unmerged when its batch is fetched.
// Per-page problems are recorded in the report; the returned error is
// non-nil only when fetching fails or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	logger.Info("Scanner", "Starting object merging over pages")
	start := time.Now()

	var (
		mu     sync.Mutex
		report Report
		after  string
		runErr error
	)

	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		pages, err := s.repo.FetchUnmergedPages(ctx, after, s.config.BatchSize)
		if err != nil {
			runErr = fmt.Errorf("fetch pages after %q: %w", after, err)
			break
		}
		if len(pages) == 0 {
			break
		}
		after = lastID(pages)

		var g errgroup.Group
		g.SetLimit(s.config.Workers)
		for _, page := range pages {
			page := page
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := s.processPage(context.WithoutCancel(ctx), page)
				mu.Lock()
				report.add(res)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Duration = time.Since(start)
	sortReport(&report)
	if s.observer != nil {
		s.observer.ScanFinished(report.Duration)
	}
	logger.Info("Scanner", "End merging. Total time: %s (%d pages, %d workers)",
		report.Duration.Round(time.Millisecond), report.Pages(), s.config.Workers)
	return report, runErr
}

// Run scans repeatedly, waiting interval between the end of one scan and
// the start of the next, until ctx is cancelled. Fetch errors are logged and
// retried on the next tick.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scanner: invalid interval %s", interval)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		report, err := s.Scan(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			logger.Error("Scanner", "scan failed: %v", err)
		case report.Pages() > 0:
			logger.Info("Scanner", "%s", report)
		}
		timer.Reset(interval)
	}
}

type pageResult struct {
	pageID     string
	outcome    Outcome
	reason     string
	err        error
	objects    int
	detections int
	issues     int
}

// processPage merges and commits one page
func (s *Scanner) processPage(ctx context.Context, page model.Page) pageResult {
	start := time.Now()
	res := pageResult{pageID: page.ID}

	// Step 1: skip pages that are not ready
	switch {
	case !page.Postprocessed:
		res.outcome = OutcomeSkipped
		res.reason = "page has not been postprocessed"
	case page.LoadError != "":
		res.outcome = OutcomeSkipped
		res.reason = page.LoadError
	case page.Detections == nil:
		res.outcome = OutcomeSkipped
		res.reason = "page has no detection list"
	}
	if res.outcome == OutcomeSkipped {
		logger.Warn("Scanner", "page %s skipped: %s", page.ID, res.reason)
		if s.observer != nil {
			s.observer.PageSkipped()
		}
		return res
	}
	if len(page.Detections) == 0 {
		logger.Warn("Scanner", "No detected objects on page: %s", page.ID)
	}

	// Step 2: merge
	merged := s.merger.MergePage(page)

	// Step 3: commit
	if err := s.repo.CommitMergedPage(ctx, page.ID, merged.Objects); err != nil {
		logger.Error("Scanner", "Document write error: %v (page %s)", err, page.ID)
		res.outcome = OutcomeFailed
		res.err = err
		if s.observer != nil {
			s.observer.PageFailed()
		}
		return res
	}

	res.outcome = OutcomeMerged
	res.objects = len(merged.Objects)
	res.detections = merged.InputCount
	res.issues = len(merged.Issues)
	logger.Info("Scanner", "page %s: %d detections merged into %d objects", page.ID, merged.InputCount, len(merged.Objects))
	if s.observer != nil {
		s.observer.PageMerged(res.objects, res.detections, time.Since(start))
	}
	return res
}

// lastID returns the greatest page ID of a batch
func lastID(pages []model.Page) string {
	last := pages[0].ID
	for _, p := range pages[1:] {
		if p.ID > last {
			last = p.ID
		}
	}
	return last
}

// sortReport orders skips and failures by page ID
func sortReport(r *Report) {
	sort.Slice(r.Skips, func(i, j int) bool { return r.Skips[i].PageID < r.Skips[j].PageID })
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].PageID < r.Failures[j].PageID })
}
