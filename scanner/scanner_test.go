package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tsawler/pagemerge/merge"
	"github.com/tsawler/pagemerge/model"
	"github.com/tsawler/pagemerge/policy"
	"github.com/tsawler/pagemerge/store"
)

func newMerger(t *testing.T) *merge.Merger {
	t.Helper()
	m, err := merge.New(policy.DefaultPlan())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newScanner(t *testing.T, repo Repository, workers, batch int) *Scanner {
	t.Helper()
	sc, err := New(repo, newMerger(t), Config{Workers: workers, BatchSize: batch})
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

// tablePage returns the split-table page: two tables bridged by a section header
func tablePage(id string) model.Page {
	return *model.NewPage(id, 1, []model.Detection{
		{ID: 0, Class: model.ClassTable, Confidence: 0.9, Box: model.NewBox(0, 0, 100, 50)},
		{ID: 1, Class: model.ClassSectionHeader, Confidence: 0.8, Box: model.NewBox(0, 55, 100, 70)},
		{ID: 2, Class: model.ClassTable, Confidence: 0.7, Box: model.NewBox(0, 75, 100, 130)},
	})
}

func corpus(n int) []model.Page {
	pages := make([]model.Page, n)
	for i := range pages {
		pages[i] = tablePage(fmt.Sprintf("page-%03d", i))
	}
	return pages
}

// sliceRepo serves a fixed list of pages without filtering
type sliceRepo struct {
	mu       sync.Mutex
	pages    []model.Page
	fetchErr error
	commits  map[string][]model.MergedObject
}

func (r *sliceRepo) FetchUnmergedPages(_ context.Context, after string, limit int) ([]model.Page, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	var out []model.Page
	for _, p := range r.pages {
		if p.ID > after && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *sliceRepo) CommitMergedPage(_ context.Context, pageID string, objects []model.MergedObject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commits == nil {
		r.commits = make(map[string][]model.MergedObject)
	}
	r.commits[pageID] = objects
	return nil
}

// countingObserver records observer callbacks
type countingObserver struct {
	merged, skipped, failed, scans atomic.Int64
}

func (o *countingObserver) PageMerged(int, int, time.Duration) { o.merged.Add(1) }
func (o *countingObserver) PageSkipped()                       { o.skipped.Add(1) }
func (o *countingObserver) PageFailed()                        { o.failed.Add(1) }
func (o *countingObserver) ScanFinished(time.Duration)         { o.scans.Add(1) }

// ============================================================================
// Construction
// ============================================================================

func TestNew(t *testing.T) {
	if _, err := New(nil, newMerger(t), Config{}); !errors.Is(err, ErrNoRepository) {
		t.Errorf("New(nil repo) err = %v, want ErrNoRepository", err)
	}
	if _, err := New(store.NewMemory(), nil, Config{}); err == nil {
		t.Error("New(nil merger) should fail")
	}

	sc, err := New(store.NewMemory(), newMerger(t), Config{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := sc.Config(); got.Workers != 3 || got.BatchSize != 12 {
		t.Errorf("Config() = %+v, want 3 workers and batch 12", got)
	}

	def := DefaultConfig()
	if def.Workers < 1 || def.BatchSize != def.Workers*4 {
		t.Errorf("DefaultConfig() = %+v", def)
	}
}

// ============================================================================
// Scanning
// ============================================================================

func TestScanMergesEveryPageOnce(t *testing.T) {
	tests := []struct {
		name    string
		pages   int
		workers int
		batch   int
	}{
		{"single worker", 7, 1, 2},
		{"more workers than pages", 3, 8, 10},
		{"batch smaller than workers", 25, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := store.NewMemory(corpus(tt.pages)...)
			sc := newScanner(t, repo, tt.workers, tt.batch)

			report, err := sc.Scan(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if report.Merged != tt.pages || report.Skipped != 0 || report.Failed != 0 {
				t.Errorf("report = %s", report)
			}
			if report.Objects != tt.pages || report.Detections != 3*tt.pages {
				t.Errorf("objects/detections = %d/%d", report.Objects, report.Detections)
			}
			if repo.MergedCount() != tt.pages {
				t.Errorf("MergedCount() = %d, want %d", repo.MergedCount(), tt.pages)
			}

			p, _ := repo.Page(context.Background(), "page-000")
			if len(p.Objects) != 1 || p.Objects[0].Class != model.ClassTable || len(p.Objects[0].Absorbed) != 1 {
				t.Errorf("merged page objects = %+v", p.Objects)
			}
		})
	}
}

func TestScanIsIdempotent(t *testing.T) {
	repo := store.NewMemory(corpus(5)...)
	sc := newScanner(t, repo, 2, 2)
	ctx := context.Background()

	first, err := sc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	before, _ := repo.Page(ctx, "page-002")

	second, err := sc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Merged != 5 || second.Pages() != 0 {
		t.Errorf("first = %s; second = %s", first, second)
	}

	after, _ := repo.Page(ctx, "page-002")
	if !reflect.DeepEqual(before.Objects, after.Objects) {
		t.Error("second scan changed committed objects")
	}
}

func TestScanEmptyCorpus(t *testing.T) {
	report, err := newScanner(t, store.NewMemory(), 2, 2).Scan(context.Background())
	if err != nil || report.Pages() != 0 {
		t.Errorf("Scan() = %s, %v", report, err)
	}
}

func TestScanOutcomes(t *testing.T) {
	notReady := tablePage("b-not-ready")
	notReady.Postprocessed = false
	noList := model.Page{ID: "c-no-list", Postprocessed: true}
	empty := *model.NewPage("d-empty", 1, []model.Detection{})
	malformed := *model.NewPage("e-malformed", 1, []model.Detection{
		{ID: 0, Class: model.ClassTable, Box: model.NewBox(5, 5, 5, 5)},
	})

	repo := &sliceRepo{pages: []model.Page{tablePage("a-ok"), notReady, noList, empty, malformed}}
	sc := newScanner(t, repo, 2, 2)
	obs := &countingObserver{}
	sc.SetObserver(obs)

	report, err := sc.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Merged != 3 || report.Skipped != 2 || report.Failed != 0 {
		t.Fatalf("report = %s", report)
	}
	if report.Issues != 1 {
		t.Errorf("Issues = %d, want 1", report.Issues)
	}

	wantSkips := []string{"b-not-ready", "c-no-list"}
	for i, s := range report.Skips {
		if s.PageID != wantSkips[i] || s.Reason == "" {
			t.Errorf("skip %d = %+v, want %s with a reason", i, s, wantSkips[i])
		}
	}
	for _, id := range wantSkips {
		if _, ok := repo.commits[id]; ok {
			t.Errorf("skipped page %s was committed", id)
		}
	}
	for _, id := range []string{"d-empty", "e-malformed"} {
		objs, ok := repo.commits[id]
		if !ok || objs == nil || len(objs) != 0 {
			t.Errorf("page %s commit = %#v, %v; want empty non-nil list", id, objs, ok)
		}
	}

	if obs.merged.Load() != 3 || obs.skipped.Load() != 2 || obs.scans.Load() != 1 {
		t.Errorf("observer = merged %d skipped %d scans %d", obs.merged.Load(), obs.skipped.Load(), obs.scans.Load())
	}
}

func TestScanContinuesPastBadPages(t *testing.T) {
	var odd model.Page
	data := []byte(`{"id":"b-odd-label","postprocessed":true,"detections":[` +
		`{"id":0,"class":"Table","box":{"x0":0,"y0":0,"x1":100,"y1":50}},` +
		`{"id":1,"class":"Caption","box":{"x0":0,"y0":200,"x1":100,"y1":220}}]}`)
	if err := json.Unmarshal(data, &odd); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	undecodable := model.Page{ID: "c-undecodable", Postprocessed: true, LoadError: "decode detections: bad json"}

	repo := &sliceRepo{pages: []model.Page{tablePage("a-ok"), odd, undecodable, tablePage("d-ok")}}
	report, err := newScanner(t, repo, 2, 1).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if report.Merged != 3 || report.Skipped != 1 || report.Issues != 1 {
		t.Fatalf("report = %s (issues %d)", report, report.Issues)
	}
	if len(report.Skips) != 1 || report.Skips[0].PageID != "c-undecodable" || report.Skips[0].Reason != undecodable.LoadError {
		t.Errorf("Skips = %+v", report.Skips)
	}
	if objs := repo.commits["b-odd-label"]; len(objs) != 1 || objs[0].Class != model.ClassTable {
		t.Errorf("b-odd-label objects = %+v", objs)
	}
	if _, ok := repo.commits["d-ok"]; !ok {
		t.Error("page after the bad ones was not merged")
	}
}

func TestSkippedPagesNotRetriedWithinScan(t *testing.T) {
	pages := corpus(6)
	pages[1].Detections = nil
	pages[4].Detections = nil
	repo := store.NewMemory(pages...)

	report, err := newScanner(t, repo, 2, 2).Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Merged != 4 || report.Skipped != 2 {
		t.Errorf("report = %s, want 4 merged and 2 skipped", report)
	}
}

// ============================================================================
// Failure and resumption
// ============================================================================

func TestScanResumesAfterCommitFailure(t *testing.T) {
	repo := store.NewMemory(corpus(10)...)
	var failures atomic.Int64
	repo.FailCommit = func(id string) error {
		if id == "page-003" || id == "page-007" {
			failures.Add(1)
			return errors.New("connection reset")
		}
		return nil
	}

	sc := newScanner(t, repo, 3, 4)
	ctx := context.Background()

	first, err := sc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Merged != 8 || first.Failed != 2 {
		t.Fatalf("first scan = %s", first)
	}
	if first.Failures[0].PageID != "page-003" || first.Failures[1].PageID != "page-007" {
		t.Errorf("failures = %+v", first.Failures)
	}
	for _, id := range []string{"page-003", "page-007"} {
		if p, _ := repo.Page(ctx, id); p.Merged || p.Objects != nil {
			t.Errorf("failed page %s = %+v, want unmerged", id, p)
		}
	}

	repo.FailCommit = nil
	second, err := sc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second.Merged != 2 || second.Failed != 0 {
		t.Errorf("second scan = %s, want exactly the two failed pages", second)
	}
	if repo.MergedCount() != 10 {
		t.Errorf("MergedCount() = %d, want 10", repo.MergedCount())
	}
	if failures.Load() != 2 {
		t.Errorf("injected failures = %d, want 2", failures.Load())
	}
}

func TestScanFetchError(t *testing.T) {
	boom := errors.New("db down")
	_, err := newScanner(t, &sliceRepo{fetchErr: boom}, 1, 1).Scan(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Scan() err = %v, want wrapped fetch error", err)
	}
}

func TestScanCancelled(t *testing.T) {
	repo := store.NewMemory(corpus(3)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newScanner(t, repo, 1, 1).Scan(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Scan() err = %v, want context.Canceled", err)
	}
	if report.Pages() != 0 || repo.MergedCount() != 0 {
		t.Errorf("cancelled scan processed pages: %s", report)
	}
}

// ============================================================================
// Run loop
// ============================================================================

func TestRunPicksUpNewPages(t *testing.T) {
	repo := store.NewMemory(tablePage("page-a"))
	sc := newScanner(t, repo, 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sc.Run(ctx, 5*time.Millisecond) }()

	waitFor := func(n int) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for repo.MergedCount() < n {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %d merged pages (have %d)", n, repo.MergedCount())
			}
			time.Sleep(time.Millisecond)
		}
	}

	waitFor(1)
	if err := repo.SavePage(ctx, tablePage("page-b")); err != nil {
		t.Fatal(err)
	}
	waitFor(2)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunRejectsBadInterval(t *testing.T) {
	err := newScanner(t, store.NewMemory(), 1, 1).Run(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "interval") {
		t.Errorf("Run(0) = %v", err)
	}
}

func TestReportString(t *testing.T) {
	r := Report{Merged: 2, Skipped: 1, Failed: 1, Detections: 9, Objects: 4, Duration: 1500 * time.Millisecond}
	want := "4 pages (2 merged, 1 skipped, 1 failed), 9 detections merged into 4 objects in 1.5s"
	if r.String() != want {
		t.Errorf("String() = %q, want %q", r.String(), want)
	}
	for o, name := range map[Outcome]string{OutcomeMerged: "merged", OutcomeSkipped: "skipped", OutcomeFailed: "failed", Outcome(9): "unknown"} {
		if o.String() != name {
			t.Errorf("Outcome(%d).String() = %q, want %q", o, o.String(), name)
		}
	}
}
