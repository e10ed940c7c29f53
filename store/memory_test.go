package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tsawler/pagemerge/model"
)

func samplePage(id string, merged bool) model.Page {
	p := model.NewPage(id, 1, []model.Detection{
		{ID: 0, Class: model.ClassTable, Confidence: 0.9, Box: model.NewBox(0, 0, 100, 50)},
	})
	p.Merged = merged
	return *p
}

// ============================================================================
// Selection
// ============================================================================

func TestMemoryFetchUnmergedPages(t *testing.T) {
	notReady := samplePage("p3", false)
	notReady.Postprocessed = false

	m := NewMemory(
		samplePage("p4", false),
		samplePage("p1", false),
		samplePage("p2", true),
		notReady,
		samplePage("p5", false),
	)
	ctx := context.Background()

	tests := []struct {
		name  string
		after string
		limit int
		want  []string
	}{
		{"from start", "", 10, []string{"p1", "p4", "p5"}},
		{"limited", "", 2, []string{"p1", "p4"}},
		{"after cursor", "p1", 10, []string{"p4", "p5"}},
		{"past end", "p5", 10, []string{}},
		{"no limit", "", 0, []string{"p1", "p4", "p5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := m.FetchUnmergedPages(ctx, tt.after, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			got := []string{}
			for _, p := range pages {
				got = append(got, p.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestMemoryFetchHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory(samplePage("p1", false)).FetchUnmergedPages(ctx, "", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// ============================================================================
// Commit and reset
// ============================================================================

func TestMemoryCommitAndReset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(samplePage("p1", false))

	objs := []model.MergedObject{{ID: "o1", Class: model.ClassTable, Children: []model.Detection{}}}
	if err := m.CommitMergedPage(ctx, "p1", objs); err != nil {
		t.Fatal(err)
	}
	objs[0].ID = "mutated"

	p, err := m.Page(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Merged || len(p.Objects) != 1 || p.Objects[0].ID != "o1" {
		t.Errorf("page after commit = %+v", p)
	}
	if m.MergedCount() != 1 {
		t.Errorf("MergedCount() = %d, want 1", m.MergedCount())
	}

	n, err := m.ResetMerged(ctx, []string{"p1", "missing"})
	if err != nil || n != 1 {
		t.Fatalf("ResetMerged() = %d, %v", n, err)
	}
	p, _ = m.Page(ctx, "p1")
	if p.Merged || p.Objects != nil {
		t.Errorf("page after reset = %+v", p)
	}
}

func TestMemoryCommitErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(samplePage("p1", false))

	if err := m.CommitMergedPage(ctx, "nope", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("commit of unknown page: err = %v, want ErrNotFound", err)
	}

	boom := errors.New("disk full")
	m.FailCommit = func(string) error { return boom }
	if err := m.CommitMergedPage(ctx, "p1", nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want injected error", err)
	}
	if p, _ := m.Page(ctx, "p1"); p.Merged {
		t.Error("failed commit marked the page merged")
	}
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	src := samplePage("p1", false)
	m := NewMemory(src)
	src.Detections[0].Class = model.ClassFigure

	p, _ := m.Page(ctx, "p1")
	if p.Detections[0].Class != model.ClassTable {
		t.Error("store shares detections with the caller")
	}
	p.Detections[0].Class = model.ClassFigure
	again, _ := m.Page(ctx, "p1")
	if again.Detections[0].Class != model.ClassTable {
		t.Error("Page() returned shared detections")
	}

	if _, err := m.Page(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Page(nope) err = %v", err)
	}
	if err := m.SavePage(ctx, model.Page{}); err == nil {
		t.Error("SavePage with empty id should fail")
	}
	if err := m.SavePage(ctx, samplePage("p2", false)); err != nil || m.Len() != 2 {
		t.Errorf("SavePage() = %v, Len() = %d", err, m.Len())
	}
}

func TestMemoryKeepsNilDetections(t *testing.T) {
	p := model.Page{ID: "p1", Postprocessed: true}
	m := NewMemory(p)
	pages, _ := m.FetchUnmergedPages(context.Background(), "", 10)
	if len(pages) != 1 || pages[0].Detections != nil {
		t.Errorf("nil detections not preserved: %+v", pages)
	}
}
