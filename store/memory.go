package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tsawler/pagemerge/model"
)

// Memory is an in-process page repository
type Memory struct {
	mu    sync.Mutex
	pages map[string]*model.Page

	// FailCommit, when set, is consulted before every commit. A non-nil
	// return aborts the commit with that error.
	FailCommit func(pageID string) error
}

// NewMemory creates a repository holding copies of pages
func NewMemory(pages ...model.Page) *Memory {
	m := &Memory{pages: make(map[string]*model.Page)}
	for _, p := range pages {
		m.put(p)
	}
	return m
}

func (m *Memory) put(p model.Page) {
	cp := clonePage(&p)
	m.pages[p.ID] = &cp
}

// SavePage inserts or replaces a page
func (m *Memory) SavePage(_ context.Context, p model.Page) error {
	if p.ID == "" {
		return fmt.Errorf("save page: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(p)
	return nil
}

// Page returns a copy of the page with the given ID
func (m *Memory) Page(_ context.Context, id string) (model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return model.Page{}, ErrNotFound
	}
	return clonePage(p), nil
}

// Len returns the number of stored pages
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

// FetchUnmergedPages returns up to limit postprocessed, unmerged pages with
// IDs greater than after, in ID order
func (m *Memory) FetchUnmergedPages(ctx context.Context, after string, limit int) ([]model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.pages))
	for id, p := range m.pages {
		if id > after && p.Postprocessed && !p.Merged {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]model.Page, len(ids))
	for i, id := range ids {
		out[i] = clonePage(m.pages[id])
	}
	return out, nil
}

// CommitMergedPage stores objects and marks the page merged
func (m *Memory) CommitMergedPage(_ context.Context, pageID string, objects []model.MergedObject) error {
	if m.FailCommit != nil {
		if err := m.FailCommit(pageID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[pageID]
	if !ok {
		return ErrNotFound
	}
	p.Objects = cloneObjects(objects)
	p.Merged = true
	return nil
}

// ResetMerged clears the merged flag and objects of the given pages and
// returns how many were reset
func (m *Memory) ResetMerged(_ context.Context, pageIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range pageIDs {
		if p, ok := m.pages[id]; ok {
			p.Merged = false
			p.Objects = nil
			n++
		}
	}
	return n, nil
}

// MergedCount returns the number of pages with the merged flag set
func (m *Memory) MergedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.pages {
		if p.Merged {
			n++
		}
	}
	return n
}
