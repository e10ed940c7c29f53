package cluster

import (
	"sort"

	"github.com/tsawler/pagemerge/model"
	"github.com/tsawler/pagemerge/policy"
	"github.com/tsawler/pagemerge/spatial"
)

// Item is one entry of a pass input: a lifted detection or an object
// produced by an earlier pass
type Item struct {
	// Box is the item's bounding box
	Box model.Box

	// Class is the item's class
	Class model.Class
}

// EngineConfig holds configuration for clustering
type EngineConfig struct {
	// Margin is the adjacency margin in page pixels
	Margin float64
}

// DefaultEngineConfig returns the default clustering configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Margin: spatial.DefaultMargin,
	}
}

// Engine clusters pass inputs
type Engine struct {
	config EngineConfig
}

// NewEngine creates an engine with the default margin
func NewEngine() *Engine {
	return &Engine{config: DefaultEngineConfig()}
}

// NewEngineWithConfig creates an engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	return &Engine{config: config}
}

// Config returns the engine configuration
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Cluster groups the target-class items of a pass. Items of other classes
// are ignored unless they pass through for p. The returned clusters are
// ordered by the reading order of their first member.
func (e *Engine) Cluster(items []Item, p policy.Policy) []model.Cluster {
	// Step 1: collect target and pass-through nodes
	var nodes []int
	isTarget := make(map[int]bool)
	for i, it := range items {
		switch {
		case it.Class == p.Target:
			nodes = append(nodes, i)
			isTarget[i] = true
		case p.PassesThrough(it.Class):
			nodes = append(nodes, i)
		}
	}
	if len(isTarget) == 0 {
		return []model.Cluster{}
	}

	// Step 2: join adjacent nodes
	boxes := make([]model.Box, len(nodes))
	for n, i := range nodes {
		boxes[n] = items[i].Box
	}
	idx := spatial.NewIndex(boxes, e.config.Margin)
	uf := newUnionFind(len(nodes))
	for _, pair := range idx.Pairs() {
		uf.union(pair[0], pair[1])
	}

	// Step 3: one cluster per component that holds a target item
	byRoot := make(map[int]int)
	var clusters []model.Cluster
	for n, i := range nodes {
		if !isTarget[i] {
			continue
		}
		root := uf.find(n)
		ci, ok := byRoot[root]
		if !ok {
			ci = len(clusters)
			byRoot[root] = ci
			clusters = append(clusters, model.Cluster{Target: p.Target, Box: items[i].Box})
		}
		c := &clusters[ci]
		c.Members = append(c.Members, i)
		c.Box = c.Box.Union(items[i].Box)
	}

	// Step 4: reading order of first members
	leads := make([]int, len(clusters))
	for ci, c := range clusters {
		leads[ci] = firstInReadingOrder(items, c.Members)
	}
	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return before(items, leads[order[a]], leads[order[b]])
	})
	sorted := make([]model.Cluster, len(clusters))
	for i, ci := range order {
		sorted[i] = clusters[ci]
	}

	// Step 5: table merge attaches enclosed pass-through items
	if p.TableMerge {
		absorbed := make(map[int]bool)
		for ci := range sorted {
			c := &sorted[ci]
			for _, i := range nodes {
				if isTarget[i] || absorbed[i] {
					continue
				}
				if c.Box.Contains(items[i].Box) {
					c.PassThrough = append(c.PassThrough, i)
					absorbed[i] = true
				}
			}
		}
	}

	return sorted
}

// firstInReadingOrder returns the member that comes first in reading order
func firstInReadingOrder(items []Item, members []int) int {
	lead := members[0]
	for _, m := range members[1:] {
		if before(items, m, lead) {
			lead = m
		}
	}
	return lead
}

// before orders items by top edge, then left edge, then index
func before(items []Item, a, b int) bool {
	ba, bb := items[a].Box, items[b].Box
	if ba.Y0 != bb.Y0 {
		return ba.Y0 < bb.Y0
	}
	if ba.X0 != bb.X0 {
		return ba.X0 < bb.X0
	}
	return a < b
}
