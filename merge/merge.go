package merge

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tsawler/pagemerge/cluster"
	"github.com/tsawler/pagemerge/hierarchy"
	"github.com/tsawler/pagemerge/internal/logger"
	"github.com/tsawler/pagemerge/model"
	"github.com/tsawler/pagemerge/policy"
)

// objectNamespace seeds merged object IDs
var objectNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pagemerge:merged-object"))

// Result is the outcome of merging one page
type Result struct {
	// Objects is the final merged object list in reading order
	Objects []model.MergedObject

	// Issues lists detections dropped as malformed
	Issues []model.Issue

	// InputCount is the number of detections on the page
	InputCount int
}

// Merger applies a validated plan to pages
type Merger struct {
	plan    policy.Plan
	engine  *cluster.Engine
	builder *hierarchy.Builder
}

// New creates a merger for plan. The plan is validated first; an invalid
// plan is a configuration error and no merger is returned.
func New(plan policy.Plan) (*Merger, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &Merger{
		plan:    plan,
		engine:  cluster.NewEngineWithConfig(cluster.EngineConfig{Margin: plan.Margin}),
		builder: hierarchy.NewBuilder(),
	}, nil
}

// Plan returns the plan the merger runs
func (m *Merger) Plan() policy.Plan {
	return m.plan
}

// MergePage merges the detections of page. The page is not modified.
func (m *Merger) MergePage(page model.Page) Result {
	return m.MergeDetections(page.ID, page.Detections)
}

// MergeDetections merges a detection list on behalf of pageID
func (m *Merger) MergeDetections(pageID string, detections []model.Detection) Result {
	res := Result{
		Objects:    []model.MergedObject{},
		InputCount: len(detections),
	}

	// Step 1: drop malformed detections
	// Step 2: lift the rest into singleton items
	items := make([]hierarchy.Item, 0, len(detections))
	for _, d := range detections {
		if issue := d.Validate(); issue != nil {
			logger.Warn("Merge", "page %s: %s", pageID, issue)
			res.Issues = append(res.Issues, *issue)
			continue
		}
		items = append(items, hierarchy.Lift(d))
	}

	// Step 3: run passes in plan order
	for _, p := range m.plan.Passes {
		items = m.runPass(items, p)
	}

	// Step 4: reading order and IDs
	for _, it := range items {
		res.Objects = append(res.Objects, it.AsObject())
	}
	sort.SliceStable(res.Objects, func(i, j int) bool {
		return res.Objects[i].Box.Less(res.Objects[j].Box)
	})
	for i := range res.Objects {
		res.Objects[i].ID = ObjectID(pageID, i)
	}

	logger.Debug("Merge", "page %s: %d detections merged into %d objects", pageID, res.InputCount, len(res.Objects))
	return res
}

// runPass clusters the target class of p and replaces every consumed item
// by the merged object that consumed it
func (m *Merger) runPass(items []hierarchy.Item, p policy.Policy) []hierarchy.Item {
	clusters := m.engine.Cluster(hierarchy.ClusterItems(items), p)
	if len(clusters) == 0 {
		return items
	}
	objects := m.builder.Build(items, clusters, p)

	consumed := make([]bool, len(items))
	for _, c := range clusters {
		for _, i := range c.Members {
			consumed[i] = true
		}
		for _, i := range c.PassThrough {
			consumed[i] = true
		}
	}

	next := make([]hierarchy.Item, 0, len(items)-countTrue(consumed)+len(objects))
	for i, it := range items {
		if !consumed[i] {
			next = append(next, it)
		}
	}
	for _, o := range objects {
		next = append(next, hierarchy.FromObject(o))
	}
	return next
}

// ObjectID returns the deterministic ID of the ordinal-th object of a page
func ObjectID(pageID string, ordinal int) string {
	return uuid.NewSHA1(objectNamespace, []byte(fmt.Sprintf("%s/%d", pageID, ordinal))).String()
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
