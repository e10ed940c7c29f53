package hierarchy

import (
	"github.com/tsawler/pagemerge/model"
	"github.com/tsawler/pagemerge/policy"
)

// Builder converts clusters into merged objects
type Builder struct{}

// NewBuilder creates a hierarchy builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns one merged object per cluster, in cluster order. Object IDs
// are left empty for the caller to assign.
func (b *Builder) Build(items []Item, clusters []model.Cluster, p policy.Policy) []model.MergedObject {
	objects := make([]model.MergedObject, 0, len(clusters))
	for _, c := range clusters {
		if c.Size() == 0 {
			continue
		}
		objects = append(objects, b.buildOne(items, c, p))
	}
	return objects
}

func (b *Builder) buildOne(items []Item, c model.Cluster, p policy.Policy) model.MergedObject {
	// Step 1: flatten member and absorbed detections
	var members []model.Detection
	for _, i := range c.Members {
		members = append(members, items[i].Detections()...)
	}
	var absorbed []model.Detection
	for _, i := range c.PassThrough {
		absorbed = append(absorbed, items[i].Detections()...)
	}

	// Step 2: reading order and header selection
	sorted := model.SortReadingOrder(members)
	obj := model.MergedObject{
		Children: []model.Detection{},
	}
	if p.BearsHeader() {
		header := sorted[0]
		obj.Header = &header
		obj.Children = append(obj.Children, sorted[1:]...)
		obj.Class = header.Class
		obj.Confidence = header.Confidence
	} else {
		obj.Children = append(obj.Children, sorted...)
		obj.Class, obj.Confidence = majority(obj.Children)
	}
	if len(absorbed) > 0 {
		obj.Absorbed = model.SortReadingOrder(absorbed)
	}

	// Step 3: union box of header and children
	box := sorted[0].Box
	for _, d := range sorted[1:] {
		box = box.Union(d.Box)
	}
	obj.Box = box

	return obj
}

// majority returns the most frequent class among children in reading order
// and the confidence of the first child carrying it. Ties go to the class
// that occurs first.
func majority(children []model.Detection) (model.Class, float64) {
	if len(children) == 0 {
		return model.ClassUnknown, 0
	}

	counts := make(map[model.Class]int)
	var order []model.Class
	for _, d := range children {
		if counts[d.Class] == 0 {
			order = append(order, d.Class)
		}
		counts[d.Class]++
	}

	best := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	for _, d := range children {
		if d.Class == best {
			return best, d.Confidence
		}
	}
	return best, 0
}
