package hierarchy

import (
	"github.com/tsawler/pagemerge/cluster"
	"github.com/tsawler/pagemerge/model"
)

// Item is one entry of a pass input. Exactly one of Detection and Object
// is set: passes start from lifted detections and later passes see the
// merged objects produced by earlier ones.
type Item struct {
	Detection *model.Detection
	Object    *model.MergedObject
}

// Lift wraps a single detection
func Lift(d model.Detection) Item {
	return Item{Detection: &d}
}

// FromObject wraps a merged object
func FromObject(o model.MergedObject) Item {
	return Item{Object: &o}
}

// Box returns the item's bounding box
func (it Item) Box() model.Box {
	if it.Object != nil {
		return it.Object.Box
	}
	return it.Detection.Box
}

// Class returns the item's class
func (it Item) Class() model.Class {
	if it.Object != nil {
		return it.Object.Class
	}
	return it.Detection.Class
}

// Detections returns every detection carried by the item
func (it Item) Detections() []model.Detection {
	if it.Object != nil {
		return it.Object.Members()
	}
	return []model.Detection{*it.Detection}
}

// Cluster returns the clustering view of the item
func (it Item) Cluster() cluster.Item {
	return cluster.Item{Box: it.Box(), Class: it.Class()}
}

// ClusterItems converts a pass input for the clustering engine
func ClusterItems(items []Item) []cluster.Item {
	out := make([]cluster.Item, len(items))
	for i, it := range items {
		out[i] = it.Cluster()
	}
	return out
}

// AsObject returns the item as a merged object. A lifted detection becomes an
// object whose header is the detection itself.
func (it Item) AsObject() model.MergedObject {
	if it.Object != nil {
		return *it.Object
	}
	d := *it.Detection
	return model.MergedObject{
		Class:      d.Class,
		Confidence: d.Confidence,
		Header:     &d,
		Children:   []model.Detection{},
		Box:        d.Box,
	}
}
