package store

import (
	"errors"

	"github.com/tsawler/pagemerge/model"
)

// ErrNotFound is returned when a page ID is not in the store
var ErrNotFound = errors.New("page not found")

// clonePage returns a copy of p that shares no slices with it
func clonePage(p *model.Page) model.Page {
	out := *p
	if p.Detections != nil {
		out.Detections = append([]model.Detection{}, p.Detections...)
	}
	if p.Objects != nil {
		out.Objects = cloneObjects(p.Objects)
	}
	return out
}

func cloneObjects(objs []model.MergedObject) []model.MergedObject {
	out := make([]model.MergedObject, len(objs))
	for i, o := range objs {
		if o.Header != nil {
			h := *o.Header
			o.Header = &h
		}
		o.Children = append([]model.Detection{}, o.Children...)
		if o.Absorbed != nil {
			o.Absorbed = append([]model.Detection{}, o.Absorbed...)
		}
		out[i] = o
	}
	return out
}
