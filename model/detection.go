package model

import (
	"math"
	"sort"
)

// Detection is one classified, OCR'd candidate region on a page.
// Detections are owned by the upstream pipeline; the merging engine only
// groups copies of them and never modifies the originals.
type Detection struct {
	// ID is the position of the detection in the page's detection list
	ID int `json:"id"`

	// Box is the region in page pixel coordinates
	Box Box `json:"box"`

	// Class is the final label after postprocessing and rule overrides
	Class Class `json:"class"`

	// Confidence is the detection model score, in the model's native range
	Confidence float64 `json:"confidence"`

	// PostprocessConfidence is the score of the postprocessing classifier
	PostprocessConfidence float64 `json:"postprocess_confidence"`

	// Text is the OCR transcript of the region (may be empty)
	Text string `json:"text"`
}

// Validate returns an Issue describing why d cannot be merged, or nil
func (d Detection) Validate() *Issue {
	switch {
	case !d.Class.Known():
		return &Issue{Kind: IssueUnknownClass, DetectionID: d.ID, Reason: "missing or unknown class"}
	case !d.Box.Valid():
		return &Issue{Kind: IssueInvalidBox, DetectionID: d.ID, Reason: "zero-area, inverted or non-finite box"}
	case math.IsNaN(d.Confidence) || math.IsNaN(d.PostprocessConfidence):
		return &Issue{Kind: IssueInvalidConfidence, DetectionID: d.ID, Reason: "confidence is NaN"}
	}
	return nil
}

// SortReadingOrder returns a copy of dets sorted top-to-bottom, then
// left-to-right. The sort is stable so ties keep their input order.
func SortReadingOrder(dets []Detection) []Detection {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.Less(sorted[j].Box)
	})
	return sorted
}
