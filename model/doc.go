// Package model defines the records exchanged by the merging engine.
//
// Upstream stages (proposal generation, classification, OCR, postprocessing
// and rule overrides) produce one [Detection] per candidate region of a
// scanned page. The merging engine groups those detections into [Cluster]
// values and emits one [MergedObject] per cluster. A [Page] ties the two
// together and carries the flags used for idempotent batch scheduling.
//
// # Coordinates
//
// All geometry uses page pixel coordinates with the origin at the top-left
// corner and Y increasing downward:
//
//	box := model.Box{X0: 10, Y0: 20, X1: 110, Y1: 70}
//	box.Height() // 50
//
// Reading order is top-to-bottom, then left-to-right (see [Box.Less]).
//
// # Classes
//
// [Class] is a closed enumeration of the labels the classifier can emit.
// Labels are parsed with [ParseClass], which accepts any casing and "_" or
// "-" as word separators. JSON decoding is lenient: an unrecognised label
// becomes [ClassUnknown] and the detection is later filtered as an issue.
//
// # Issues
//
// Malformed input never aborts a page merge. Detections that cannot be used
// are reported as [Issue] values alongside the merge result.
package model
