// Package spatial answers adjacency and containment queries over the
// detections of a single page.
//
// Two boxes are adjacent when they intersect, or when their horizontal
// projections overlap and the vertical gap between them is smaller than a
// fixed margin. The margin absorbs box jitter from proposal generation and
// OCR:
//
//	spatial.Adjacent(a, b, spatial.DefaultMargin)
//
// [Index] precomputes a top-edge ordering of a page's boxes so neighbour
// queries only visit boxes in the vertical band around the query box. Its
// answers are identical to applying [Adjacent] to every pair.
package spatial
