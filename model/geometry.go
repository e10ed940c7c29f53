package model

import "math"

// Box is an axis-aligned rectangle in page pixel coordinates.
// (X0, Y0) is the top-left corner and (X1, Y1) the bottom-right corner.
type Box struct {
	X0 float64 `json:"x0" yaml:"x0"`
	Y0 float64 `json:"y0" yaml:"y0"`
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
}

// NewBox creates a box from its corner coordinates
func NewBox(x0, y0, x1, y1 float64) Box {
	return Box{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the horizontal extent of the box
func (b Box) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the vertical extent of the box
func (b Box) Height() float64 {
	return b.Y1 - b.Y0
}

// Area returns the area of the box
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Valid reports whether the box has finite coordinates and positive area
func (b Box) Valid() bool {
	for _, v := range [4]float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X0 < b.X1 && b.Y0 < b.Y1
}

// Intersects checks if two boxes overlap. Touching edges count as overlap.
func (b Box) Intersects(other Box) bool {
	return !(b.X1 < other.X0 ||
		b.X0 > other.X1 ||
		b.Y1 < other.Y0 ||
		b.Y0 > other.Y1)
}

// Contains reports whether other lies entirely inside b (edges included)
func (b Box) Contains(other Box) bool {
	return other.X0 >= b.X0 && other.X1 <= b.X1 &&
		other.Y0 >= b.Y0 && other.Y1 <= b.Y1
}

// Union returns the smallest box covering both boxes
func (b Box) Union(other Box) Box {
	return Box{
		X0: math.Min(b.X0, other.X0),
		Y0: math.Min(b.Y0, other.Y0),
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
	}
}

// Expand grows the box by margin on all sides
func (b Box) Expand(margin float64) Box {
	return Box{
		X0: b.X0 - margin,
		Y0: b.Y0 - margin,
		X1: b.X1 + margin,
		Y1: b.Y1 + margin,
	}
}

// HorizontalGap returns the distance between the horizontal projections of
// the boxes, or 0 when they overlap.
func (b Box) HorizontalGap(other Box) float64 {
	return math.Max(0, math.Max(b.X0, other.X0)-math.Min(b.X1, other.X1))
}

// VerticalGap returns the distance between the vertical projections of the
// boxes, or 0 when they overlap.
func (b Box) VerticalGap(other Box) float64 {
	return math.Max(0, math.Max(b.Y0, other.Y0)-math.Min(b.Y1, other.Y1))
}

// Less orders boxes in reading order: top edge first, then left edge.
func (b Box) Less(other Box) bool {
	if b.Y0 != other.Y0 {
		return b.Y0 < other.Y0
	}
	return b.X0 < other.X0
}

// UnionAll returns the minimal box covering every box in boxes.
// The second return value is false when boxes is empty.
func UnionAll(boxes ...Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	u := boxes[0]
	for _, b := range boxes[1:] {
		u = u.Union(b)
	}
	return u, true
}
