package spatial

import (
	"sort"

	"github.com/tsawler/pagemerge/model"
)

// DefaultMargin is the adjacency margin in page pixels
const DefaultMargin = 10.0

// Adjacent reports whether a and b are adjacent under margin. The relation
// is symmetric and depends only on geometry.
func Adjacent(a, b model.Box, margin float64) bool {
	if a.Intersects(b) {
		return true
	}
	return a.HorizontalGap(b) == 0 && a.VerticalGap(b) < margin
}

// Index is a read-only adjacency index over one page's boxes
type Index struct {
	boxes     []model.Box
	margin    float64
	byTop     []int // indices sorted by Y0
	maxHeight float64
}

// NewIndex builds an index over boxes. The slice is not copied and must not
// be modified while the index is in use.
func NewIndex(boxes []model.Box, margin float64) *Index {
	idx := &Index{
		boxes:  boxes,
		margin: margin,
		byTop:  make([]int, len(boxes)),
	}
	for i, b := range boxes {
		idx.byTop[i] = i
		if h := b.Height(); h > idx.maxHeight {
			idx.maxHeight = h
		}
	}
	sort.SliceStable(idx.byTop, func(a, b int) bool {
		return boxes[idx.byTop[a]].Y0 < boxes[idx.byTop[b]].Y0
	})
	return idx
}

// Len returns the number of indexed boxes
func (idx *Index) Len() int {
	return len(idx.boxes)
}

// Margin returns the adjacency margin of the index
func (idx *Index) Margin() float64 {
	return idx.margin
}

// Box returns the i-th indexed box
func (idx *Index) Box(i int) model.Box {
	return idx.boxes[i]
}

// Adjacent reports whether boxes i and j are adjacent
func (idx *Index) Adjacent(i, j int) bool {
	return Adjacent(idx.boxes[i], idx.boxes[j], idx.margin)
}

// Neighbors returns the indices adjacent to box i in ascending order.
// A box is never its own neighbour.
func (idx *Index) Neighbors(i int) []int {
	var out []int
	idx.band(idx.boxes[i], func(j int) {
		if j != i && idx.Adjacent(i, j) {
			out = append(out, j)
		}
	})
	sort.Ints(out)
	return out
}

// Pairs returns every adjacent pair (i, j) with i < j, ordered by i then j
func (idx *Index) Pairs() [][2]int {
	var pairs [][2]int
	for i := range idx.boxes {
		for _, j := range idx.Neighbors(i) {
			if j > i {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// Within returns the indices of boxes lying entirely inside region, in
// ascending order
func (idx *Index) Within(region model.Box) []int {
	var out []int
	idx.band(region, func(j int) {
		if region.Contains(idx.boxes[j]) {
			out = append(out, j)
		}
	})
	sort.Ints(out)
	return out
}

// band calls fn for every box whose top edge lies in the vertical window
// that could touch b after expanding by the margin. Any box taller than the
// window is still reached because the window is widened by the tallest box.
func (idx *Index) band(b model.Box, fn func(j int)) {
	lo := b.Y0 - idx.margin - idx.maxHeight
	hi := b.Y1 + idx.margin

	start := sort.Search(len(idx.byTop), func(k int) bool {
		return idx.boxes[idx.byTop[k]].Y0 >= lo
	})
	for k := start; k < len(idx.byTop); k++ {
		j := idx.byTop[k]
		if idx.boxes[j].Y0 > hi {
			break
		}
		fn(j)
	}
}
