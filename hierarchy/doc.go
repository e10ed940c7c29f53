// Package hierarchy turns clusters into merged objects.
//
// Each cluster becomes one [model.MergedObject]. For header-bearing target
// classes the topmost-then-leftmost member is the header and the rest are
// children; for other classes every member is a child. Children are kept in
// reading order with a stable sort, so members that share a top-left corner
// keep their input order.
//
// Class and confidence come from the header when there is one. Otherwise the
// majority class of the children wins, ties going to the class seen first in
// reading order, and the confidence is that of the first child with the
// winning class.
package hierarchy
