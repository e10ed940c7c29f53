package model

import "strings"

// Cluster is a group of items from one merge pass that represent a single
// logical object of the pass's target class.
type Cluster struct {
	// Target is the class of the pass that produced the cluster
	Target Class

	// Members are indices of the target-class items in the cluster
	// (ascending)
	Members []int

	// PassThrough are indices of pass-through items attached to the cluster
	// as non-voting members (table merge mode only, ascending)
	PassThrough []int

	// Box is the union box of the member items
	Box Box
}

// Size returns the number of voting members
func (c Cluster) Size() int {
	return len(c.Members)
}

// MergedObject is the externally visible unit produced by the merging
// engine: an optional header detection followed by ordered children.
type MergedObject struct {
	// ID is a deterministic identifier derived from the page and ordinal
	ID string `json:"id"`

	// Class is inherited from the header, or from the majority of children
	Class Class `json:"class"`

	// Confidence is inherited together with Class
	Confidence float64 `json:"confidence"`

	// Header is the designated header detection, nil for classes that do
	// not bear headers
	Header *Detection `json:"header,omitempty"`

	// Children are the remaining member detections in reading order
	Children []Detection `json:"children"`

	// Absorbed are pass-through detections swallowed by a table merge
	Absorbed []Detection `json:"absorbed,omitempty"`

	// Box is the minimal rectangle covering header and children
	Box Box `json:"box"`
}

// Members returns header, children and absorbed detections in that order
func (o MergedObject) Members() []Detection {
	out := make([]Detection, 0, len(o.Children)+len(o.Absorbed)+1)
	if o.Header != nil {
		out = append(out, *o.Header)
	}
	out = append(out, o.Children...)
	out = append(out, o.Absorbed...)
	return out
}

// MemberCount returns the number of detections held by the object
func (o MergedObject) MemberCount() int {
	n := len(o.Children) + len(o.Absorbed)
	if o.Header != nil {
		n++
	}
	return n
}

// Text joins the header and children transcripts with newlines, skipping
// empty ones. Absorbed detections are not part of the object's content.
func (o MergedObject) Text() string {
	parts := make([]string, 0, len(o.Children)+1)
	if o.Header != nil && o.Header.Text != "" {
		parts = append(parts, o.Header.Text)
	}
	for _, c := range o.Children {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}
