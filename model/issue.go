package model

import "fmt"

// IssueKind classifies a non-fatal input problem
type IssueKind int

const (
	IssueInvalidBox IssueKind = iota
	IssueUnknownClass
	IssueInvalidConfidence
)

func (k IssueKind) String() string {
	switch k {
	case IssueInvalidBox:
		return "invalid_box"
	case IssueUnknownClass:
		return "unknown_class"
	case IssueInvalidConfidence:
		return "invalid_confidence"
	default:
		return "unknown"
	}
}

// Issue describes a detection that was filtered out before clustering
type Issue struct {
	Kind        IssueKind
	DetectionID int
	Reason      string
}

func (i Issue) String() string {
	return fmt.Sprintf("detection %d: %s (%s)", i.DetectionID, i.Reason, i.Kind)
}
