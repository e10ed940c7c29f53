package model

import (
	"fmt"

	"github.com/tsawler/pagemerge/internal/textnorm"
)

// Class is the label assigned to a detection by the upstream classifier
type Class int

const (
	ClassUnknown Class = iota
	ClassBodyText
	ClassFigure
	ClassFigureCaption
	ClassFigureNote
	ClassTable
	ClassTableCaption
	ClassTableNote
	ClassEquation
	ClassEquationLabel
	ClassSectionHeader
	ClassPageHeader
	ClassPageFooter
	ClassAbstract
	ClassReferenceText
	ClassOther
)

var classLabels = [...]string{
	ClassUnknown:       "Unknown",
	ClassBodyText:      "Body Text",
	ClassFigure:        "Figure",
	ClassFigureCaption: "Figure Caption",
	ClassFigureNote:    "Figure Note",
	ClassTable:         "Table",
	ClassTableCaption:  "Table Caption",
	ClassTableNote:     "Table Note",
	ClassEquation:      "Equation",
	ClassEquationLabel: "Equation label",
	ClassSectionHeader: "Section Header",
	ClassPageHeader:    "Page Header",
	ClassPageFooter:    "Page Footer",
	ClassAbstract:      "Abstract",
	ClassReferenceText: "Reference text",
	ClassOther:         "Other",
}

// classByKey maps folded labels to classes
var classByKey = func() map[string]Class {
	m := make(map[string]Class, len(classLabels))
	for c := ClassBodyText; c <= ClassOther; c++ {
		m[textnorm.LabelKey(classLabels[c])] = c
	}
	return m
}()

// String returns the canonical label of the class
func (c Class) String() string {
	if c < 0 || int(c) >= len(classLabels) {
		return classLabels[ClassUnknown]
	}
	return classLabels[c]
}

// Known reports whether c is a member of the enumeration
func (c Class) Known() bool {
	return c > ClassUnknown && c <= ClassOther
}

// ParseClass converts a label to a Class. Matching ignores case and treats
// runs of spaces, "_" and "-" as a single separator.
func ParseClass(label string) (Class, error) {
	if c, ok := classByKey[textnorm.LabelKey(label)]; ok {
		return c, nil
	}
	return ClassUnknown, fmt.Errorf("unknown class %q", label)
}

// Classes returns every known class in declaration order
func Classes() []Class {
	out := make([]Class, 0, int(ClassOther))
	for c := ClassBodyText; c <= ClassOther; c++ {
		out = append(out, c)
	}
	return out
}

// MarshalText implements encoding.TextMarshaler
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognised labels
// decode to ClassUnknown so that stored detections with a label the
// enumeration does not know are reported by [Detection.Validate] rather than
// failing the whole page.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		*c = ClassUnknown
		return nil
	}
	*c = parsed
	return nil
}
