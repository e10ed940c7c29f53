// Package textnorm normalizes OCR transcripts and class labels.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// LabelKey folds a class label into a lookup key: case-folded, with runs of
// whitespace, "_" and "-" collapsed into a single space.
func LabelKey(label string) string {
	fields := strings.FieldsFunc(label, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	return folder.String(strings.Join(fields, " "))
}

// Text returns s in Unicode NFC form with runs of whitespace collapsed to a
// single space and surrounding whitespace trimmed. Line breaks are kept.
func Text(s string) string {
	s = norm.NFC.String(s)
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
