package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Label is a normalized department label attached to queries and documents.
type Label string

// Fixed label vocabulary. General means "no department restriction";
// Unknown means classification genuinely failed.
const (
	DeptIT         Label = "IT"
	DeptHR         Label = "HR"
	DeptFinance    Label = "Finance"
	DeptSales      Label = "Sales"
	DeptMarketing  Label = "Marketing"
	DeptOperations Label = "Operations"
	DeptGeneral    Label = "General"
	DeptUnknown    Label = "Unknown"
)

// deptSynonyms folds classifier output variants into the fixed vocabulary.
var deptSynonyms = map[string]Label{
	"it":                     DeptIT,
	"i.t.":                   DeptIT,
	"information technology": DeptIT,
	"hr":                     DeptHR,
	"h.r.":                   DeptHR,
	"human resources":        DeptHR,
	"finance":                DeptFinance,
	"financial":              DeptFinance,
	"accounting":             DeptFinance,
	"sales":                  DeptSales,
	"marketing":              DeptMarketing,
	"operations":             DeptOperations,
	"operation":              DeptOperations,
	"ops":                    DeptOperations,
	"general":                DeptGeneral,
	"unknown":                DeptUnknown,
}

// NormalizeDepartment folds a raw department string into the fixed
// vocabulary: case-insensitive synonym lookup first, title-cased passthrough
// for anything unmapped. Idempotent: normalizing twice yields the same label.
func NormalizeDepartment(raw string) Label {
	trimmed := strings.TrimSpace(raw)
	if label, ok := deptSynonyms[strings.ToLower(trimmed)]; ok {
		return label
	}
	return Label(titleCase(trimmed))
}

// titleCase upper-cases the first letter of each space-separated word and
// lower-cases the rest, matching the normalization the label table expects.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
