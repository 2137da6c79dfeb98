package fixer

import "strings"

// encodedArrow is the known escaping defect: diagram sources that went
// through an HTML serializer come back with their arrow operators
// entity-encoded, which the diagram engine then rejects.
const (
	encodedArrow = "--&gt;"
	rawArrow     = "-->"
)

// Normalize rewrites every entity-encoded arrow operator back to its raw
// form. It is pure and idempotent, preserves all surrounding whitespace and
// line structure, and leaves every other entity sequence untouched.
//
// It runs as the first step of every validation and the last step before any
// candidate is reported, so no candidate ever escapes without having been
// normalized at least once.
func Normalize(code string) string {
	return strings.ReplaceAll(code, encodedArrow, rawArrow)
}
