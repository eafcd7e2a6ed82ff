package plan

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/onboard/internal/upstream"
)

// unset is rendered for a field the person has no datum for yet.
const unset = "(unset)"

// Diff renders the change a plan would make to a person's field state as a
// patch in diff-match-patch text format, suitable for --dry-run review.
// Returns "" when the plan is already satisfied.
func Diff(current *upstream.FieldData, fields []FieldValue) string {
	before := renderState(current, fields, false)
	after := renderState(current, fields, true)
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}

// renderState writes one "Name: value" line per planned field. With desired
// set, planned values replace the current ones.
func renderState(current *upstream.FieldData, fields []FieldValue, desired bool) string {
	var sb strings.Builder
	for _, f := range fields {
		value := unset
		if current != nil {
			if v, ok := current.ValueOf(f.Name); ok {
				value = v
			}
		}
		if desired {
			value = f.Value
		}
		fmt.Fprintf(&sb, "%s: %s\n", f.Name, value)
	}
	return sb.String()
}
