package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/onboard/internal/upstream"
)

func snapshotWith(values map[string]string) *upstream.FieldData {
	snap := &upstream.FieldData{}
	i := 0
	for name, value := range values {
		id := string(rune('a' + i))
		snap.Definitions = append(snap.Definitions, upstream.FieldDefinition{ID: id, Name: name})
		snap.Data = append(snap.Data, upstream.FieldDatum{ID: "d-" + id, Value: value, DefinitionID: id})
		i++
	}
	return snap
}

func TestDiff_EmptyWhenSatisfied(t *testing.T) {
	snap := snapshotWith(map[string]string{FieldBackgroundCheck: "Required"})
	fields := []FieldValue{{FieldBackgroundCheck, "Required"}}
	assert.Empty(t, Diff(snap, fields))
}

func TestDiff_ShowsUnsetToRequired(t *testing.T) {
	snap := &upstream.FieldData{}
	fields := []FieldValue{{FieldBackgroundCheck, "Required"}}

	out := Diff(snap, fields)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "Required")
}

func TestDiff_ShowsValueChange(t *testing.T) {
	snap := snapshotWith(map[string]string{FieldCovenant: "Level 1 (base)"})
	fields := []FieldValue{{FieldCovenant, "Level 2 (moral-conduct)"}}

	out := Diff(snap, fields)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "@@", "output is in patch format")
}
