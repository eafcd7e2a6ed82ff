// Package plan turns resolved requirements into upstream field writes. A plan
// is the list of field name/value pairs that should be true for a person;
// applying it upserts each field independently, and the dry-run renderer
// shows the change as a diff before anything is written.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dshills/onboard/internal/resolve"
)

// Upstream field display names for each onboarding step.
const (
	FieldBackgroundCheck  = "Background Check"
	FieldReferences       = "References"
	FieldChildSafety      = "Child Safety Training"
	FieldMandatedReporter = "Mandated Reporter Training"
	FieldWelcomeToOrg     = "Welcome Class"
	FieldCovenant         = "Covenant Level"
	FieldMembership       = "Membership Class"
	FieldLifeGroup        = "Life Group"
	FieldDiscipleship     = "Discipleship Track"
	FieldLeadership       = "Leadership Track"
)

// requiredValue marks a step field as owed by the volunteer.
const requiredValue = "Required"

// FieldValue is one desired upstream field state.
type FieldValue struct {
	Name  string
	Value string
}

// Build maps resolved steps onto the upstream fields they correspond to, in a
// fixed order. Only owed steps produce entries; the covenant entry carries
// the tier name.
func Build(steps resolve.Steps, growth resolve.GrowthSteps) []FieldValue {
	var fields []FieldValue
	add := func(required bool, name string) {
		if required {
			fields = append(fields, FieldValue{Name: name, Value: requiredValue})
		}
	}
	add(steps.BackgroundCheck, FieldBackgroundCheck)
	add(steps.References, FieldReferences)
	add(steps.ChildSafety, FieldChildSafety)
	add(steps.MandatedReporter, FieldMandatedReporter)
	add(steps.WelcomeToOrg, FieldWelcomeToOrg)
	if steps.Covenant != resolve.CovenantNone {
		fields = append(fields, FieldValue{
			Name:  FieldCovenant,
			Value: fmt.Sprintf("Level %d (%s)", int(steps.Covenant), steps.Covenant),
		})
	}
	add(growth.Membership, FieldMembership)
	add(growth.LifeGroup, FieldLifeGroup)
	add(growth.Discipleship, FieldDiscipleship)
	add(growth.Leadership, FieldLeadership)
	return fields
}

// Syncer is the single-field upsert surface of the upstream client.
type Syncer interface {
	UpsertField(ctx context.Context, personID, fieldName, value string) error
}

// Apply upserts every planned field for a person. Fields are independent: a
// failure on one is logged and collected but never blocks the rest. The
// joined error carries one entry per failed field.
func Apply(ctx context.Context, s Syncer, logger *slog.Logger, personID string, fields []FieldValue) error {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, f := range fields {
		if err := s.UpsertField(ctx, personID, f.Name, f.Value); err != nil {
			logger.Warn("field sync failed",
				"person_id", personID,
				"field", f.Name,
				"error", err)
			errs = append(errs, fmt.Errorf("field %q: %w", f.Name, err))
			continue
		}
		logger.Debug("field synced", "person_id", personID, "field", f.Name)
	}
	return errors.Join(errs...)
}
