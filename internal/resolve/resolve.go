// Package resolve computes a volunteer's required onboarding steps from team
// memberships. Step flags are additive across teams (a volunteer on two teams
// owes the union), while the covenant requirement is an ordinal ladder: the
// highest tier demanded by any active team wins, and prior covenant credit
// only cancels the demand when it meets or exceeds the currently required
// tier. All functions are pure over the supplied catalog snapshot.
package resolve

import (
	"encoding/json"

	"github.com/dshills/onboard/internal/catalog"
)

// CovenantLevel is the ordinal covenant tier. Zero means no covenant is
// required (serialized as JSON null).
type CovenantLevel int

const (
	CovenantNone           CovenantLevel = 0
	CovenantBase           CovenantLevel = 1
	CovenantMoralConduct   CovenantLevel = 2
	CovenantPublicPresence CovenantLevel = 3
)

// String returns a display name for the level.
func (l CovenantLevel) String() string {
	switch l {
	case CovenantBase:
		return "base"
	case CovenantMoralConduct:
		return "moral-conduct"
	case CovenantPublicPresence:
		return "public-presence"
	default:
		return "none"
	}
}

// MarshalJSON emits the tier number, or null when no covenant is required.
func (l CovenantLevel) MarshalJSON() ([]byte, error) {
	if l == CovenantNone {
		return []byte("null"), nil
	}
	return json.Marshal(int(l))
}

// Steps is the consolidated requirement set for one volunteer, recomputed on
// every resolution from current memberships and completions.
type Steps struct {
	BackgroundCheck  bool          `json:"background_check"`
	References       bool          `json:"references"`
	ChildSafety      bool          `json:"child_safety"`
	MandatedReporter bool          `json:"mandated_reporter"`
	WelcomeToOrg     bool          `json:"welcome_to_org"`
	Covenant         CovenantLevel `json:"covenant"`
}

// GrowthSteps is the union of growth-track flags across active teams.
type GrowthSteps struct {
	Membership   bool `json:"membership"`
	LifeGroup    bool `json:"life_group"`
	Discipleship bool `json:"discipleship"`
	Leadership   bool `json:"leadership"`
}

// CovenantLevelFor returns the highest covenant tier demanded by any of the
// given teams. The top tier short-circuits; below it a running maximum is
// kept, so a moral-conduct team upgrades a previously seen base-tier team
// regardless of iteration order. Unknown team keys contribute nothing.
func CovenantLevelFor(cat *catalog.Catalog, teams []string) CovenantLevel {
	level := CovenantNone
	for _, team := range teams {
		p, ok := cat.Lookup(team)
		if !ok {
			continue
		}
		if p.PublicPresence {
			return CovenantPublicPresence
		}
		if p.MoralConduct && level < CovenantMoralConduct {
			level = CovenantMoralConduct
		}
		if p.CovenantBase && level < CovenantBase {
			level = CovenantBase
		}
	}
	return level
}

// RequiredSteps computes the consolidated steps for a volunteer from active
// and already-completed team keys. Step flags are the OR across active teams.
// The covenant output is the highest tier demanded by active teams, nulled
// out when the tier attained through completed teams already meets or exceeds
// it; a previously completed lower covenant never excuses a newly required
// higher one. Unknown team keys are silently ignored.
func RequiredSteps(cat *catalog.Catalog, active, completed []string) Steps {
	var steps Steps
	for _, team := range active {
		p, ok := cat.Lookup(team)
		if !ok {
			continue
		}
		steps.BackgroundCheck = steps.BackgroundCheck || p.BackgroundCheck
		steps.References = steps.References || p.References
		steps.ChildSafety = steps.ChildSafety || p.ChildSafety
		steps.MandatedReporter = steps.MandatedReporter || p.MandatedReporter
		steps.WelcomeToOrg = steps.WelcomeToOrg || p.WelcomeToOrg
	}

	needed := CovenantLevelFor(cat, active)
	attained := CovenantLevelFor(cat, completed)
	if needed != CovenantNone && attained != CovenantNone && attained >= needed {
		steps.Covenant = CovenantNone
	} else {
		steps.Covenant = needed
	}
	return steps
}

// RequiredGrowth computes the union of growth-track flags across active
// teams. Growth steps carry no completion credit; they are informational.
func RequiredGrowth(cat *catalog.Catalog, active []string) GrowthSteps {
	var g GrowthSteps
	for _, team := range active {
		p, ok := cat.Lookup(team)
		if !ok {
			continue
		}
		g.Membership = g.Membership || p.Membership
		g.LifeGroup = g.LifeGroup || p.LifeGroup
		g.Discipleship = g.Discipleship || p.Discipleship
		g.Leadership = g.Leadership || p.Leadership
	}
	return g
}
