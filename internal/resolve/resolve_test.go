package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/onboard/internal/catalog"
)

func TestCovenantLevelFor_TopTierShortCircuits(t *testing.T) {
	cat := catalog.New()

	// Order must not matter: elder carries public presence.
	assert.Equal(t, CovenantPublicPresence, CovenantLevelFor(cat, []string{"elder", "parking"}))
	assert.Equal(t, CovenantPublicPresence, CovenantLevelFor(cat, []string{"parking", "elder"}))
}

func TestCovenantLevelFor_RunningMaxUpgrades(t *testing.T) {
	cat := catalog.New()

	// kids-ministry sets base first; worship's moral conduct must upgrade it.
	assert.Equal(t, CovenantMoralConduct, CovenantLevelFor(cat, []string{"kids-ministry", "worship"}))
	assert.Equal(t, CovenantMoralConduct, CovenantLevelFor(cat, []string{"worship", "kids-ministry"}))
}

func TestCovenantLevelFor_NoDemand(t *testing.T) {
	cat := catalog.New()

	assert.Equal(t, CovenantNone, CovenantLevelFor(cat, []string{"parking", "usher"}))
	assert.Equal(t, CovenantNone, CovenantLevelFor(cat, nil))
	assert.Equal(t, CovenantNone, CovenantLevelFor(cat, []string{"not-a-real-team"}))
}

func TestRequiredSteps_UnknownTeamsContributeNothing(t *testing.T) {
	cat := catalog.New()

	steps := RequiredSteps(cat, []string{"not-a-real-team"}, nil)
	assert.Equal(t, Steps{}, steps)
}

func TestRequiredSteps_FlagsAreUnionAndMonotonic(t *testing.T) {
	cat := catalog.New()

	base := RequiredSteps(cat, []string{"parking"}, nil)
	wider := RequiredSteps(cat, []string{"parking", "kids-ministry"}, nil)

	// Adding a team never lowers a required flag.
	if base.WelcomeToOrg && !wider.WelcomeToOrg {
		t.Error("adding a team lowered WelcomeToOrg")
	}
	assert.True(t, wider.BackgroundCheck)
	assert.True(t, wider.References)
	assert.True(t, wider.ChildSafety)
	assert.True(t, wider.MandatedReporter)
	assert.True(t, wider.WelcomeToOrg)
}

func TestRequiredSteps_WorshipScenario(t *testing.T) {
	cat := catalog.New()

	steps := RequiredSteps(cat, []string{"worship"}, nil)
	assert.True(t, steps.BackgroundCheck)
	assert.True(t, steps.ChildSafety)
	assert.False(t, steps.References)
	assert.False(t, steps.MandatedReporter)
	assert.Equal(t, CovenantMoralConduct, steps.Covenant)
}

func TestRequiredSteps_ConnectParkingScenario(t *testing.T) {
	cat := catalog.New()

	steps := RequiredSteps(cat, []string{"connect", "parking"}, nil)

	// Union of connect's and parking's flags; covenant from connect only.
	assert.True(t, steps.BackgroundCheck)
	assert.True(t, steps.WelcomeToOrg)
	assert.False(t, steps.ChildSafety)
	assert.Equal(t, CovenantMoralConduct, steps.Covenant)
}

func TestRequiredSteps_UsherIgnoresCompletedCovenant(t *testing.T) {
	cat := catalog.New()

	// usher demands no covenant, so completed elder credit changes nothing.
	steps := RequiredSteps(cat, []string{"usher"}, []string{"elder"})
	assert.Equal(t, CovenantNone, steps.Covenant)
	assert.True(t, steps.WelcomeToOrg)
}

func TestRequiredSteps_CompletedCreditCancelsAtOrAboveTier(t *testing.T) {
	cat := catalog.New()

	tests := []struct {
		name      string
		active    []string
		completed []string
		want      CovenantLevel
	}{
		{"equal tier satisfied", []string{"worship"}, []string{"connect"}, CovenantNone},
		{"higher tier satisfied", []string{"worship"}, []string{"elder"}, CovenantNone},
		{"lower tier does not excuse", []string{"worship"}, []string{"kids-ministry"}, CovenantMoralConduct},
		{"no credit leaves demand", []string{"worship"}, []string{"parking"}, CovenantMoralConduct},
		{"no demand stays null", []string{"parking"}, []string{"elder"}, CovenantNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := RequiredSteps(cat, tt.active, tt.completed)
			assert.Equal(t, tt.want, steps.Covenant)
		})
	}
}

func TestRequiredGrowth_Union(t *testing.T) {
	cat := catalog.New()

	g := RequiredGrowth(cat, []string{"prayer", "elder"})
	assert.True(t, g.Membership)
	assert.True(t, g.LifeGroup)
	assert.True(t, g.Discipleship)
	assert.True(t, g.Leadership)

	assert.Equal(t, GrowthSteps{}, RequiredGrowth(cat, []string{"parking", "nope"}))
}

func TestCovenantLevel_JSON(t *testing.T) {
	b, err := CovenantNone.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "null", string(b))

	b, err = CovenantPublicPresence.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "3", string(b))
}

func TestCovenantLevel_String(t *testing.T) {
	assert.Equal(t, "none", CovenantNone.String())
	assert.Equal(t, "base", CovenantBase.String())
	assert.Equal(t, "moral-conduct", CovenantMoralConduct.String())
	assert.Equal(t, "public-presence", CovenantPublicPresence.String())
}
