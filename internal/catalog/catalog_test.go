package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Kids Ministry", "kids-ministry"},
		{"kids-ministry", "kids-ministry"},
		{"  Worship  ", "worship"},
		{"Life Group Leader", "life-group-leader"},
		{"Connect!", "connect"},
		{"A/V   Production", "a-v-production"},
		{"--usher--", "usher"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), "NormalizeKey(%q)", tt.in)
	}
}

func TestLookup_NormalizesDisplayNames(t *testing.T) {
	cat := New()

	direct, ok := cat.Lookup("kids-ministry")
	require.True(t, ok)
	display, ok := cat.Lookup("Kids Ministry")
	require.True(t, ok)
	assert.Equal(t, direct, display)
}

func TestIsValidTeam(t *testing.T) {
	cat := New()

	assert.True(t, cat.IsValidTeam("worship"))
	assert.True(t, cat.IsValidTeam("Worship"))
	assert.False(t, cat.IsValidTeam("not-a-real-team"))
	assert.False(t, cat.IsValidTeam(""))
}

func TestApplyOverrides_ReplacesWholesale(t *testing.T) {
	cat := New()

	orig, ok := cat.Lookup("worship")
	require.True(t, ok)
	require.True(t, orig.BackgroundCheck)

	// The override omits background check; wholesale replacement means it
	// must come back false, not inherited from the default.
	cat.ApplyOverrides(map[string]Profile{
		"Worship": {ChildSafety: true},
	})

	p, ok := cat.Lookup("worship")
	require.True(t, ok)
	assert.False(t, p.BackgroundCheck)
	assert.True(t, p.ChildSafety)

	// Untouched entries keep their defaults.
	elder, ok := cat.Lookup("elder")
	require.True(t, ok)
	assert.True(t, elder.PublicPresence)
}

func TestApplyOverrides_AddsNewTeams(t *testing.T) {
	cat := New()
	require.False(t, cat.IsValidTeam("camp-counselor"))

	cat.ApplyOverrides(map[string]Profile{
		"Camp Counselor": {BackgroundCheck: true, ChildSafety: true, CovenantBase: true},
	})
	assert.True(t, cat.IsValidTeam("camp-counselor"))
}

func TestApplyOverrides_SecondApplyDropsEarlierOverrides(t *testing.T) {
	cat := New()

	cat.ApplyOverrides(map[string]Profile{"camp-counselor": {ChildSafety: true}})
	cat.ApplyOverrides(map[string]Profile{"usher": {References: true}})

	// Each apply rebuilds from defaults; the first override is gone.
	assert.False(t, cat.IsValidTeam("camp-counselor"))
	p, ok := cat.Lookup("usher")
	require.True(t, ok)
	assert.True(t, p.References)
}

func TestTeams_SortedAndComplete(t *testing.T) {
	cat := New()
	teams := cat.Teams()

	require.Len(t, teams, len(defaults))
	for i := 1; i < len(teams); i++ {
		assert.Less(t, teams[i-1], teams[i])
	}
	assert.Contains(t, teams, "worship")
}

func TestDefaults_KeysAreNormalized(t *testing.T) {
	for k := range defaults {
		assert.Equal(t, NormalizeKey(k), k, "default key %q is not in normalized form", k)
	}
}
