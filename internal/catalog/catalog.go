// Package catalog holds the team requirements catalog: a table mapping a
// normalized team key to the onboarding requirement profile for that team.
// The table starts from built-in defaults and may be replaced per key by an
// override map loaded from configuration. Readers always see a complete,
// immutable snapshot; overrides are published by swapping the whole table.
package catalog

import (
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
)

// Profile defines the onboarding requirements a single team imposes.
// The three covenant booleans form an ordinal ladder (base < moral conduct <
// public presence); they are stored independently and precedence is enforced
// by the resolver, not here.
type Profile struct {
	BackgroundCheck  bool `yaml:"background_check" json:"background_check"`
	References       bool `yaml:"references" json:"references"`
	ChildSafety      bool `yaml:"child_safety" json:"child_safety"`
	MandatedReporter bool `yaml:"mandated_reporter" json:"mandated_reporter"`
	WelcomeToOrg     bool `yaml:"welcome_to_org" json:"welcome_to_org"`

	// Growth-track flags; tracked in the catalog but not part of the
	// safety-step union.
	Membership   bool `yaml:"membership" json:"membership"`
	LifeGroup    bool `yaml:"life_group" json:"life_group"`
	Discipleship bool `yaml:"discipleship" json:"discipleship"`
	Leadership   bool `yaml:"leadership" json:"leadership"`

	CovenantBase   bool `yaml:"covenant_base" json:"covenant_base"`
	MoralConduct   bool `yaml:"moral_conduct" json:"moral_conduct"`
	PublicPresence bool `yaml:"public_presence" json:"public_presence"`
}

// Catalog is the shared requirements table. Safe for concurrent readers;
// ApplyOverrides publishes a new snapshot atomically.
type Catalog struct {
	snap   atomic.Pointer[map[string]Profile]
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for override reload reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New returns a Catalog populated with the built-in default table.
func New(opts ...Option) *Catalog {
	c := &Catalog{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	snap := make(map[string]Profile, len(defaults))
	for k, p := range defaults {
		snap[k] = p
	}
	c.snap.Store(&snap)
	return c
}

// Lookup returns the profile for a team name, normalizing the name first.
func (c *Catalog) Lookup(name string) (Profile, bool) {
	p, ok := (*c.snap.Load())[NormalizeKey(name)]
	return p, ok
}

// IsValidTeam reports whether the normalized key exists in the catalog.
func (c *Catalog) IsValidTeam(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Teams returns all catalog keys in sorted order.
func (c *Catalog) Teams() []string {
	snap := *c.snap.Load()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyOverrides publishes a new snapshot built from the defaults with each
// override entry replacing its default wholesale. Keys are normalized, so an
// override written as "Kids Ministry" lands on the same entry as
// "kids-ministry". Readers never observe a partially merged table.
func (c *Catalog) ApplyOverrides(overrides map[string]Profile) {
	snap := make(map[string]Profile, len(defaults)+len(overrides))
	for k, p := range defaults {
		snap[k] = p
	}
	for k, p := range overrides {
		snap[NormalizeKey(k)] = p
	}
	c.snap.Store(&snap)
	c.logger.Debug("catalog overrides applied", "overrides", len(overrides), "teams", len(snap))
}

// NormalizeKey converts an arbitrary display name to catalog key form:
// lowercase, words joined by a single hyphen, no leading or trailing hyphen.
func NormalizeKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			if b.Len() > 0 {
				pendingHyphen = true
			}
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
