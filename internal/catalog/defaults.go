package catalog

// defaults is the built-in team table. Keys are already in normalized form.
// Override entries from configuration replace these wholesale per key.
var defaults = map[string]Profile{
	"worship": {
		BackgroundCheck: true,
		ChildSafety:     true,
		Membership:      true,
		MoralConduct:    true,
	},
	"connect": {
		BackgroundCheck: true,
		WelcomeToOrg:    true,
		Membership:      true,
		MoralConduct:    true,
	},
	"parking": {
		WelcomeToOrg: true,
	},
	"usher": {
		WelcomeToOrg: true,
	},
	"greeter": {
		WelcomeToOrg: true,
	},
	"hospitality": {
		WelcomeToOrg: true,
	},
	"kids-ministry": {
		BackgroundCheck:  true,
		References:       true,
		ChildSafety:      true,
		MandatedReporter: true,
		CovenantBase:     true,
	},
	"nursery": {
		BackgroundCheck:  true,
		References:       true,
		ChildSafety:      true,
		MandatedReporter: true,
		CovenantBase:     true,
	},
	"youth": {
		BackgroundCheck:  true,
		References:       true,
		ChildSafety:      true,
		MandatedReporter: true,
		Membership:       true,
		MoralConduct:     true,
	},
	"production": {
		WelcomeToOrg: true,
		CovenantBase: true,
	},
	"prayer": {
		Membership:   true,
		LifeGroup:    true,
		MoralConduct: true,
	},
	"security": {
		BackgroundCheck: true,
		References:      true,
		CovenantBase:    true,
	},
	"life-group-leader": {
		Membership:   true,
		LifeGroup:    true,
		Discipleship: true,
		Leadership:   true,
		MoralConduct: true,
	},
	"deacon": {
		BackgroundCheck: true,
		References:      true,
		Membership:      true,
		Leadership:      true,
		MoralConduct:    true,
	},
	"elder": {
		BackgroundCheck: true,
		References:      true,
		Membership:      true,
		Discipleship:    true,
		Leadership:      true,
		PublicPresence:  true,
	},
}
