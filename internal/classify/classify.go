package classify

import (
	"github.com/crashlab-data/pulse.report/internal/channel"
)

// Apply evaluates the full rule set against one channel and returns the role
// names it satisfies, in rule order with duplicates removed. Every rule is
// tried (classification is not first-match), so broad and narrow roles can
// both apply. A channel matching nothing gets an empty (nil) set; callers
// keep such channels for audit rather than dropping them.
//
// parsed may be nil for codes that failed structural parsing; raw-prefix
// rules still apply to those.
func Apply(code string, parsed *channel.Parsed, rules []Rule) []string {
	var roles []string
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if seen[rule.Role] {
			continue
		}
		// A role may appear in several rules (the Standard OR Variant
		// idiom), so it is only marked seen once a rule matches.
		if rule.matches(code, parsed) {
			seen[rule.Role] = true
			roles = append(roles, rule.Role)
		}
	}
	return roles
}

// HasRole reports whether role is in the classified set.
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
