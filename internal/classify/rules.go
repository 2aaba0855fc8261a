// Package classify tags raw channels with semantic roles. A rule set maps
// role names to predicates over the parsed channel fields, to raw-prefix
// shortcuts over the code string, or both. Rules are evaluated independently,
// so one channel may hold several roles at once.
package classify

import (
	"strings"

	"github.com/crashlab-data/pulse.report/internal/channel"
)

// FieldMatch is a structural predicate over parsed channel fields. Nil or
// empty members are wildcards; list members match any-of.
type FieldMatch struct {
	Object     []channel.ObjectKind
	Location   []string
	Specific   []string
	SensorType []string
	Axis       []channel.Axis
	Rank       []channel.Rank
}

// Matches reports whether the parsed channel satisfies every constrained
// field.
func (m *FieldMatch) Matches(p channel.Parsed) bool {
	if m == nil {
		return false
	}
	if len(m.Object) > 0 && !containsObject(m.Object, p.Object) {
		return false
	}
	if len(m.Location) > 0 && !containsTag(m.Location, p.Location) {
		return false
	}
	if len(m.Specific) > 0 && !containsTag(m.Specific, p.Specific) {
		return false
	}
	if len(m.SensorType) > 0 && !containsTag(m.SensorType, p.SensorType) {
		return false
	}
	if len(m.Axis) > 0 && !containsAxis(m.Axis, p.Axis) {
		return false
	}
	if len(m.Rank) > 0 && !containsRank(m.Rank, p.Rank) {
		return false
	}
	return true
}

// Rule binds one role name to a structural matcher, a raw-prefix list, or
// both. The rule matches when either side does: historically inconsistent
// codes are keyed by raw prefixes spanning several structural fields, while
// well-formed codes match on decoded fields.
type Rule struct {
	Role     string
	Match    *FieldMatch
	Prefixes []string
}

// matches evaluates one rule against a raw code and its parse. Prefix
// predicates apply to the raw string even when the code failed structural
// parsing; field predicates require a successful parse.
func (r Rule) matches(code string, parsed *channel.Parsed) bool {
	for _, prefix := range r.Prefixes {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	if parsed != nil && r.Match.Matches(*parsed) {
		return true
	}
	return false
}

func containsObject(set []channel.ObjectKind, v channel.ObjectKind) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsTag(set []string, tag channel.Tag) bool {
	for _, s := range set {
		if s == tag.Canonical {
			return true
		}
	}
	return false
}

func containsAxis(set []channel.Axis, v channel.Axis) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsRank(set []channel.Rank, v channel.Rank) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
