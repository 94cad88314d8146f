package policy

import (
	"github.com/guardian-nexus/sqlfw-auditor/pkg/core"
)

// Verdict is the compliance outcome for a single firewall rule
type Verdict int

const (
	Compliant Verdict = iota
	OutOfRange
)

func (v Verdict) String() string {
	switch v {
	case Compliant:
		return "COMPLIANT"
	case OutOfRange:
		return "OUT_OF_RANGE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets verdicts appear by name in JSON reports
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Classification pairs a rule with its verdict
type Classification struct {
	Rule    core.FirewallRule
	Verdict Verdict
}

// Classify returns one verdict per rule in input order. A rule is out of range when
// either endpoint is outside every approved range, or does not parse as an address.
func Classify(rules []core.FirewallRule, ranges *RangeSet) []Classification {
	out := make([]Classification, 0, len(rules))
	for _, rule := range rules {
		verdict := Compliant
		if !ranges.ContainsText(rule.StartIP) || !ranges.ContainsText(rule.EndIP) {
			verdict = OutOfRange
		}
		out = append(out, Classification{Rule: rule, Verdict: verdict})
	}
	return out
}

// FindMissing returns the baseline ranges whose "start - end" text does not match any
// current rule. Matching is textual: an overlapping rule written differently
// does not satisfy a baseline range. Whitelist entries are never candidates.
func FindMissing(current []core.FirewallRule, baseline []IPRange) []IPRange {
	present := make(map[string]struct{}, len(current))
	for _, rule := range current {
		present[rule.Range()] = struct{}{}
	}

	var missing []IPRange
	for _, r := range baseline {
		if _, ok := present[r.String()]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// Offenses filters a classification down to the out-of-range rules
func Offenses(classified []Classification) []Classification {
	var out []Classification
	for _, c := range classified {
		if c.Verdict == OutOfRange {
			out = append(out, c)
		}
	}
	return out
}
