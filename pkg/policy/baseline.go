package policy

// Policy is the immutable allowlist shipped with a run: the baseline ranges in order,
// each optionally labelled. Labels double as the rule names used when a missing
// baseline range is recreated.
type Policy struct {
	baseline []IPRange
	names    map[string]string
}

// NewPolicy copies baseline so later changes to the caller's slice are not observed
func NewPolicy(baseline []IPRange) Policy {
	p := Policy{
		baseline: make([]IPRange, len(baseline)),
		names:    make(map[string]string, len(baseline)),
	}
	copy(p.baseline, baseline)
	for _, r := range baseline {
		if r.Label() == "" {
			continue
		}
		if _, exists := p.names[r.String()]; !exists {
			p.names[r.String()] = r.Label()
		}
	}
	return p
}

// DefaultPolicy returns the approved public ranges.
// 0.0.0.0 - 0.0.0.0 is the Azure convention for "any Azure service".
func DefaultPolicy() Policy {
	return NewPolicy([]IPRange{
		MustParseRange("0.0.0.0 - 0.0.0.0", "Allow All Azure Traffic"),
		MustParseRange("1.1.1.1 - 1.1.1.95", "Teddys house"),
		MustParseRange("96.0.10.1 - 96.0.10.5", "Stadium traffic"),
		MustParseRange("200.180.170.30 - 208.180.170.60", "The roxy"),
		MustParseRange("5.17.22.0 - 5.17.22.255", "Pickle stand"),
		MustParseRange("1.14.75.16 - 1.14.75.175", "Costco"),
		MustParseRange("92.16.238.144 - 92.16.238.159", "Starbucks"),
		MustParseRange("7.9.139.48 - 7.9.139.63", "Satelite office"),
		MustParseRange("16.72.66.128 - 16.72.66.143", "Teddys moms"),
		MustParseRange("20.24.94.0 - 20.24.94.215", ""),
	})
}

// Baseline returns a copy of the baseline ranges in declaration order
func (p Policy) Baseline() []IPRange {
	out := make([]IPRange, len(p.baseline))
	copy(out, p.baseline)
	return out
}

// name looks up the fixed rule name for a range by its exact "start - end" text
func (p Policy) name(rangeText string) (string, bool) {
	n, ok := p.names[rangeText]
	return n, ok
}
