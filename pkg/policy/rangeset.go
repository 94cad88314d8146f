package policy

import (
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// RangeSet is the union of the baseline and any runtime whitelist entries.
// Duplicates are allowed; membership is a plain union over all entries.
type RangeSet struct {
	ranges  []IPRange
	members *netipx.IPSet
}

// Build appends the parsed whitelist to the baseline, baseline first.
// whitelistCSV is split on commas; malformed tokens are skipped and returned as errors
// wrapping ErrInvalidRange so the caller can warn about them. Blank tokens are ignored.
func Build(baseline []IPRange, whitelistCSV string) (*RangeSet, []error) {
	set := &RangeSet{ranges: make([]IPRange, 0, len(baseline))}
	set.ranges = append(set.ranges, baseline...)

	if strings.TrimSpace(whitelistCSV) == "" {
		set.index()
		return set, nil
	}

	var skipped []error
	for _, token := range strings.Split(whitelistCSV, ",") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		r, err := ParseRange(token)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("whitelist entry %q skipped: %w", strings.TrimSpace(token), err))
			continue
		}
		set.ranges = append(set.ranges, r)
	}
	set.index()
	return set, skipped
}

// index folds the entries into one IPSet for lookups
func (s *RangeSet) index() {
	var b netipx.IPSetBuilder
	for _, r := range s.ranges {
		b.AddRange(r.r)
	}
	members, err := b.IPSet()
	if err != nil {
		s.members = nil
		return
	}
	s.members = members
}

// Contains reports whether addr falls inside any range of the set
func (s *RangeSet) Contains(addr netip.Addr) bool {
	if s.members != nil {
		return s.members.Contains(addr.Unmap())
	}
	for _, r := range s.ranges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// ContainsText parses a provider-formatted address; unparsable input is never contained
func (s *RangeSet) ContainsText(addr string) bool {
	parsed, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	return s.Contains(parsed)
}

// Ranges returns a copy of the entries in order
func (s *RangeSet) Ranges() []IPRange {
	out := make([]IPRange, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// Len returns the number of entries, duplicates included
func (s *RangeSet) Len() int {
	return len(s.ranges)
}
