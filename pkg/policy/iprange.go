package policy

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ErrInvalidRange is returned for any token that does not describe a usable address range
var ErrInvalidRange = errors.New("invalid IP range")

// IPRange is an inclusive address range with an optional human label.
// The zero value is not a valid range; build one with NewIPRange or ParseRange.
type IPRange struct {
	r     netipx.IPRange
	label string
}

// NewIPRange validates that both bounds share an address family and start <= end
func NewIPRange(start, end netip.Addr, label string) (IPRange, error) {
	if !start.IsValid() || !end.IsValid() {
		return IPRange{}, fmt.Errorf("%w: missing address", ErrInvalidRange)
	}
	start, end = start.Unmap(), end.Unmap()
	if start.Is4() != end.Is4() {
		return IPRange{}, fmt.Errorf("%w: %s and %s are different address families", ErrInvalidRange, start, end)
	}
	if start.Compare(end) > 0 {
		return IPRange{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return IPRange{r: netipx.IPRangeFrom(start, end), label: label}, nil
}

// MustParseRange is ParseRange for compile-time tables; it panics on bad input.
func MustParseRange(token, label string) IPRange {
	r, err := ParseRange(token)
	if err != nil {
		panic(err)
	}
	r.label = label
	return r
}

// ParseRange accepts "a - b", "a-b", a CIDR prefix "a/nn" or a single address "a".
// Whitespace around the hyphen and each address is ignored.
func ParseRange(token string) (IPRange, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return IPRange{}, fmt.Errorf("%w: empty token", ErrInvalidRange)
	}

	if strings.Contains(token, "/") {
		prefix, err := netip.ParsePrefix(token)
		if err != nil {
			return IPRange{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, token, err)
		}
		r := netipx.RangeOfPrefix(prefix.Masked())
		return NewIPRange(r.From(), r.To(), "")
	}

	startText, endText, found := strings.Cut(token, "-")
	if !found {
		endText = startText
	}

	start, err := netip.ParseAddr(strings.TrimSpace(startText))
	if err != nil {
		return IPRange{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, token, err)
	}
	end, err := netip.ParseAddr(strings.TrimSpace(endText))
	if err != nil {
		return IPRange{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, token, err)
	}
	return NewIPRange(start, end, "")
}

// Start returns the lower bound
func (r IPRange) Start() netip.Addr { return r.r.From() }

// End returns the upper bound
func (r IPRange) End() netip.Addr { return r.r.To() }

// Label returns the human label, empty for whitelist entries
func (r IPRange) Label() string { return r.label }

// Contains reports whether addr lies within the inclusive bounds.
// Addresses of the other family are never contained.
func (r IPRange) Contains(addr netip.Addr) bool {
	return r.r.Contains(addr.Unmap())
}

// MarshalText renders the range as String does; the zero range renders empty
func (r IPRange) MarshalText() ([]byte, error) {
	if !r.r.IsValid() {
		return []byte{}, nil
	}
	return []byte(r.String()), nil
}

// String renders the canonical "start - end" form used for rule matching and naming
func (r IPRange) String() string {
	return fmt.Sprintf("%s - %s", r.r.From(), r.r.To())
}
