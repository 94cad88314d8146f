package policy

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		token     string
		wantStart string
		wantEnd   string
	}{
		{"1.1.1.1 - 1.1.1.95", "1.1.1.1", "1.1.1.95"},
		{"1.1.1.1-1.1.1.95", "1.1.1.1", "1.1.1.95"},
		{"  10.0.0.1   -   10.0.0.9 ", "10.0.0.1", "10.0.0.9"},
		{"10.0.0.7", "10.0.0.7", "10.0.0.7"},
		{"10.0.0.0/30", "10.0.0.0", "10.0.0.3"},
		{"10.0.0.9/24", "10.0.0.0", "10.0.0.255"},
		{"172.16.0.0/12", "172.16.0.0", "172.31.255.255"},
		{"0.0.0.0/0", "0.0.0.0", "255.255.255.255"},
		{"2001:db8::/126", "2001:db8::", "2001:db8::3"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			r, err := ParseRange(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, r.Start().String())
			assert.Equal(t, tt.wantEnd, r.End().String())
			assert.Empty(t, r.Label())
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, token := range []string{
		"",
		"not-an-ip",
		"1.1.1.1 - ",
		"10.0.0.9 - 10.0.0.1",
		"10.0.0.1 - 2001:db8::1",
		"10.0.0.0/33",
		"300.1.1.1",
	} {
		t.Run(token, func(t *testing.T) {
			_, err := ParseRange(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRange))
		})
	}
}

func TestIPRange_String(t *testing.T) {
	r := MustParseRange("200.180.170.30-208.180.170.60", "The roxy")
	assert.Equal(t, "200.180.170.30 - 208.180.170.60", r.String())
	assert.Equal(t, "The roxy", r.Label())
}

func TestRangeSet_Contains(t *testing.T) {
	set, skipped := Build(DefaultPolicy().Baseline(), "")
	require.Empty(t, skipped)
	require.Equal(t, 10, set.Len())

	t.Run("inclusive bounds", func(t *testing.T) {
		assert.True(t, set.ContainsText("1.1.1.1"))
		assert.True(t, set.ContainsText("1.1.1.95"))
		assert.True(t, set.ContainsText("1.1.1.50"))
		assert.False(t, set.ContainsText("1.1.1.96"))
		assert.False(t, set.ContainsText("1.1.1.0"))
	})

	t.Run("single address range", func(t *testing.T) {
		assert.True(t, set.ContainsText("0.0.0.0"))
		assert.False(t, set.ContainsText("0.0.0.1"))
	})

	t.Run("range spanning octets", func(t *testing.T) {
		assert.True(t, set.ContainsText("204.1.2.3"))
		assert.True(t, set.ContainsText("200.180.170.30"))
		assert.False(t, set.ContainsText("200.180.170.29"))
		assert.True(t, set.ContainsText("208.180.170.60"))
		assert.False(t, set.ContainsText("208.180.170.61"))
	})

	t.Run("outside every range", func(t *testing.T) {
		assert.False(t, set.ContainsText("8.8.8.8"))
		assert.False(t, set.Contains(netip.MustParseAddr("9.9.9.9")))
	})

	t.Run("unparsable and other family", func(t *testing.T) {
		assert.False(t, set.ContainsText("garbage"))
		assert.False(t, set.ContainsText(""))
		assert.False(t, set.ContainsText("::"))
	})

	t.Run("ipv4-mapped ipv6 is unmapped", func(t *testing.T) {
		assert.True(t, set.Contains(netip.MustParseAddr("::ffff:1.1.1.10")))
	})
}

func TestBuild_Whitelist(t *testing.T) {
	baseline := DefaultPolicy().Baseline()

	t.Run("appends after baseline in order", func(t *testing.T) {
		set, skipped := Build(baseline, "10.0.0.0/30, 10.0.1.5,192.168.0.1 - 192.168.0.10")
		require.Empty(t, skipped)
		require.Equal(t, 13, set.Len())

		ranges := set.Ranges()
		assert.Equal(t, baseline[0].String(), ranges[0].String())
		assert.Equal(t, "10.0.0.0 - 10.0.0.3", ranges[10].String())
		assert.Equal(t, "10.0.1.5 - 10.0.1.5", ranges[11].String())
		assert.Equal(t, "192.168.0.1 - 192.168.0.10", ranges[12].String())

		for _, ip := range []string{"10.0.0.0", "10.0.0.3", "10.0.1.5", "192.168.0.7"} {
			assert.True(t, set.ContainsText(ip), ip)
		}
		for _, ip := range []string{"10.0.0.4", "10.0.1.4", "10.0.1.6", "192.168.0.11"} {
			assert.False(t, set.ContainsText(ip), ip)
		}
	})

	t.Run("malformed token skipped, rest kept", func(t *testing.T) {
		set, skipped := Build(baseline, "10.0.0.1 - 10.0.0.2,not-an-ip,10.0.0.9 - 10.0.0.3, 10.5.5.5")
		require.Len(t, skipped, 2)
		for _, err := range skipped {
			assert.True(t, errors.Is(err, ErrInvalidRange))
		}
		assert.Contains(t, skipped[0].Error(), "not-an-ip")
		assert.Equal(t, 12, set.Len())
		assert.True(t, set.ContainsText("10.0.0.2"))
		assert.True(t, set.ContainsText("10.5.5.5"))
		assert.False(t, set.ContainsText("10.0.0.5"))
	})

	t.Run("blank tokens ignored", func(t *testing.T) {
		set, skipped := Build(baseline, " , 10.0.0.1,, ")
		assert.Empty(t, skipped)
		assert.Equal(t, 11, set.Len())
	})

	t.Run("duplicates tolerated", func(t *testing.T) {
		set, skipped := Build(baseline, "1.1.1.1 - 1.1.1.95,1.1.1.1 - 1.1.1.95")
		assert.Empty(t, skipped)
		assert.Equal(t, 12, set.Len())
		assert.True(t, set.ContainsText("1.1.1.2"))
	})

	t.Run("baseline slice is not aliased", func(t *testing.T) {
		local := DefaultPolicy().Baseline()
		set, _ := Build(local, "")
		local[0] = MustParseRange("8.8.8.8", "")
		assert.True(t, set.ContainsText("0.0.0.0"))
		assert.False(t, set.ContainsText("8.8.8.8"))
	})
}
