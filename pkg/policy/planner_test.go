package policy

import (
	"testing"
	"time"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(day string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse("2006-01-02", day)
		return t.Add(13 * time.Hour)
	}
}

func TestClassify(t *testing.T) {
	set, _ := Build(DefaultPolicy().Baseline(), "10.0.0.0/24")

	rules := []core.FirewallRule{
		{Name: "azure", StartIP: "0.0.0.0", EndIP: "0.0.0.0"},
		{Name: "outside", StartIP: "8.8.8.8", EndIP: "8.8.8.8"},
		{Name: "start-only", StartIP: "1.1.1.90", EndIP: "1.1.1.120"},
		{Name: "end-only", StartIP: "1.1.0.250", EndIP: "1.1.1.5"},
		{Name: "whitelisted", StartIP: "10.0.0.1", EndIP: "10.0.0.200"},
		{Name: "spans-two", StartIP: "1.1.1.1", EndIP: "5.17.22.10"},
		{Name: "broken", StartIP: "nope", EndIP: "1.1.1.1"},
	}

	got := Classify(rules, set)
	require.Len(t, got, len(rules))

	want := []Verdict{Compliant, OutOfRange, OutOfRange, OutOfRange, Compliant, Compliant, OutOfRange}
	for i, c := range got {
		assert.Equal(t, rules[i], c.Rule, "order must be preserved")
		assert.Equal(t, want[i], c.Verdict, c.Rule.Name)
	}

	offenses := Offenses(got)
	require.Len(t, offenses, 4)
	assert.Equal(t, "outside", offenses[0].Rule.Name)
}

func TestFindMissing(t *testing.T) {
	baseline := DefaultPolicy().Baseline()

	t.Run("all missing", func(t *testing.T) {
		missing := FindMissing([]core.FirewallRule{{Name: "x", StartIP: "8.8.8.8", EndIP: "8.8.8.8"}}, baseline)
		require.Len(t, missing, 10)
		assert.Equal(t, baseline[0].String(), missing[0].String())
		assert.Equal(t, "20.24.94.0 - 20.24.94.215", missing[9].String())
	})

	t.Run("idempotent once baseline is present", func(t *testing.T) {
		var current []core.FirewallRule
		for _, r := range baseline {
			current = append(current, core.FirewallRule{Name: r.Label(), StartIP: r.Start().String(), EndIP: r.End().String()})
		}
		assert.Empty(t, FindMissing(current, baseline))
		assert.Empty(t, FindMissing(current, baseline))
	})

	t.Run("overlap is not a textual match", func(t *testing.T) {
		current := []core.FirewallRule{{Name: "wider", StartIP: "1.1.1.0", EndIP: "1.1.1.255"}}
		missing := FindMissing(current, baseline)
		assert.Len(t, missing, 10)
	})

	t.Run("exact match satisfies only that range", func(t *testing.T) {
		current := []core.FirewallRule{{Name: "anything", StartIP: "5.17.22.0", EndIP: "5.17.22.255"}}
		missing := FindMissing(current, baseline)
		require.Len(t, missing, 9)
		for _, r := range missing {
			assert.NotEqual(t, "5.17.22.0 - 5.17.22.255", r.String())
		}
	})
}

func TestNameForRange(t *testing.T) {
	planner := NewPlanner(DefaultPolicy(), fixedClock("2024-01-01"))

	table := map[string]string{
		"0.0.0.0 - 0.0.0.0":               "Allow All Azure Traffic",
		"1.1.1.1 - 1.1.1.95":              "Teddys house",
		"96.0.10.1 - 96.0.10.5":           "Stadium traffic",
		"200.180.170.30 - 208.180.170.60": "The roxy",
		"5.17.22.0 - 5.17.22.255":         "Pickle stand",
		"1.14.75.16 - 1.14.75.175":        "Costco",
		"92.16.238.144 - 92.16.238.159":   "Starbucks",
		"7.9.139.48 - 7.9.139.63":         "Satelite office",
		"16.72.66.128 - 16.72.66.143":     "Teddys moms",
	}
	for text, name := range table {
		r, err := ParseRange(text)
		require.NoError(t, err)
		assert.Equal(t, name, planner.NameForRange(r), text)
	}

	t.Run("unlisted ranges get the dated fallback", func(t *testing.T) {
		r, _ := ParseRange("9.9.9.9 - 9.9.9.9")
		assert.Equal(t, "Some Public IP Space 2024-01-01", planner.NameForRange(r))

		unnamedBaseline, _ := ParseRange("20.24.94.0 - 20.24.94.215")
		assert.Equal(t, "Some Public IP Space 2024-01-01", planner.NameForRange(unnamedBaseline))
	})

	t.Run("same-day fallbacks collide", func(t *testing.T) {
		a, _ := ParseRange("9.9.9.9")
		b, _ := ParseRange("9.9.9.10")
		assert.Equal(t, planner.NameForRange(a), planner.NameForRange(b))
	})
}

func TestPlanner_EndToEnd(t *testing.T) {
	pol := DefaultPolicy()
	set, _ := Build(pol.Baseline(), "")
	planner := NewPlanner(pol, fixedClock("2024-01-01"))

	rules := []core.FirewallRule{{Name: "google", StartIP: "8.8.8.8", EndIP: "8.8.8.8"}}

	for _, enabled := range []bool{true, false} {
		classified := Classify(rules, set)
		deletions := planner.PlanDeletions(classified, enabled)
		creations := planner.PlanCreations(FindMissing(rules, pol.Baseline()), enabled)

		require.Len(t, deletions, 1)
		assert.Equal(t, DeleteRule, deletions[0].Kind)
		assert.Equal(t, "google", deletions[0].Rule.Name)
		assert.Equal(t, enabled, deletions[0].Enabled)

		require.Len(t, creations, 10)
		assert.Equal(t, "Allow All Azure Traffic", creations[0].Name)
		assert.Equal(t, "Some Public IP Space 2024-01-01", creations[9].Name)
		for _, a := range creations {
			assert.Equal(t, CreateRule, a.Kind)
			assert.Equal(t, enabled, a.Enabled)
		}
	}
}

func TestPlanDeletions_CompliantIgnored(t *testing.T) {
	planner := NewPlanner(DefaultPolicy(), nil)
	classified := []Classification{
		{Rule: core.FirewallRule{Name: "ok"}, Verdict: Compliant},
		{Rule: core.FirewallRule{Name: "bad"}, Verdict: OutOfRange},
	}
	actions := planner.PlanDeletions(classified, false)
	require.Len(t, actions, 1)
	assert.Equal(t, "bad", actions[0].Rule.Name)
	assert.False(t, actions[0].Enabled)
}

func TestParsePolicy(t *testing.T) {
	t.Run("valid file replaces baseline", func(t *testing.T) {
		pol, err := ParsePolicy([]byte(`
baseline:
  - range: "0.0.0.0 - 0.0.0.0"
    name: "Allow All Azure Traffic"
  - range: "10.1.0.0/16"
    name: "Office"
  - range: "10.9.9.9"
`))
		require.NoError(t, err)
		baseline := pol.Baseline()
		require.Len(t, baseline, 3)
		assert.Equal(t, "10.1.0.0 - 10.1.255.255", baseline[1].String())

		planner := NewPlanner(pol, fixedClock("2025-06-30"))
		assert.Equal(t, "Office", planner.NameForRange(baseline[1]))
		assert.Equal(t, "Some Public IP Space 2025-06-30", planner.NameForRange(baseline[2]))
	})

	t.Run("malformed entry fails", func(t *testing.T) {
		_, err := ParsePolicy([]byte("baseline:\n  - range: \"not-an-ip\"\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("empty baseline fails", func(t *testing.T) {
		_, err := ParsePolicy([]byte("baseline: []\n"))
		assert.Error(t, err)
	})

	t.Run("round trip of the default policy", func(t *testing.T) {
		file := DefaultPolicy().ToFile()
		require.Len(t, file.Baseline, 10)
		assert.Equal(t, "Teddys house", file.Baseline[1].Name)
		assert.Empty(t, file.Baseline[9].Name)
	})
}
