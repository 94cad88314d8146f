package policy

import (
	"fmt"
	"time"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/core"
)

// FallbackNamePrefix names recreated ranges that have no fixed label.
// Two unlabelled ranges created on the same day get the same name.
const FallbackNamePrefix = "Some Public IP Space"

// ActionKind tags a RemediationAction
type ActionKind int

const (
	DeleteRule ActionKind = iota
	CreateRule
)

func (k ActionKind) String() string {
	if k == CreateRule {
		return "CREATE"
	}
	return "DELETE"
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Action is one planned remediation step. Rule is set for deletions, Range and
// Name for creations. Enabled records whether the matching feature flag allows
// the step to be executed; planning happens regardless.
type Action struct {
	Kind    ActionKind        `json:"kind"`
	Rule    core.FirewallRule `json:"rule"`
	Range   IPRange           `json:"range"`
	Name    string            `json:"name,omitempty"`
	Enabled bool              `json:"enabled"`
}

// Target renders what the action touches, for logs and reports
func (a Action) Target() string {
	if a.Kind == CreateRule {
		return fmt.Sprintf("%s : %s", a.Name, a.Range)
	}
	return fmt.Sprintf("%s : %s", a.Rule.Name, a.Rule.Range())
}

// Planner turns evaluator output into ordered remediation actions.
// It never talks to the cloud; execution belongs to the caller.
type Planner struct {
	policy Policy
	now    func() time.Time
}

// NewPlanner uses time.Now when now is nil
func NewPlanner(policy Policy, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{policy: policy, now: now}
}

// PlanDeletions emits one deletion per out-of-range rule, preserving order
func (p *Planner) PlanDeletions(classified []Classification, deleteEnabled bool) []Action {
	var actions []Action
	for _, c := range classified {
		if c.Verdict != OutOfRange {
			continue
		}
		actions = append(actions, Action{Kind: DeleteRule, Rule: c.Rule, Enabled: deleteEnabled})
	}
	return actions
}

// PlanCreations emits one creation per missing baseline range, preserving order
func (p *Planner) PlanCreations(missing []IPRange, createEnabled bool) []Action {
	actions := make([]Action, 0, len(missing))
	for _, r := range missing {
		actions = append(actions, Action{
			Kind:    CreateRule,
			Range:   r,
			Name:    p.NameForRange(r),
			Enabled: createEnabled,
		})
	}
	return actions
}

// NameForRange returns the fixed name for a known range, otherwise a name stamped
// with the current day
func (p *Planner) NameForRange(r IPRange) string {
	if name, ok := p.policy.name(r.String()); ok {
		return name
	}
	return fmt.Sprintf("%s %s", FallbackNamePrefix, p.now().Format("2006-01-02"))
}
