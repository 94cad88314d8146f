package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/core"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/policy"
)

// OutcomeStatus describes what happened when an action was (or was not) executed
type OutcomeStatus string

const (
	StatusNotEnabled OutcomeStatus = "NOT_ENABLED"
	StatusSucceeded  OutcomeStatus = "SUCCEEDED"
	StatusFailed     OutcomeStatus = "FAILED"
)

// Outcome is the per-action result. Err is only set for StatusFailed.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Err    error         `json:"-"`
	Reason string        `json:"reason,omitempty"`
}

// NotEnabled is the outcome of an action whose feature flag is off
func NotEnabled() Outcome { return Outcome{Status: StatusNotEnabled} }

// Succeeded is the outcome of an executed action
func Succeeded() Outcome { return Outcome{Status: StatusSucceeded} }

// Failed records an execution error as data
func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err, Reason: err.Error()}
}

// Finding is one classified rule on one server
type Finding struct {
	SubscriptionID string            `json:"subscription_id"`
	ResourceGroup  string            `json:"resource_group"`
	Server         string            `json:"server"`
	Rule           core.FirewallRule `json:"rule"`
	Verdict        policy.Verdict    `json:"verdict"`
	Action         *policy.Action    `json:"action,omitempty"`
	Outcome        Outcome           `json:"outcome"`
	Frameworks     map[string]string `json:"frameworks,omitempty"`
}

// Creation is one backfilled baseline range on one server
type Creation struct {
	SubscriptionID string        `json:"subscription_id"`
	ResourceGroup  string        `json:"resource_group"`
	Server         string        `json:"server"`
	Action         policy.Action `json:"action"`
	Outcome        Outcome       `json:"outcome"`
}

// ScopeError records a subscription or server that could not be audited
type ScopeError struct {
	Scope  string `json:"scope"`
	Reason string `json:"reason"`
}

// AuditReport accumulates one run's results. It performs no I/O while recording.
type AuditReport struct {
	RunID                string       `json:"run_id"`
	StartedAt            time.Time    `json:"started_at"`
	FinishedAt           time.Time    `json:"finished_at,omitempty"`
	SubscriptionsAudited int          `json:"subscriptions_audited"`
	ServersAudited       int          `json:"servers_audited"`
	TotalOffenses        int          `json:"total_offenses"`
	Findings             []Finding    `json:"findings"`
	Creations            []Creation   `json:"creations,omitempty"`
	ScopeErrors          []ScopeError `json:"scope_errors,omitempty"`
}

// New starts an empty report stamped with a fresh run ID
func New(startedAt time.Time) *AuditReport {
	return &AuditReport{
		RunID:     uuid.New().String(),
		StartedAt: startedAt,
		Findings:  []Finding{},
	}
}

// Record appends a finding. Every out-of-range verdict counts as an offense,
// whatever happened to the deletion.
func (r *AuditReport) Record(server core.Server, rule core.FirewallRule, verdict policy.Verdict, action *policy.Action, outcome Outcome) {
	f := Finding{
		SubscriptionID: server.SubscriptionID,
		ResourceGroup:  server.ResourceGroup,
		Server:         server.Name,
		Rule:           rule,
		Verdict:        verdict,
		Action:         action,
		Outcome:        outcome,
	}
	if verdict == policy.OutOfRange {
		r.TotalOffenses++
		f.Frameworks = FirewallControlMappings()
	}
	r.Findings = append(r.Findings, f)
}

// RecordCreation appends the outcome of a backfill action
func (r *AuditReport) RecordCreation(server core.Server, action policy.Action, outcome Outcome) {
	r.Creations = append(r.Creations, Creation{
		SubscriptionID: server.SubscriptionID,
		ResourceGroup:  server.ResourceGroup,
		Server:         server.Name,
		Action:         action,
		Outcome:        outcome,
	})
}

// RecordScopeError notes a listing failure that skipped part of the tenant
func (r *AuditReport) RecordScopeError(scope string, err error) {
	r.ScopeErrors = append(r.ScopeErrors, ScopeError{Scope: scope, Reason: err.Error()})
}

// Finish stamps the end of the run
func (r *AuditReport) Finish(at time.Time) {
	r.FinishedAt = at
}

// HasFindings is true when at least one rule was out of range
func (r *AuditReport) HasFindings() bool {
	for _, f := range r.Findings {
		if f.Verdict == policy.OutOfRange {
			return true
		}
	}
	return false
}

// Offenses returns the out-of-range findings in recording order
func (r *AuditReport) Offenses() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Verdict == policy.OutOfRange {
			out = append(out, f)
		}
	}
	return out
}

// CountCreations returns how many backfills ended with the given status
func (r *AuditReport) CountCreations(status OutcomeStatus) int {
	n := 0
	for _, c := range r.Creations {
		if c.Outcome.Status == status {
			n++
		}
	}
	return n
}

// CountDeletions returns how many offending rules ended with the given status
func (r *AuditReport) CountDeletions(status OutcomeStatus) int {
	n := 0
	for _, f := range r.Offenses() {
		if f.Outcome.Status == status {
			n++
		}
	}
	return n
}

// Summary is the one-line run summary used in logs and plain-text notifications
func (r *AuditReport) Summary() string {
	return fmt.Sprintf("Total number of out of range rules: %d.", r.TotalOffenses)
}

// WriteJSON encodes the report with indentation
func (r *AuditReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// SaveJSON writes the report to path
func (r *AuditReport) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	return r.WriteJSON(f)
}
