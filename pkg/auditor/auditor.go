package auditor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/core"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/logger"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/metrics"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/notify"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/policy"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/report"
	"github.com/sirupsen/logrus"
)

// ErrActionFailed wraps every failed delete or create call
var ErrActionFailed = errors.New("remediation action failed")

// Options control what a run is allowed to change
type Options struct {
	// UpdateRules enables execution of planned deletions
	UpdateRules bool
	// AddInMissingRules enables execution of planned creations
	AddInMissingRules bool
	// DryRun forces both flags off
	DryRun bool
	// Notifier receives the report when it has findings. Nil disables notification.
	Notifier notify.Notifier
	// OnPlan, when set, sees every server plan before it is executed
	OnPlan func(ServerPlan)
	// Now defaults to time.Now
	Now func() time.Time
}

// ServerPlan is the pure result of evaluating one server
type ServerPlan struct {
	Server     core.Server
	Classified []policy.Classification
	Deletions  []policy.Action
	Creations  []policy.Action
}

// Auditor walks every subscription and server, evaluates firewall rules and
// executes the resulting plan one server at a time.
type Auditor struct {
	client        core.CloudClient
	policy        policy.Policy
	ranges        *policy.RangeSet
	planner       *policy.Planner
	notifier      notify.Notifier
	onPlan        func(ServerPlan)
	deleteEnabled bool
	createEnabled bool
	now           func() time.Time
}

// New builds the approved range set from the policy baseline and the whitelist.
// Malformed whitelist entries are logged and skipped.
func New(client core.CloudClient, pol policy.Policy, whitelist string, opts Options) *Auditor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ranges, errs := policy.Build(pol.Baseline(), whitelist)
	for _, err := range errs {
		logger.Log().WithError(err).Warn("Skipping malformed whitelist entry")
	}

	return &Auditor{
		client:        client,
		policy:        pol,
		ranges:        ranges,
		planner:       policy.NewPlanner(pol, now),
		notifier:      opts.Notifier,
		onPlan:        opts.OnPlan,
		deleteEnabled: opts.UpdateRules && !opts.DryRun,
		createEnabled: opts.AddInMissingRules && !opts.DryRun,
		now:           now,
	}
}

// Ranges exposes the approved set the auditor classifies against
func (a *Auditor) Ranges() *policy.RangeSet {
	return a.ranges
}

// PlanServer classifies a server's rules and plans deletions and creations.
// It never calls the cloud.
func (a *Auditor) PlanServer(server core.Server, rules []core.FirewallRule) ServerPlan {
	classified := policy.Classify(rules, a.ranges)
	missing := policy.FindMissing(rules, a.policy.Baseline())
	return ServerPlan{
		Server:     server,
		Classified: classified,
		Deletions:  a.planner.PlanDeletions(classified, a.deleteEnabled),
		Creations:  a.planner.PlanCreations(missing, a.createEnabled),
	}
}

// Run performs one audit. Listing failures skip only the subscription or server
// they belong to. A failed notification is logged and does not fail the run.
func (a *Auditor) Run(ctx context.Context) (*report.AuditReport, error) {
	r := report.New(a.now())
	log := logger.WithFields(logrus.Fields{"run_id": r.RunID})
	log.WithFields(logrus.Fields{
		"update_rules":         a.deleteEnabled,
		"add_in_missing_rules": a.createEnabled,
		"approved_ranges":      a.ranges.Len(),
	}).Info("Starting SQL firewall audit")

	subs, err := a.client.ListSubscriptions(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list subscriptions")
		r.RecordScopeError("tenant", err)
		metrics.IncScopeError()
	}

	var runErr error
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := a.auditSubscription(ctx, r, sub, log); err != nil {
			runErr = err
			break
		}
	}

	r.Finish(a.now())
	metrics.ObserveRun(r.FinishedAt)
	log.WithFields(logrus.Fields{
		"subscriptions": r.SubscriptionsAudited,
		"servers":       r.ServersAudited,
		"offenses":      r.TotalOffenses,
	}).Info(r.Summary())

	if runErr != nil {
		return r, runErr
	}

	a.notify(ctx, r, log)
	return r, nil
}

func (a *Auditor) auditSubscription(ctx context.Context, r *report.AuditReport, sub core.Subscription, log *logrus.Entry) error {
	log = log.WithField("subscription", sub.ID)
	log.WithField("display_name", sub.DisplayName).Debug("Auditing subscription")
	r.SubscriptionsAudited++

	servers, err := a.client.ListServers(ctx, sub)
	if err != nil {
		log.WithError(err).Error("Failed to list SQL servers")
		r.RecordScopeError("subscription "+sub.ID, err)
		metrics.IncScopeError()
		return nil
	}

	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.auditServer(ctx, r, server, log)
	}
	return nil
}

func (a *Auditor) auditServer(ctx context.Context, r *report.AuditReport, server core.Server, log *logrus.Entry) {
	log = log.WithFields(logrus.Fields{"resource_group": server.ResourceGroup, "server": server.Name})

	rules, err := a.client.ListFirewallRules(ctx, server)
	if err != nil {
		log.WithError(err).Error("Failed to list firewall rules")
		r.RecordScopeError(fmt.Sprintf("server %s/%s/%s", server.SubscriptionID, server.ResourceGroup, server.Name), err)
		metrics.IncScopeError()
		return
	}
	r.ServersAudited++
	metrics.IncServerAudited()
	log.WithField("rules", len(rules)).Debug("Evaluating firewall rules")

	plan := a.PlanServer(server, rules)
	if a.onPlan != nil {
		a.onPlan(plan)
	}

	// Deletions line up with the out-of-range classifications in order.
	next := 0
	for _, c := range plan.Classified {
		if c.Verdict != policy.OutOfRange {
			r.Record(server, c.Rule, c.Verdict, nil, report.NotEnabled())
			continue
		}
		action := plan.Deletions[next]
		next++

		ruleLog := log.WithFields(logrus.Fields{"rule": c.Rule.Name, "start_ip": c.Rule.StartIP, "end_ip": c.Rule.EndIP})
		ruleLog.Warn("Firewall rule is outside the approved IP space")
		metrics.IncOffense()

		outcome := a.executeDeletion(ctx, server, action)
		switch outcome.Status {
		case report.StatusSucceeded:
			ruleLog.Warn("Deleted firewall rule")
		case report.StatusFailed:
			ruleLog.WithError(outcome.Err).Warn("Failed to delete firewall rule")
		}
		metrics.IncAction(action.Kind.String(), string(outcome.Status))
		r.Record(server, c.Rule, c.Verdict, &action, outcome)
	}

	for _, action := range plan.Creations {
		outcome := a.executeCreation(ctx, server, action)
		createLog := log.WithFields(logrus.Fields{"rule": action.Name, "range": action.Range.String()})
		switch outcome.Status {
		case report.StatusSucceeded:
			createLog.Info("Created missing baseline rule")
		case report.StatusFailed:
			createLog.WithError(outcome.Err).Error("Failed to create baseline rule")
		default:
			createLog.Debug("Baseline range missing, creation not enabled")
		}
		metrics.IncAction(action.Kind.String(), string(outcome.Status))
		r.RecordCreation(server, action, outcome)
	}
}

func (a *Auditor) executeDeletion(ctx context.Context, server core.Server, action policy.Action) report.Outcome {
	if !action.Enabled {
		return report.NotEnabled()
	}
	if err := a.client.DeleteFirewallRule(ctx, server, action.Rule); err != nil {
		return report.Failed(fmt.Errorf("%w: delete %s: %v", ErrActionFailed, action.Rule.Name, err))
	}
	return report.Succeeded()
}

func (a *Auditor) executeCreation(ctx context.Context, server core.Server, action policy.Action) report.Outcome {
	if !action.Enabled {
		return report.NotEnabled()
	}
	start, end := action.Range.Start().String(), action.Range.End().String()
	if err := a.client.CreateFirewallRule(ctx, server, action.Name, start, end); err != nil {
		return report.Failed(fmt.Errorf("%w: create %s: %v", ErrActionFailed, action.Name, err))
	}
	return report.Succeeded()
}

func (a *Auditor) notify(ctx context.Context, r *report.AuditReport, log *logrus.Entry) {
	if a.notifier == nil || !r.HasFindings() {
		return
	}
	log = log.WithField("notifier", a.notifier.Name())
	if err := a.notifier.Send(ctx, r); err != nil {
		metrics.IncNotifyFailure()
		log.WithError(err).Error("Failed to deliver audit notification")
		return
	}
	log.Info("Audit notification sent")
}
