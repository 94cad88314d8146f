package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlfw_audit_runs_total",
		Help: "Total number of completed audit runs",
	})
	serversAuditedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlfw_servers_audited_total",
		Help: "Total number of SQL servers whose firewall rules were evaluated",
	})
	offensesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlfw_out_of_range_rules_total",
		Help: "Total number of firewall rules found outside the approved ranges",
	})
	actionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlfw_remediation_actions_total",
		Help: "Remediation actions by kind and outcome status",
	}, []string{"kind", "status"})
	scopeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlfw_scope_errors_total",
		Help: "Total number of subscriptions or servers that could not be listed",
	})
	notifyFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlfw_notify_failures_total",
		Help: "Total number of failed notification deliveries",
	})
	lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sqlfw_last_run_timestamp_seconds",
		Help: "Unix time at which the last audit run finished",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(runsTotal, serversAuditedTotal, offensesTotal, actionsTotal,
		scopeErrorsTotal, notifyFailuresTotal, lastRunTimestamp)
}

// ObserveRun records a finished run.
func ObserveRun(finished time.Time) {
	runsTotal.Inc()
	lastRunTimestamp.Set(float64(finished.Unix()))
}

// IncServerAudited increments the audited servers counter.
func IncServerAudited() { serversAuditedTotal.Inc() }

// IncOffense increments the out-of-range rules counter.
func IncOffense() { offensesTotal.Inc() }

// IncAction counts one remediation action, e.g. ("DELETE", "SUCCEEDED").
func IncAction(kind, status string) { actionsTotal.WithLabelValues(kind, status).Inc() }

// IncScopeError increments the listing failures counter.
func IncScopeError() { scopeErrorsTotal.Inc() }

// IncNotifyFailure increments the failed notifications counter.
func IncNotifyFailure() { notifyFailuresTotal.Inc() }
