package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/auditor"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/config"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/core"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/notify"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/policy"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/updater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNotifier(t *testing.T) {
	assert.Nil(t, buildNotifier(config.Config{}))

	n := buildNotifier(config.Config{BotToken: "xoxb", Channel: "#c"})
	assert.Equal(t, "slack-bot", n.Name())

	n = buildNotifier(config.Config{Hook: "https://hooks.example", Channel: "#c"})
	assert.Equal(t, "slack-webhook", n.Name())

	n = buildNotifier(config.Config{BotToken: "xoxb", Hook: "https://hooks.example", NotifyURL: "logger://", Channel: "#c"})
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 3)
}

func TestPrintPlan(t *testing.T) {
	planner := policy.NewPlanner(policy.DefaultPolicy(), nil)
	rule := core.FirewallRule{Name: "google", StartIP: "8.8.8.8", EndIP: "8.8.8.8"}
	plan := auditor.ServerPlan{
		Server:    core.Server{SubscriptionID: "s1", ResourceGroup: "rg", Name: "sql01"},
		Deletions: planner.PlanDeletions([]policy.Classification{{Rule: rule, Verdict: policy.OutOfRange}}, false),
		Creations: planner.PlanCreations(policy.DefaultPolicy().Baseline()[:1], false),
	}

	var buf bytes.Buffer
	printPlan(&buf, plan, config.Config{AddInMissingRules: true})
	out := buf.String()
	assert.Contains(t, out, "Server - sql01 (s1/rg)")
	assert.Contains(t, out, "DELETE google : 8.8.8.8 - 8.8.8.8  (UpdateRules=false)")
	assert.Contains(t, out, "CREATE Allow All Azure Traffic : 0.0.0.0 - 0.0.0.0\n")

	buf.Reset()
	printPlan(&buf, auditor.ServerPlan{Server: core.Server{Name: "clean"}}, config.Config{})
	assert.Contains(t, buf.String(), "nothing to do")
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(buf.String(), "SQL FW Auditor "+updater.CurrentVersion))
}

func TestRunCmd_MissingSink(t *testing.T) {
	for _, env := range []string{"botToken", "hook", "NotifyURL", "channel"} {
		t.Setenv(env, "")
	}
	root := newRootCmd()
	root.SetArgs([]string{"run"})
	err := root.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingSetting)
}
