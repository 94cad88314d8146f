package report

import (
	"fmt"
	"sort"
	"strings"
)

// Framework names as they appear in compliance reports
const (
	FrameworkSOC2     = "SOC2"
	FrameworkPCI      = "PCI-DSS"
	FrameworkHIPAA    = "HIPAA"
	FrameworkISO      = "ISO-27001"
	FrameworkCISAzure = "CIS-Azure"
)

// sqlFirewallControl maps the SQL server firewall control onto each framework
var sqlFirewallControl = map[string]string{
	FrameworkSOC2:     "CC6.1",
	FrameworkPCI:      "1.2.1",
	FrameworkHIPAA:    "164.312(e)(1)",
	FrameworkISO:      "A.13.1.3",
	FrameworkCISAzure: "4.6",
}

// FirewallControlMappings returns a fresh copy so findings can't share state
func FirewallControlMappings() map[string]string {
	out := make(map[string]string, len(sqlFirewallControl))
	for k, v := range sqlFirewallControl {
		out[k] = v
	}
	return out
}

// FormatFrameworkRequirements renders mappings as "CIS-Azure 4.6 | HIPAA ..." in a stable order
func FormatFrameworkRequirements(frameworks map[string]string) string {
	if len(frameworks) == 0 {
		return ""
	}

	names := make([]string, 0, len(frameworks))
	for name := range frameworks {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, frameworks[name]))
	}
	return strings.Join(parts, " | ")
}
