package core

import (
	"context"
	"fmt"
)

// CloudClient defines the operations the auditor needs from a cloud provider
type CloudClient interface {
	// ListSubscriptions returns every subscription visible to the credential
	ListSubscriptions(ctx context.Context) ([]Subscription, error)

	// ListServers returns the SQL servers of one subscription
	ListServers(ctx context.Context, sub Subscription) ([]Server, error)

	// ListFirewallRules returns the firewall rules currently configured on a server
	ListFirewallRules(ctx context.Context, server Server) ([]FirewallRule, error)

	// DeleteFirewallRule removes a single rule from a server
	DeleteFirewallRule(ctx context.Context, server Server, rule FirewallRule) error

	// CreateFirewallRule defines a new rule on a server
	CreateFirewallRule(ctx context.Context, server Server, name, startIP, endIP string) error
}

// Subscription represents a tenant subscription
type Subscription struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Server represents one SQL server inside a subscription
type Server struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	ResourceGroup  string `json:"resource_group"`
	Name           string `json:"name"`
}

// FirewallRule represents a rule as reported by the cloud provider.
// Addresses are kept in the provider's textual form; classification parses them.
type FirewallRule struct {
	Name    string `json:"name"`
	StartIP string `json:"start_ip"`
	EndIP   string `json:"end_ip"`
}

// Range returns the rule in "start - end" form
func (r FirewallRule) Range() string {
	return fmt.Sprintf("%s - %s", r.StartIP, r.EndIP)
}
