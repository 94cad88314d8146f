package azure

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/core"
)

type subscriptionsAPI interface {
	NewListPager(options *armsubscriptions.ClientListOptions) *runtime.Pager[armsubscriptions.ClientListResponse]
}

type serversAPI interface {
	NewListPager(options *armsql.ServersClientListOptions) *runtime.Pager[armsql.ServersClientListResponse]
}

type firewallRulesAPI interface {
	NewListByServerPager(resourceGroupName string, serverName string, options *armsql.FirewallRulesClientListByServerOptions) *runtime.Pager[armsql.FirewallRulesClientListByServerResponse]
	Delete(ctx context.Context, resourceGroupName string, serverName string, firewallRuleName string, options *armsql.FirewallRulesClientDeleteOptions) (armsql.FirewallRulesClientDeleteResponse, error)
	CreateOrUpdate(ctx context.Context, resourceGroupName string, serverName string, firewallRuleName string, parameters armsql.FirewallRule, options *armsql.FirewallRulesClientCreateOrUpdateOptions) (armsql.FirewallRulesClientCreateOrUpdateResponse, error)
}

// Scanner talks to Azure Resource Manager on behalf of the auditor.
// SQL clients are created lazily per subscription and reused.
type Scanner struct {
	subscriptionID string
	subscriptions  subscriptionsAPI
	newServers     func(subscriptionID string) (serversAPI, error)
	newRules       func(subscriptionID string) (firewallRulesAPI, error)

	mu      sync.Mutex
	servers map[string]serversAPI
	rules   map[string]firewallRulesAPI
}

var _ core.CloudClient = (*Scanner)(nil)

// NewScanner authenticates with the default Azure credential chain. When
// subscriptionID is set, only that subscription is audited.
func NewScanner(subscriptionID string) (*Scanner, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %v", err)
	}

	subClient, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %v", err)
	}

	return newScanner(subscriptionID, subClient,
		func(sub string) (serversAPI, error) {
			c, err := armsql.NewServersClient(sub, cred, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to create SQL client: %v", err)
			}
			return c, nil
		},
		func(sub string) (firewallRulesAPI, error) {
			c, err := armsql.NewFirewallRulesClient(sub, cred, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to create SQL firewall client: %v", err)
			}
			return c, nil
		},
	), nil
}

func newScanner(subscriptionID string, subs subscriptionsAPI,
	newServers func(string) (serversAPI, error), newRules func(string) (firewallRulesAPI, error)) *Scanner {
	return &Scanner{
		subscriptionID: subscriptionID,
		subscriptions:  subs,
		newServers:     newServers,
		newRules:       newRules,
		servers:        make(map[string]serversAPI),
		rules:          make(map[string]firewallRulesAPI),
	}
}

func (s *Scanner) GetSubscriptionID() string {
	return s.subscriptionID
}

func (s *Scanner) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	var subs []core.Subscription

	pager := s.subscriptions.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub == nil || sub.SubscriptionID == nil {
				continue
			}
			if s.subscriptionID != "" && *sub.SubscriptionID != s.subscriptionID {
				continue
			}
			subs = append(subs, core.Subscription{
				ID:          *sub.SubscriptionID,
				DisplayName: deref(sub.DisplayName),
			})
		}
	}

	if s.subscriptionID != "" && len(subs) == 0 {
		return nil, fmt.Errorf("subscription %s is not visible to the current credential", s.subscriptionID)
	}
	return subs, nil
}

func (s *Scanner) ListServers(ctx context.Context, sub core.Subscription) ([]core.Server, error) {
	client, err := s.serversClient(sub.ID)
	if err != nil {
		return nil, err
	}

	var servers []core.Server
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing SQL servers in %s: %w", sub.ID, err)
		}
		for _, srv := range page.Value {
			if srv == nil || srv.ID == nil || srv.Name == nil {
				continue
			}
			rid, err := arm.ParseResourceID(*srv.ID)
			if err != nil {
				return nil, fmt.Errorf("parsing server id %q: %w", *srv.ID, err)
			}
			servers = append(servers, core.Server{
				ID:             *srv.ID,
				SubscriptionID: sub.ID,
				ResourceGroup:  rid.ResourceGroupName,
				Name:           *srv.Name,
			})
		}
	}
	return servers, nil
}

func (s *Scanner) ListFirewallRules(ctx context.Context, server core.Server) ([]core.FirewallRule, error) {
	client, err := s.rulesClient(server.SubscriptionID)
	if err != nil {
		return nil, err
	}

	var rules []core.FirewallRule
	pager := client.NewListByServerPager(server.ResourceGroup, server.Name, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing firewall rules on %s: %w", server.Name, err)
		}
		for _, rule := range page.Value {
			if rule == nil {
				continue
			}
			fr := core.FirewallRule{Name: deref(rule.Name)}
			if rule.Properties != nil {
				fr.StartIP = deref(rule.Properties.StartIPAddress)
				fr.EndIP = deref(rule.Properties.EndIPAddress)
			}
			rules = append(rules, fr)
		}
	}
	return rules, nil
}

func (s *Scanner) DeleteFirewallRule(ctx context.Context, server core.Server, rule core.FirewallRule) error {
	client, err := s.rulesClient(server.SubscriptionID)
	if err != nil {
		return err
	}
	if _, err := client.Delete(ctx, server.ResourceGroup, server.Name, rule.Name, nil); err != nil {
		return fmt.Errorf("deleting rule %s on %s: %w", rule.Name, server.Name, err)
	}
	return nil
}

func (s *Scanner) CreateFirewallRule(ctx context.Context, server core.Server, name, startIP, endIP string) error {
	client, err := s.rulesClient(server.SubscriptionID)
	if err != nil {
		return err
	}
	params := armsql.FirewallRule{
		Name: to.Ptr(name),
		Properties: &armsql.ServerFirewallRuleProperties{
			StartIPAddress: to.Ptr(startIP),
			EndIPAddress:   to.Ptr(endIP),
		},
	}
	if _, err := client.CreateOrUpdate(ctx, server.ResourceGroup, server.Name, name, params, nil); err != nil {
		return fmt.Errorf("creating rule %s on %s: %w", name, server.Name, err)
	}
	return nil
}

func (s *Scanner) serversClient(subscriptionID string) (serversAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.servers[subscriptionID]; ok {
		return c, nil
	}
	c, err := s.newServers(subscriptionID)
	if err != nil {
		return nil, err
	}
	s.servers[subscriptionID] = c
	return c, nil
}

func (s *Scanner) rulesClient(subscriptionID string) (firewallRulesAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.rules[subscriptionID]; ok {
		return c, nil
	}
	c, err := s.newRules(subscriptionID)
	if err != nil {
		return nil, err
	}
	s.rules[subscriptionID] = c
	return c, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
