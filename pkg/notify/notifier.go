package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/report"
)

// ErrNotifyFailed wraps every delivery failure
var ErrNotifyFailed = errors.New("notification failed")

// DefaultSlackAPIURL is the bot-token endpoint
const DefaultSlackAPIURL = "https://slack.com/api/chat.postMessage"

// Notifier delivers a finished report to a chat channel
type Notifier interface {
	// Name identifies the sink in logs
	Name() string

	// Send renders and delivers the report
	Send(ctx context.Context, r *report.AuditReport) error
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// BotNotifier posts through chat.postMessage with a bot token
type BotNotifier struct {
	client   *http.Client
	endpoint string
	token    string
	channel  string
	render   Renderer
}

// NewBotNotifier uses DefaultSlackAPIURL when endpoint is empty
func NewBotNotifier(token, channel, endpoint string) *BotNotifier {
	if endpoint == "" {
		endpoint = DefaultSlackAPIURL
	}
	return &BotNotifier{
		client:   defaultHTTPClient(),
		endpoint: endpoint,
		token:    token,
		channel:  channel,
		render:   RenderFields,
	}
}

func (n *BotNotifier) Name() string { return "slack-bot" }

type slackAPIResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (n *BotNotifier) Send(ctx context.Context, r *report.AuditReport) error {
	body, err := json.Marshal(n.render(r, n.channel))
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrNotifyFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrNotifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: slack returned status %d", ErrNotifyFailed, resp.StatusCode)
	}

	var apiResp slackAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&apiResp); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrNotifyFailed, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%w: slack error %q", ErrNotifyFailed, apiResp.Error)
	}
	return nil
}

// WebhookNotifier posts the accumulated-text rendering to an incoming webhook
// as the form field "payload"
type WebhookNotifier struct {
	client  *http.Client
	hookURL string
	channel string
	render  Renderer
}

func NewWebhookNotifier(hookURL, channel string) *WebhookNotifier {
	return &WebhookNotifier{
		client:  defaultHTTPClient(),
		hookURL: hookURL,
		channel: channel,
		render:  RenderText,
	}
}

func (n *WebhookNotifier) Name() string { return "slack-webhook" }

func (n *WebhookNotifier) Send(ctx context.Context, r *report.AuditReport) error {
	payload, err := json.Marshal(n.render(r, n.channel))
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrNotifyFailed, err)
	}

	form := url.Values{}
	form.Set("payload", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.hookURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrNotifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: webhook returned status %d: %s", ErrNotifyFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// Multi fans a report out to several sinks. Every sink is attempted.
type Multi []Notifier

func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, n := range m {
		names = append(names, n.Name())
	}
	return strings.Join(names, ",")
}

func (m Multi) Send(ctx context.Context, r *report.AuditReport) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ShoutrrrNotifier sends the plain-text rendering to any shoutrrr service URL
type ShoutrrrNotifier struct {
	url string
}

func NewShoutrrrNotifier(serviceURL string) *ShoutrrrNotifier {
	return &ShoutrrrNotifier{url: serviceURL}
}

func (n *ShoutrrrNotifier) Name() string { return "shoutrrr" }

func (n *ShoutrrrNotifier) Send(ctx context.Context, r *report.AuditReport) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	if err := shoutrrr.Send(n.url, PlainText(r)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	return nil
}
