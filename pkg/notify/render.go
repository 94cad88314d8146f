package notify

import (
	"fmt"
	"strings"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/report"
)

// Renderer turns a report into a chat payload. Rendering never does I/O.
type Renderer func(r *report.AuditReport, channel string) Post

// RenderFields produces one attachment field per offending rule
func RenderFields(r *report.AuditReport, channel string) Post {
	post := Post{Channel: channel, Username: botUsername, IconURL: botIconURL, Text: messageText}

	offenses := r.Offenses()
	if len(offenses) == 0 {
		return post
	}

	fields := make([]Field, 0, len(offenses))
	for _, f := range offenses {
		fields = append(fields, Field{
			Title: " ",
			Value: fmt.Sprintf("Server - %s, Firewall Rule(s) : \r\n>%s : %s - %s *Deleted : %s*",
				f.Server, f.Rule.Name, f.Rule.StartIP, f.Rule.EndIP, fieldOutcome(f.Outcome.Status)),
			Short: false,
		})
	}

	post.Attachments = []Attachment{{
		Fallback: fallbackText,
		Color:    alertColor,
		Title:    " ",
		Fields:   fields,
		Actions:  []Action{{Type: "button", Text: "Open SQL servers", URL: portalURL}},
		Footer:   footerText,
		Ts:       r.StartedAt.Unix(),
	}}
	return post
}

func fieldOutcome(status report.OutcomeStatus) string {
	switch status {
	case report.StatusSucceeded:
		return "YES"
	case report.StatusFailed:
		return "NO, encountered exception"
	default:
		return "NO, deletion not enabled."
	}
}

// RenderText accumulates every offending rule into a single attachment text block,
// printing each server's header once
func RenderText(r *report.AuditReport, channel string) Post {
	post := Post{Channel: channel, Username: botUsername, IconURL: botIconURL, Text: webhookText}

	offenses := r.Offenses()
	if len(offenses) == 0 {
		return post
	}

	var b strings.Builder
	b.WriteString(attachmentIntro)
	seen := make(map[string]bool)
	for _, f := range offenses {
		key := f.SubscriptionID + "/" + f.ResourceGroup + "/" + f.Server
		if !seen[key] {
			seen[key] = true
			fmt.Fprintf(&b, "\r\n *Server - %s, Firewall Rule(s) :* \r\n", f.Server)
		}
		fmt.Fprintf(&b, ">%s : %s - %s *Deleted :* %s \r\n", f.Rule.Name, f.Rule.StartIP, f.Rule.EndIP, textOutcome(f.Outcome.Status))
	}

	post.Attachments = []Attachment{{
		Fallback:   fallbackText,
		Color:      alertColor,
		Title:      " ",
		Text:       b.String(),
		Fields:     []Field{{Title: "Priority", Value: "Urgent", Short: false}},
		Footer:     footerText,
		FooterIcon: botIconURL,
		Ts:         r.StartedAt.Unix(),
	}}
	return post
}

func textOutcome(status report.OutcomeStatus) string {
	switch status {
	case report.StatusSucceeded:
		return "*Yes*"
	case report.StatusFailed:
		return "*No encountered exception.*"
	default:
		return "*Not Enabled.*"
	}
}

// PlainText renders the report for services without rich formatting
func PlainText(r *report.AuditReport) string {
	var b strings.Builder
	b.WriteString(messageText)
	b.WriteString("\n\n")
	for _, f := range r.Offenses() {
		fmt.Fprintf(&b, "Server - %s: %s : %s - %s Deleted: %s\n",
			f.Server, f.Rule.Name, f.Rule.StartIP, f.Rule.EndIP, strings.TrimSuffix(fieldOutcome(f.Outcome.Status), "."))
	}
	b.WriteString("\n")
	b.WriteString(r.Summary())
	return b.String()
}
