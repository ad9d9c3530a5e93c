// Package email delivers workflow notifications.
package email

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/dukerupert/safecheck"
)

// NewNotifier creates a notifier based on the provider configuration.
// Unknown or empty providers fall back to logging.
func NewNotifier(logger *slog.Logger, cfg safecheck.EmailConfig) safecheck.Notifier {
	switch cfg.Provider {
	case "postmark":
		return NewPostmarkNotifier(logger, cfg)
	default:
		return NewLogNotifier(logger, cfg)
	}
}

// recordURL returns the link to a record in the web client.
func recordURL(cfg safecheck.EmailConfig, rec *safecheck.Inspection) string {
	return fmt.Sprintf("%s/inspections/%s/%s", strings.TrimRight(cfg.BaseURL, "/"), rec.Kind, rec.ID)
}

func subjectLine(action string, rec *safecheck.Inspection) string {
	label := rec.Label()
	if label == "" {
		return fmt.Sprintf("%s inspection %s", rec.Kind.Label(), action)
	}
	return fmt.Sprintf("%s inspection %s: %s", rec.Kind.Label(), action, label)
}

// labelHTML renders the record label as a heading line, or nothing when
// the record has no label yet.
func labelHTML(rec *safecheck.Inspection) string {
	label := rec.Label()
	if label == "" {
		return ""
	}
	return "<p><strong>" + html.EscapeString(label) + "</strong></p>"
}

func submittedEmail(cfg safecheck.EmailConfig, to []string, rec *safecheck.Inspection) safecheck.Email {
	link := recordURL(cfg, rec)
	return safecheck.Email{
		To:      to,
		Subject: subjectLine("awaiting review", rec),
		TextBody: fmt.Sprintf("%s submitted an inspection dated %s for supervisor review.\n\nReview it here: %s",
			rec.InspectedBy, rec.Date, link),
		HTMLBody: fmt.Sprintf(`
			<h2>Inspection awaiting review</h2>
			%s
			<p>%s submitted a %s inspection dated %s.</p>
			<p><a href="%s">Review inspection</a></p>
		`, labelHTML(rec), html.EscapeString(rec.InspectedBy), html.EscapeString(rec.Kind.Label()), html.EscapeString(rec.Date), link),
	}
}

func supervisorApprovedEmail(cfg safecheck.EmailConfig, to []string, rec *safecheck.Inspection) safecheck.Email {
	link := recordURL(cfg, rec)
	by := ""
	if rec.SupervisorApproval != nil {
		by = rec.SupervisorApproval.ApprovedBy
	}
	return safecheck.Email{
		To:      to,
		Subject: subjectLine("awaiting final approval", rec),
		TextBody: fmt.Sprintf("%s approved an inspection by %s. It now awaits admin approval.\n\nReview it here: %s",
			by, rec.InspectedBy, link),
		HTMLBody: fmt.Sprintf(`
			<h2>Inspection awaiting final approval</h2>
			%s
			<p>%s approved the %s inspection by %s.</p>
			<p><a href="%s">Review inspection</a></p>
		`, labelHTML(rec), html.EscapeString(by), html.EscapeString(rec.Kind.Label()), html.EscapeString(rec.InspectedBy), link),
	}
}

func rejectedEmail(cfg safecheck.EmailConfig, to []string, rec *safecheck.Inspection, by safecheck.User, comments string) safecheck.Email {
	link := recordURL(cfg, rec)
	return safecheck.Email{
		To:      to,
		Subject: subjectLine("rejected", rec),
		TextBody: fmt.Sprintf("%s (%s) rejected your inspection dated %s.\n\nComments: %s\n\nView it here: %s",
			by.Name, by.Role, rec.Date, comments, link),
		HTMLBody: fmt.Sprintf(`
			<h2>Inspection rejected</h2>
			%s
			<p>%s (%s) rejected your %s inspection dated %s.</p>
			<blockquote>%s</blockquote>
			<p><a href="%s">View inspection</a></p>
		`, labelHTML(rec), html.EscapeString(by.Name), html.EscapeString(string(by.Role)), html.EscapeString(rec.Kind.Label()),
			html.EscapeString(rec.Date), html.EscapeString(comments), link),
	}
}
