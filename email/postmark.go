package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/safecheck"
	"github.com/keighl/postmark"
)

// Client is the part of the Postmark client used by PostmarkNotifier.
type Client interface {
	SendEmail(email postmark.Email) (postmark.EmailResponse, error)
}

// Ensure PostmarkNotifier implements safecheck.Notifier.
var _ safecheck.Notifier = (*PostmarkNotifier)(nil)

// PostmarkNotifier sends notifications via Postmark.
type PostmarkNotifier struct {
	client Client
	logger *slog.Logger
	config safecheck.EmailConfig
}

// NewPostmarkNotifier creates a notifier backed by the Postmark API.
func NewPostmarkNotifier(logger *slog.Logger, cfg safecheck.EmailConfig) *PostmarkNotifier {
	return NewPostmarkNotifierWithClient(postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken), logger, cfg)
}

// NewPostmarkNotifierWithClient creates a notifier using the given client.
func NewPostmarkNotifierWithClient(client Client, logger *slog.Logger, cfg safecheck.EmailConfig) *PostmarkNotifier {
	return &PostmarkNotifier{client: client, logger: logger, config: cfg}
}

// NotifySubmitted emails supervisors about a submitted record.
func (n *PostmarkNotifier) NotifySubmitted(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	return n.send(ctx, submittedEmail(n.config, to, rec), "inspection-submitted")
}

// NotifySupervisorApproved emails admins about a supervisor-approved record.
func (n *PostmarkNotifier) NotifySupervisorApproved(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	return n.send(ctx, supervisorApprovedEmail(n.config, to, rec), "inspection-supervisor-approved")
}

// NotifyRejected emails the inspector about a rejection.
func (n *PostmarkNotifier) NotifyRejected(ctx context.Context, to []string, rec *safecheck.Inspection, by safecheck.User, comments string) error {
	return n.send(ctx, rejectedEmail(n.config, to, rec, by, comments), "inspection-rejected")
}

func (n *PostmarkNotifier) send(ctx context.Context, msg safecheck.Email, tag string) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	email := postmark.Email{
		From:       fmt.Sprintf("%s <%s>", n.config.FromName, n.config.FromAddress),
		To:         strings.Join(msg.To, ","),
		Subject:    msg.Subject,
		TextBody:   msg.TextBody,
		HtmlBody:   msg.HTMLBody,
		Tag:        tag,
		TrackOpens: true,
	}

	resp, err := n.client.SendEmail(email)
	if err == nil && resp.ErrorCode != 0 {
		err = fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	if err != nil {
		n.logger.Error("failed to send notification via Postmark",
			slog.String("tag", tag),
			slog.Int("recipients", len(msg.To)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send %s email: %w", tag, err)
	}

	n.logger.Info("notification sent via Postmark",
		slog.String("tag", tag),
		slog.String("message_id", resp.MessageID),
		slog.Int("recipients", len(msg.To)),
	)
	return nil
}
