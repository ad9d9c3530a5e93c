package email

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/safecheck"
)

// Ensure LogNotifier implements safecheck.Notifier.
var _ safecheck.Notifier = (*LogNotifier)(nil)

// LogNotifier logs notifications instead of sending them. It is the
// default for development.
type LogNotifier struct {
	logger *slog.Logger
	config safecheck.EmailConfig
}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier(logger *slog.Logger, cfg safecheck.EmailConfig) *LogNotifier {
	return &LogNotifier{logger: logger, config: cfg}
}

func (n *LogNotifier) NotifySubmitted(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	n.log(ctx, "submitted", submittedEmail(n.config, to, rec), rec)
	return nil
}

func (n *LogNotifier) NotifySupervisorApproved(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	n.log(ctx, "supervisor approved", supervisorApprovedEmail(n.config, to, rec), rec)
	return nil
}

func (n *LogNotifier) NotifyRejected(ctx context.Context, to []string, rec *safecheck.Inspection, by safecheck.User, comments string) error {
	n.log(ctx, "rejected", rejectedEmail(n.config, to, rec, by, comments), rec)
	return nil
}

func (n *LogNotifier) log(ctx context.Context, event string, msg safecheck.Email, rec *safecheck.Inspection) {
	if len(msg.To) == 0 {
		return
	}
	n.logger.InfoContext(ctx, "MOCK EMAIL: inspection "+event,
		slog.String("to", strings.Join(msg.To, ",")),
		slog.String("subject", msg.Subject),
		slog.String("inspection_id", rec.ID.String()),
		slog.String("url", recordURL(n.config, rec)),
	)
}
