package safecheck

import "context"

// Notifier tells reviewers and inspectors about workflow transitions.
// A failed notification never fails the transition that triggered it.
type Notifier interface {
	// NotifySubmitted tells supervisors a record awaits their review.
	NotifySubmitted(ctx context.Context, to []string, rec *Inspection) error

	// NotifySupervisorApproved tells admins a record awaits final approval.
	NotifySupervisorApproved(ctx context.Context, to []string, rec *Inspection) error

	// NotifyRejected tells the inspector a record was rejected.
	NotifyRejected(ctx context.Context, to []string, rec *Inspection, by User, comments string) error
}

// EmailConfig holds configuration for email notifications.
type EmailConfig struct {
	// Provider is the email provider ("log" or "postmark").
	Provider string

	// FromAddress is the sender email address.
	FromAddress string

	// FromName is the sender display name.
	FromName string

	// BaseURL is prepended to record links in message bodies.
	BaseURL string

	// Postmark-specific configuration
	PostmarkServerToken  string
	PostmarkAccountToken string
}

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}
