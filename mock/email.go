package mock

import (
	"context"
	"sync"

	"github.com/dukerupert/safecheck"
)

// Compile-time interface check
var _ safecheck.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of safecheck.Notifier.
type Notifier struct {
	NotifySubmittedFn          func(ctx context.Context, to []string, rec *safecheck.Inspection) error
	NotifySupervisorApprovedFn func(ctx context.Context, to []string, rec *safecheck.Inspection) error
	NotifyRejectedFn           func(ctx context.Context, to []string, rec *safecheck.Inspection, by safecheck.User, comments string) error

	// Tracking sent notifications for assertions
	mu   sync.Mutex
	Sent []SentNotification
}

// SentNotification records details of a notification for testing assertions.
type SentNotification struct {
	Type         string
	To           []string
	InspectionID string
	By           string
	Comments     string
}

func (n *Notifier) record(s SentNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, s)
}

// Notifications returns a copy of the recorded notifications.
func (n *Notifier) Notifications() []SentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentNotification(nil), n.Sent...)
}

func (n *Notifier) NotifySubmitted(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	n.record(SentNotification{Type: "submitted", To: to, InspectionID: rec.ID.String()})
	if n.NotifySubmittedFn != nil {
		return n.NotifySubmittedFn(ctx, to, rec)
	}
	return nil
}

func (n *Notifier) NotifySupervisorApproved(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	n.record(SentNotification{Type: "supervisor_approved", To: to, InspectionID: rec.ID.String()})
	if n.NotifySupervisorApprovedFn != nil {
		return n.NotifySupervisorApprovedFn(ctx, to, rec)
	}
	return nil
}

func (n *Notifier) NotifyRejected(ctx context.Context, to []string, rec *safecheck.Inspection, by safecheck.User, comments string) error {
	n.record(SentNotification{Type: "rejected", To: to, InspectionID: rec.ID.String(), By: by.Name, Comments: comments})
	if n.NotifyRejectedFn != nil {
		return n.NotifyRejectedFn(ctx, to, rec, by, comments)
	}
	return nil
}
