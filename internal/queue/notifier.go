package queue

import (
	"context"

	"github.com/dukerupert/safecheck"
)

// Compile-time interface check
var _ safecheck.Notifier = (*Notifier)(nil)

// Notifier queues notifications for delivery by a WorkerPool instead of
// sending them inline. Every method returns nil once the job is queued.
type Notifier struct {
	next  safecheck.Notifier
	queue *Queue
}

// NewNotifier wraps next so its sends run on the queue.
func NewNotifier(next safecheck.Notifier, queue *Queue) *Notifier {
	return &Notifier{next: next, queue: queue}
}

func (n *Notifier) NotifySubmitted(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	rec, to = rec.Clone(), append([]string(nil), to...)
	n.queue.Enqueue("submitted", rec.ID, func(ctx context.Context) error {
		return n.next.NotifySubmitted(ctx, to, rec)
	})
	return nil
}

func (n *Notifier) NotifySupervisorApproved(ctx context.Context, to []string, rec *safecheck.Inspection) error {
	rec, to = rec.Clone(), append([]string(nil), to...)
	n.queue.Enqueue("supervisor_approved", rec.ID, func(ctx context.Context) error {
		return n.next.NotifySupervisorApproved(ctx, to, rec)
	})
	return nil
}

func (n *Notifier) NotifyRejected(ctx context.Context, to []string, rec *safecheck.Inspection, by safecheck.User, comments string) error {
	rec, to = rec.Clone(), append([]string(nil), to...)
	n.queue.Enqueue("rejected", rec.ID, func(ctx context.Context) error {
		return n.next.NotifyRejected(ctx, to, rec, by, comments)
	})
	return nil
}
