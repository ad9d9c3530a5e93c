// Package service implements safecheck.InspectionService on top of a
// repository, the lifecycle workflow and a notifier.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/internal/metrics"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ safecheck.InspectionService = (*InspectionService)(nil)

// Config holds the service settings.
type Config struct {
	// Rejection selects where rejected records go.
	Rejection safecheck.RejectionPolicy

	// Notification recipients. InspectorEmails maps an inspector name to
	// an address; inspectors without one are not told about rejections.
	SupervisorEmails []string
	AdminEmails      []string
	InspectorEmails  map[string]string

	AnalyticsCacheTTL time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// InspectionService enforces visibility and permissions, runs workflow
// operations against stored records and persists the results.
type InspectionService struct {
	repo     safecheck.InspectionRepository
	notifier safecheck.Notifier
	workflow *safecheck.Workflow
	metrics  *metrics.Metrics
	cache    *analyticsCache
	logger   *slog.Logger
	cfg      Config
}

// NewInspectionService creates a new service. metrics may be nil.
func NewInspectionService(repo safecheck.InspectionRepository, notifier safecheck.Notifier, m *metrics.Metrics, logger *slog.Logger, cfg Config) *InspectionService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rejection == "" {
		cfg.Rejection = safecheck.RejectKeepStatus
	}
	return &InspectionService{
		repo:     repo,
		notifier: notifier,
		workflow: &safecheck.Workflow{Rejection: cfg.Rejection, Now: cfg.Now},
		metrics:  m,
		cache:    newAnalyticsCache(cfg.AnalyticsCacheTTL),
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateInspection creates and stores a new draft.
func (s *InspectionService) CreateInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, header safecheck.Header) (*safecheck.Inspection, error) {
	if _, err := safecheck.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	rec, err := s.workflow.Create(user, kind, header)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	s.committed(ctx, user, rec, safecheck.ActionCreated)
	return rec, nil
}

// FindInspectionByID retrieves a record the user may view.
func (s *InspectionService) FindInspectionByID(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if _, err := safecheck.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	rec, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !user.CanView(rec) {
		return nil, safecheck.NotFound("Inspection not found")
	}
	return rec, nil
}

// FindInspections returns one page of summaries visible to the user.
func (s *InspectionService) FindInspections(ctx context.Context, user safecheck.User, filter safecheck.SummaryFilter) ([]safecheck.InspectionSummary, int, error) {
	if err := user.Validate(); err != nil {
		return nil, 0, err
	}
	records, err := s.loadAll(ctx, filter.Kind)
	if err != nil {
		return nil, 0, err
	}
	summaries, total := safecheck.ListSummaries(user, records, filter)
	return summaries, total, nil
}

// UpdateHeader changes header fields of a draft.
func (s *InspectionService) UpdateHeader(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, upd safecheck.HeaderUpdate) (*safecheck.Inspection, error) {
	return s.apply(ctx, user, kind, id, func(rec *safecheck.Inspection) (*safecheck.Inspection, error) {
		return s.workflow.UpdateHeader(rec, user, upd)
	})
}

// UpdateItem changes one checklist item of a draft.
func (s *InspectionService) UpdateItem(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, itemID string, upd safecheck.ItemUpdate) (*safecheck.Inspection, error) {
	return s.apply(ctx, user, kind, id, func(rec *safecheck.Inspection) (*safecheck.Inspection, error) {
		return s.workflow.UpdateItem(rec, user, itemID, upd)
	})
}

// SubmitInspection validates and submits a draft, then tells supervisors.
func (s *InspectionService) SubmitInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error) {
	rec, err := s.apply(ctx, user, kind, id, func(rec *safecheck.Inspection) (*safecheck.Inspection, error) {
		return s.workflow.Submit(rec, user)
	})
	if err != nil {
		var ve *safecheck.ValidationError
		if errors.As(err, &ve) {
			s.recordValidationFailure(kind)
			s.logger.Info("submission incomplete",
				slog.String("inspection_id", id.String()),
				slog.String("kind", string(kind)),
				slog.Any("missing_fields", ve.MissingFields),
				slog.Int("unrated", ve.UnratedCount))
		}
		return nil, err
	}
	s.notify(ctx, "submitted", rec, func(ctx context.Context) error {
		if len(s.cfg.SupervisorEmails) == 0 {
			return nil
		}
		return s.notifier.NotifySubmitted(ctx, s.cfg.SupervisorEmails, rec)
	})
	return rec, nil
}

// ApproveInspection approves at the stage matching the record's status.
// A supervisor approval tells the admins.
func (s *InspectionService) ApproveInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, comments string) (*safecheck.Inspection, error) {
	rec, err := s.apply(ctx, user, kind, id, func(rec *safecheck.Inspection) (*safecheck.Inspection, error) {
		return s.workflow.Approve(rec, user, comments)
	})
	if err != nil {
		return nil, err
	}
	if rec.Status == safecheck.InspectionStatusSupervisorApproved {
		s.notify(ctx, "supervisor_approved", rec, func(ctx context.Context) error {
			if len(s.cfg.AdminEmails) == 0 {
				return nil
			}
			return s.notifier.NotifySupervisorApproved(ctx, s.cfg.AdminEmails, rec)
		})
	}
	return rec, nil
}

// RejectInspection rejects at the stage matching the record's status and
// tells the inspector.
func (s *InspectionService) RejectInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, comments string) (*safecheck.Inspection, error) {
	rec, err := s.apply(ctx, user, kind, id, func(rec *safecheck.Inspection) (*safecheck.Inspection, error) {
		return s.workflow.Reject(rec, user, comments)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, "rejected", rec, func(ctx context.Context) error {
		to, ok := s.cfg.InspectorEmails[rec.InspectedBy]
		if !ok || to == "" {
			return nil
		}
		return s.notifier.NotifyRejected(ctx, []string{to}, rec, user, comments)
	})
	return rec, nil
}

// DeleteInspection removes a record. Requires the delete permission.
func (s *InspectionService) DeleteInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if !user.Can(safecheck.PermDelete) {
		return safecheck.Forbidden("Deleting inspections requires the delete permission")
	}
	if _, err := safecheck.ParseKind(string(kind)); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}

	s.cache.invalidate()
	s.recordTransition(kind, "deleted")
	s.logger.Info("inspection deleted",
		slog.String("inspection_id", id.String()),
		slog.String("kind", string(kind)),
		slog.String("user", user.Name))
	return nil
}

// GetInspectionReport returns the record with its computed statistics.
func (s *InspectionService) GetInspectionReport(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Report, error) {
	rec, err := s.FindInspectionByID(ctx, user, kind, id)
	if err != nil {
		return nil, err
	}
	return safecheck.BuildReport(rec, s.cfg.Now()), nil
}

// ListReports returns reports for every record visible to the user that
// matches the filter, newest first. Requires the export permission.
func (s *InspectionService) ListReports(ctx context.Context, user safecheck.User, filter safecheck.SummaryFilter) ([]*safecheck.Report, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if !user.Can(safecheck.PermExport) {
		return nil, safecheck.Forbidden("Exporting inspections requires the export permission")
	}
	records, err := s.loadAll(ctx, filter.Kind)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now()
	matched := safecheck.FilterRecords(user, records, filter)
	reports := make([]*safecheck.Report, len(matched))
	for i, rec := range matched {
		reports[i] = safecheck.BuildReport(rec, now)
	}
	return reports, nil
}

// GetAnalytics aggregates the submitted-or-later records visible to the
// user. Summaries are cached until the next write.
func (s *InspectionService) GetAnalytics(ctx context.Context, user safecheck.User, filter safecheck.AnalyticsFilter) (*safecheck.AnalyticsSummary, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if filter.Window == 0 {
		filter.Window = safecheck.DefaultAnalyticsWindow
	}
	if filter.Now.IsZero() {
		filter.Now = s.cfg.Now()
	}

	key := s.cache.key(user, filter)
	if summary, ok := s.cache.get(key); ok {
		s.recordCacheLookup(true)
		return summary, nil
	}
	s.recordCacheLookup(false)

	records, err := s.loadAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	persisted := records[:0:0]
	for _, rec := range safecheck.VisibleTo(user, records) {
		if rec.Status != safecheck.InspectionStatusDraft {
			persisted = append(persisted, rec)
		}
	}
	summary, err := safecheck.AggregateStats(persisted, filter)
	if err != nil {
		return nil, err
	}
	s.cache.set(key, summary)
	return summary, nil
}

// GetAuditTrail returns the flattened, filtered audit trail of every
// visible record. Requires the view_audit permission.
func (s *InspectionService) GetAuditTrail(ctx context.Context, user safecheck.User, filter safecheck.AuditFilter) ([]safecheck.AuditTrailEntry, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if !user.Can(safecheck.PermViewAudit) {
		return nil, safecheck.Forbidden("Viewing the audit trail requires the view_audit permission")
	}
	records, err := s.loadAll(ctx, filter.Kind)
	if err != nil {
		return nil, err
	}
	trail := safecheck.FlattenAuditLogs(safecheck.VisibleTo(user, records))
	return safecheck.FilterAuditTrail(trail, filter), nil
}

// apply loads a visible record, runs op on it and saves the result. Every
// workflow operation appends one audit entry; its action names the write.
func (s *InspectionService) apply(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, op func(*safecheck.Inspection) (*safecheck.Inspection, error)) (*safecheck.Inspection, error) {
	rec, err := s.FindInspectionByID(ctx, user, kind, id)
	if err != nil {
		return nil, err
	}
	next, err := op(rec)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, next); err != nil {
		return nil, err
	}
	s.committed(ctx, user, next, lastAction(next))
	return next, nil
}

// committed runs the bookkeeping that follows every successful write.
func (s *InspectionService) committed(ctx context.Context, user safecheck.User, rec *safecheck.Inspection, action string) {
	s.cache.invalidate()
	s.recordTransition(rec.Kind, action)
	s.logger.Info("inspection updated",
		slog.String("inspection_id", rec.ID.String()),
		slog.String("kind", string(rec.Kind)),
		slog.String("action", action),
		slog.String("status", string(rec.Status)),
		slog.String("user", user.Name),
		slog.String("request_id", safecheck.RequestIDFromContext(ctx)))
}

// notify sends a notification and logs, but never returns, a failure.
// The send is detached from request cancellation.
func (s *InspectionService) notify(ctx context.Context, event string, rec *safecheck.Inspection, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := send(ctx); err != nil {
		s.logger.Error("notification failed",
			slog.String("event", event),
			slog.String("inspection_id", rec.ID.String()),
			slog.String("error", err.Error()))
	}
}

// loadAll loads the records of one kind, or of every kind when kind is nil.
func (s *InspectionService) loadAll(ctx context.Context, kind *safecheck.Kind) ([]*safecheck.Inspection, error) {
	kinds := safecheck.Kinds
	if kind != nil {
		if _, err := safecheck.ParseKind(string(*kind)); err != nil {
			return nil, err
		}
		kinds = []safecheck.Kind{*kind}
	}
	var out []*safecheck.Inspection
	for _, k := range kinds {
		records, err := s.repo.GetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func lastAction(rec *safecheck.Inspection) string {
	if n := len(rec.AuditLog); n > 0 {
		return rec.AuditLog[n-1].Action
	}
	return ""
}

func (s *InspectionService) recordTransition(kind safecheck.Kind, action string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(kind), action)
	}
}

func (s *InspectionService) recordValidationFailure(kind safecheck.Kind) {
	if s.metrics != nil {
		s.metrics.RecordValidationFailure(string(kind))
	}
}

func (s *InspectionService) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}
