package mock

import (
	"context"

	"github.com/dukerupert/safecheck"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ safecheck.InspectionService = (*InspectionService)(nil)

// InspectionService is a mock implementation of safecheck.InspectionService.
type InspectionService struct {
	CreateInspectionFn    func(ctx context.Context, user safecheck.User, kind safecheck.Kind, header safecheck.Header) (*safecheck.Inspection, error)
	FindInspectionByIDFn  func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error)
	FindInspectionsFn     func(ctx context.Context, user safecheck.User, filter safecheck.SummaryFilter) ([]safecheck.InspectionSummary, int, error)
	UpdateHeaderFn        func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, upd safecheck.HeaderUpdate) (*safecheck.Inspection, error)
	UpdateItemFn          func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, itemID string, upd safecheck.ItemUpdate) (*safecheck.Inspection, error)
	SubmitInspectionFn    func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error)
	ApproveInspectionFn   func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, comments string) (*safecheck.Inspection, error)
	RejectInspectionFn    func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, comments string) (*safecheck.Inspection, error)
	DeleteInspectionFn    func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) error
	GetInspectionReportFn func(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Report, error)
	ListReportsFn         func(ctx context.Context, user safecheck.User, filter safecheck.SummaryFilter) ([]*safecheck.Report, error)
	GetAnalyticsFn        func(ctx context.Context, user safecheck.User, filter safecheck.AnalyticsFilter) (*safecheck.AnalyticsSummary, error)
	GetAuditTrailFn       func(ctx context.Context, user safecheck.User, filter safecheck.AuditFilter) ([]safecheck.AuditTrailEntry, error)
}

func (s *InspectionService) CreateInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, header safecheck.Header) (*safecheck.Inspection, error) {
	if s.CreateInspectionFn != nil {
		return s.CreateInspectionFn(ctx, user, kind, header)
	}
	return safecheck.NewWorkflow().Create(user, kind, header)
}

func (s *InspectionService) FindInspectionByID(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error) {
	if s.FindInspectionByIDFn != nil {
		return s.FindInspectionByIDFn(ctx, user, kind, id)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (s *InspectionService) FindInspections(ctx context.Context, user safecheck.User, filter safecheck.SummaryFilter) ([]safecheck.InspectionSummary, int, error) {
	if s.FindInspectionsFn != nil {
		return s.FindInspectionsFn(ctx, user, filter)
	}
	return []safecheck.InspectionSummary{}, 0, nil
}

func (s *InspectionService) UpdateHeader(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, upd safecheck.HeaderUpdate) (*safecheck.Inspection, error) {
	if s.UpdateHeaderFn != nil {
		return s.UpdateHeaderFn(ctx, user, kind, id, upd)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (s *InspectionService) UpdateItem(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, itemID string, upd safecheck.ItemUpdate) (*safecheck.Inspection, error) {
	if s.UpdateItemFn != nil {
		return s.UpdateItemFn(ctx, user, kind, id, itemID, upd)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (s *InspectionService) SubmitInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error) {
	if s.SubmitInspectionFn != nil {
		return s.SubmitInspectionFn(ctx, user, kind, id)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (s *InspectionService) ApproveInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, comments string) (*safecheck.Inspection, error) {
	if s.ApproveInspectionFn != nil {
		return s.ApproveInspectionFn(ctx, user, kind, id, comments)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (s *InspectionService) RejectInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID, comments string) (*safecheck.Inspection, error) {
	if s.RejectInspectionFn != nil {
		return s.RejectInspectionFn(ctx, user, kind, id, comments)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (s *InspectionService) DeleteInspection(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) error {
	if s.DeleteInspectionFn != nil {
		return s.DeleteInspectionFn(ctx, user, kind, id)
	}
	return nil
}

func (s *InspectionService) GetInspectionReport(ctx context.Context, user safecheck.User, kind safecheck.Kind, id uuid.UUID) (*safecheck.Report, error) {
	if s.GetInspectionReportFn != nil {
		return s.GetInspectionReportFn(ctx, user, kind, id)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (s *InspectionService) ListReports(ctx context.Context, user safecheck.User, filter safecheck.SummaryFilter) ([]*safecheck.Report, error) {
	if s.ListReportsFn != nil {
		return s.ListReportsFn(ctx, user, filter)
	}
	return []*safecheck.Report{}, nil
}

func (s *InspectionService) GetAnalytics(ctx context.Context, user safecheck.User, filter safecheck.AnalyticsFilter) (*safecheck.AnalyticsSummary, error) {
	if s.GetAnalyticsFn != nil {
		return s.GetAnalyticsFn(ctx, user, filter)
	}
	return safecheck.AggregateStats(nil, filter)
}

func (s *InspectionService) GetAuditTrail(ctx context.Context, user safecheck.User, filter safecheck.AuditFilter) ([]safecheck.AuditTrailEntry, error) {
	if s.GetAuditTrailFn != nil {
		return s.GetAuditTrailFn(ctx, user, filter)
	}
	return []safecheck.AuditTrailEntry{}, nil
}
