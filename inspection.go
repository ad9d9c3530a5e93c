package safecheck

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Inspection is one inspection record of any kind: header, ordered
// checklist, approvals and its own audit log.
type Inspection struct {
	ID   uuid.UUID `json:"id"`
	Kind Kind      `json:"kind"`
	Header

	Status InspectionStatus `json:"status"`
	Items  []ChecklistItem  `json:"items"`

	SupervisorApproval *Approval `json:"supervisorApproval,omitempty"`
	AdminApproval      *Approval `json:"adminApproval,omitempty"`

	AuditLog []AuditEntry `json:"auditLog"`

	CreatedAt time.Time  `json:"createdAt"`
	SavedAt   *time.Time `json:"savedAt,omitempty"`

	// Revision increments on every successful save; a save carrying a
	// stale revision is rejected with ECONFLICT.
	Revision int64 `json:"revision"`
}

// Approval records a review decision at one stage.
type Approval struct {
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
	Comments   string    `json:"comments"`
}

// InspectionStatus represents the lifecycle status of an inspection.
type InspectionStatus string

const (
	InspectionStatusDraft              InspectionStatus = "draft"
	InspectionStatusSubmitted          InspectionStatus = "submitted"
	InspectionStatusSupervisorApproved InspectionStatus = "supervisor_approved"
	InspectionStatusAdminApproved      InspectionStatus = "admin_approved"
	InspectionStatusCompleted          InspectionStatus = "completed"
)

// InspectionStatuses lists every status in lifecycle order.
var InspectionStatuses = []InspectionStatus{
	InspectionStatusDraft,
	InspectionStatusSubmitted,
	InspectionStatusSupervisorApproved,
	InspectionStatusAdminApproved,
	InspectionStatusCompleted,
}

// IsValid returns true if the status is a recognized value.
func (s InspectionStatus) IsValid() bool {
	switch s {
	case InspectionStatusDraft, InspectionStatusSubmitted, InspectionStatusSupervisorApproved,
		InspectionStatusAdminApproved, InspectionStatusCompleted:
		return true
	}
	return false
}

// IsEditable returns true if header fields and items can still be modified.
func (s InspectionStatus) IsEditable() bool {
	return s == InspectionStatusDraft
}

// CanTransitionTo returns true if this status can transition to the target status.
//
// Rejections that keep the status are not transitions. Returning to draft is
// only enacted under RejectReturnToDraft. Completed is set by an external
// process and is terminal.
func (s InspectionStatus) CanTransitionTo(target InspectionStatus) bool {
	switch s {
	case InspectionStatusDraft:
		return target == InspectionStatusSubmitted
	case InspectionStatusSubmitted:
		return target == InspectionStatusSupervisorApproved || target == InspectionStatusDraft
	case InspectionStatusSupervisorApproved:
		return target == InspectionStatusAdminApproved || target == InspectionStatusDraft
	case InspectionStatusAdminApproved:
		return target == InspectionStatusCompleted
	default:
		return false
	}
}

// IsEditable returns true if the record can still be modified.
func (i *Inspection) IsEditable() bool {
	return i.Status.IsEditable()
}

// Label returns the location-or-contractor label shown in lists.
func (i *Inspection) Label() string {
	switch i.Kind {
	case KindHSE:
		if i.Contractor != "" {
			return i.Contractor
		}
		return i.Location
	default:
		if i.Location != "" {
			return i.Location
		}
		return i.Building
	}
}

// Item returns the index of the item with the given id, or -1.
func (i *Inspection) Item(id string) int {
	for idx := range i.Items {
		if i.Items[idx].ID == id {
			return idx
		}
	}
	return -1
}

// Clone returns a deep copy of the record. Workflow operations mutate a
// clone so a failed operation never leaves the original half-changed.
func (i *Inspection) Clone() *Inspection {
	c := *i
	c.Items = append([]ChecklistItem(nil), i.Items...)
	c.AuditLog = append([]AuditEntry(nil), i.AuditLog...)
	if i.SupervisorApproval != nil {
		a := *i.SupervisorApproval
		c.SupervisorApproval = &a
	}
	if i.AdminApproval != nil {
		a := *i.AdminApproval
		c.AdminApproval = &a
	}
	if i.SavedAt != nil {
		t := *i.SavedAt
		c.SavedAt = &t
	}
	return &c
}

// InspectionService defines operations for managing inspections.
type InspectionService interface {
	// CreateInspection creates a draft of the given kind from the kind's
	// checklist template.
	CreateInspection(ctx context.Context, user User, kind Kind, header Header) (*Inspection, error)

	// FindInspectionByID retrieves a record the user may view.
	// Returns ENOTFOUND if the record does not exist or is not visible.
	FindInspectionByID(ctx context.Context, user User, kind Kind, id uuid.UUID) (*Inspection, error)

	// FindInspections returns summaries visible to the user, filtered before
	// sorting and pagination, with the total count.
	FindInspections(ctx context.Context, user User, filter SummaryFilter) ([]InspectionSummary, int, error)

	// UpdateHeader changes header fields of a draft.
	// Returns ESTATE if the record is no longer a draft.
	UpdateHeader(ctx context.Context, user User, kind Kind, id uuid.UUID, upd HeaderUpdate) (*Inspection, error)

	// UpdateItem changes one checklist item of a draft.
	// Returns ESTATE if the record is no longer a draft.
	UpdateItem(ctx context.Context, user User, kind Kind, id uuid.UUID, itemID string, upd ItemUpdate) (*Inspection, error)

	// SubmitInspection validates and submits a draft.
	// Returns a *ValidationError when fields or ratings are missing.
	SubmitInspection(ctx context.Context, user User, kind Kind, id uuid.UUID) (*Inspection, error)

	// ApproveInspection approves at the stage matching the record's status.
	ApproveInspection(ctx context.Context, user User, kind Kind, id uuid.UUID, comments string) (*Inspection, error)

	// RejectInspection rejects at the stage matching the record's status.
	// Returns EINVALID if comments are empty.
	RejectInspection(ctx context.Context, user User, kind Kind, id uuid.UUID, comments string) (*Inspection, error)

	// DeleteInspection removes a record. Requires the delete permission.
	DeleteInspection(ctx context.Context, user User, kind Kind, id uuid.UUID) error

	// GetInspectionReport returns the record with its computed statistics.
	GetInspectionReport(ctx context.Context, user User, kind Kind, id uuid.UUID) (*Report, error)

	// ListReports returns reports for every record visible to the user.
	ListReports(ctx context.Context, user User, filter SummaryFilter) ([]*Report, error)

	// GetAnalytics aggregates records visible to the user.
	GetAnalytics(ctx context.Context, user User, filter AnalyticsFilter) (*AnalyticsSummary, error)

	// GetAuditTrail returns the flattened audit trail across all records.
	// Requires the view_audit permission.
	GetAuditTrail(ctx context.Context, user User, filter AuditFilter) ([]AuditTrailEntry, error)
}
