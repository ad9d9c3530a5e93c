package safecheck

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RejectionPolicy decides where a rejected record goes.
type RejectionPolicy string

const (
	// RejectKeepStatus leaves the status unchanged: a supervisor rejection
	// stays submitted and an admin rejection stays supervisor_approved.
	// Only the audit log records the rejection.
	RejectKeepStatus RejectionPolicy = "keep"

	// RejectReturnToDraft sends the record back to draft, clears its
	// approvals and makes it editable again.
	RejectReturnToDraft RejectionPolicy = "draft"
)

// ParseRejectionPolicy parses a policy name. Empty selects RejectKeepStatus.
func ParseRejectionPolicy(s string) (RejectionPolicy, error) {
	switch RejectionPolicy(s) {
	case "", RejectKeepStatus:
		return RejectKeepStatus, nil
	case RejectReturnToDraft:
		return RejectReturnToDraft, nil
	}
	return "", Invalid("Unknown rejection policy %q", s)
}

// Workflow enacts the inspection lifecycle. Every operation validates the
// acting user and the record's status, works on a clone and returns the
// new record; the input record is never modified.
type Workflow struct {
	Rejection RejectionPolicy

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewWorkflow returns a workflow with the keep-status rejection policy.
func NewWorkflow() *Workflow {
	return &Workflow{Rejection: RejectKeepStatus, Now: time.Now}
}

func (w *Workflow) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

// ItemUpdate defines fields that can be updated on a checklist item.
// Pointer fields: nil = don't update, non-nil = update to this value.
type ItemUpdate struct {
	Rating          *Rating `json:"rating,omitempty"`
	Comments        *string `json:"comments,omitempty"`
	CurrentQuantity *int    `json:"currentQuantity,omitempty"`
	ExpiryDate      *string `json:"expiryDate,omitempty"`
}

// Create returns a new draft of the kind, seeded from the kind's template
// and carrying a single "created" audit entry. A blank inspectedBy
// defaults to the acting user.
func (w *Workflow) Create(user User, kind Kind, header Header) (*Inspection, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	items, err := NewTemplate(kind)
	if err != nil {
		return nil, err
	}
	if header.InspectedBy == "" {
		header.InspectedBy = user.Name
	}
	if err := checkInspectedBy(user, user.Name, header.InspectedBy); err != nil {
		return nil, err
	}

	now := w.now()
	rec := &Inspection{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    InspectionStatusDraft,
		Items:     items,
		CreatedAt: now,
	}
	if err := header.asUpdate().apply(kind, &rec.Header); err != nil {
		return nil, err
	}
	for i := range rec.Items {
		rec.Items[i].refresh(kind, now)
	}
	rec.appendAudit(user, ActionCreated, fmt.Sprintf("Created %s inspection", kind.Label()), now)
	return rec, nil
}

// UpdateHeader changes header fields of a draft.
func (w *Workflow) UpdateHeader(rec *Inspection, user User, upd HeaderUpdate) (*Inspection, error) {
	if err := w.requireEditor(rec, user); err != nil {
		return nil, err
	}
	changed := upd.changed()
	if len(changed) == 0 {
		return nil, Invalid("No header fields to update")
	}
	if upd.InspectedBy != nil {
		if err := checkInspectedBy(user, rec.InspectedBy, *upd.InspectedBy); err != nil {
			return nil, err
		}
	}

	c := rec.Clone()
	if err := upd.apply(c.Kind, &c.Header); err != nil {
		return nil, err
	}
	c.appendAudit(user, ActionHeaderUpdated, "Updated "+strings.Join(changed, ", "), w.now())
	return c, nil
}

// checkInspectedBy refuses to hand a record to another inspector unless
// the user can see every record; otherwise they would lose access to it.
func checkInspectedBy(user User, current, next string) error {
	if next == current || user.Can(PermViewAll) {
		return nil
	}
	return Forbidden("Only users with the view_all permission can change inspectedBy")
}

// RateItem sets the rating of one item of a draft. Unrated clears it.
func (w *Workflow) RateItem(rec *Inspection, user User, itemID string, rating Rating) (*Inspection, error) {
	return w.UpdateItem(rec, user, itemID, ItemUpdate{Rating: &rating})
}

// UpdateItem changes one checklist item of a draft. Changing a stock
// item's quantity re-infers its status; derived fields are recomputed.
func (w *Workflow) UpdateItem(rec *Inspection, user User, itemID string, upd ItemUpdate) (*Inspection, error) {
	if err := w.requireEditor(rec, user); err != nil {
		return nil, err
	}
	idx := rec.Item(itemID)
	if idx < 0 {
		return nil, NotFound("Checklist item %q not found", itemID)
	}
	item := rec.Items[idx]

	fields := make(map[string]string)
	if upd.Rating != nil && *upd.Rating != Unrated && !IsValidRating(rec.Kind, *upd.Rating) {
		fields["rating"] = fmt.Sprintf("%q is not a %s rating", *upd.Rating, rec.Kind.Label())
	}
	if upd.CurrentQuantity != nil {
		switch {
		case !item.IsStockItem():
			fields["currentQuantity"] = "item is not a stock item"
		case *upd.CurrentQuantity < 0:
			fields["currentQuantity"] = "must not be negative"
		}
	}
	if upd.ExpiryDate != nil {
		if rec.Kind != KindFirstAid {
			fields["expiryDate"] = "only first aid items expire"
		} else if *upd.ExpiryDate != "" {
			if _, err := time.Parse(DateLayout, *upd.ExpiryDate); err != nil {
				fields["expiryDate"] = "must be a date in YYYY-MM-DD format"
			}
		}
	}
	if len(fields) > 0 {
		return nil, ErrorWithFields(fields)
	}

	var changed []string
	if upd.Rating != nil {
		item.Rating = *upd.Rating
		changed = append(changed, "rating")
	}
	if upd.Comments != nil {
		item.Comments = *upd.Comments
		changed = append(changed, "comments")
	}
	if upd.CurrentQuantity != nil {
		item.CurrentQuantity = *upd.CurrentQuantity
		item.Rating = InferStockStatus(item)
		changed = append(changed, "currentQuantity")
	}
	if upd.ExpiryDate != nil {
		item.ExpiryDate = *upd.ExpiryDate
		changed = append(changed, "expiryDate")
	}
	if len(changed) == 0 {
		return nil, Invalid("No item fields to update")
	}

	now := w.now()
	item.refresh(rec.Kind, now)

	c := rec.Clone()
	c.Items[idx] = item
	if upd.Rating != nil && len(changed) == 1 {
		c.appendAudit(user, ActionItemRated, fmt.Sprintf("Rated %q as %s", item.Item, RatingLabel(item.Rating)), now)
	} else {
		c.appendAudit(user, ActionItemUpdated, fmt.Sprintf("Updated %q: %s", item.Item, strings.Join(changed, ", ")), now)
	}
	return c, nil
}

// Submit moves a complete draft to submitted. The check is atomic: every
// missing header field and the count of unrated items are reported
// together in a *ValidationError and the record is not changed.
func (w *Workflow) Submit(rec *Inspection, user User) (*Inspection, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if !user.Can(PermSubmit) {
		return nil, Forbidden("You do not have permission to submit inspections")
	}
	if !rec.IsEditable() {
		return nil, InvalidState("Inspection is %s and cannot be submitted", rec.Status)
	}
	if !user.Can(PermViewAll) && rec.InspectedBy != user.Name {
		return nil, Forbidden("Only %s can submit this inspection", rec.InspectedBy)
	}

	if verr := Validate(rec); verr != nil {
		return nil, verr
	}

	now := w.now()
	c := rec.Clone()
	for i := range c.Items {
		c.Items[i].refresh(c.Kind, now)
	}
	c.Status = InspectionStatusSubmitted
	c.SavedAt = &now
	c.appendAudit(user, ActionSubmitted, "Submitted for supervisor review", now)
	return c, nil
}

// Validate returns the submit precondition failures of a record, or nil.
func Validate(rec *Inspection) *ValidationError {
	missing := MissingHeaderFields(rec.Kind, rec.Header)
	unrated := 0
	for i := range rec.Items {
		if !rec.Items[i].IsRated(rec.Kind) {
			unrated++
		}
	}
	if len(missing) == 0 && unrated == 0 {
		return nil
	}
	return &ValidationError{MissingFields: missing, UnratedCount: unrated}
}

// reviewStage describes the approval stage that applies to a status.
type reviewStage struct {
	name          string
	permission    Permission
	approveAction string
	rejectAction  string
	approved      InspectionStatus
}

func stageFor(status InspectionStatus) (reviewStage, bool) {
	switch status {
	case InspectionStatusSubmitted:
		return reviewStage{
			name:          "supervisor",
			permission:    PermSupervisorReview,
			approveAction: ActionSupervisorApprove,
			rejectAction:  ActionSupervisorReject,
			approved:      InspectionStatusSupervisorApproved,
		}, true
	case InspectionStatusSupervisorApproved:
		return reviewStage{
			name:          "admin",
			permission:    PermAdminReview,
			approveAction: ActionAdminApprove,
			rejectAction:  ActionAdminReject,
			approved:      InspectionStatusAdminApproved,
		}, true
	}
	return reviewStage{}, false
}

func (w *Workflow) requireStage(rec *Inspection, user User, verb string) (reviewStage, error) {
	if err := user.Validate(); err != nil {
		return reviewStage{}, err
	}
	stage, ok := stageFor(rec.Status)
	if !ok {
		return reviewStage{}, InvalidState("Inspection is %s and cannot be %s", rec.Status, verb)
	}
	if !user.Can(stage.permission) {
		return reviewStage{}, Forbidden("Only a user with %s review permission can act on a %s inspection", stage.name, rec.Status)
	}
	return stage, nil
}

// Approve records the review decision of the stage matching the record's
// status and advances it: submitted -> supervisor_approved ->
// admin_approved. Earlier approvals and audit entries are untouched.
func (w *Workflow) Approve(rec *Inspection, user User, comments string) (*Inspection, error) {
	stage, err := w.requireStage(rec, user, "approved")
	if err != nil {
		return nil, err
	}

	now := w.now()
	approval := &Approval{ApprovedBy: user.Name, ApprovedAt: now, Comments: comments}

	c := rec.Clone()
	switch stage.approved {
	case InspectionStatusSupervisorApproved:
		c.SupervisorApproval = approval
	case InspectionStatusAdminApproved:
		c.AdminApproval = approval
	}
	c.Status = stage.approved
	details := fmt.Sprintf("Approved by %s", stage.name)
	if comments != "" {
		details += ": " + comments
	}
	c.appendAudit(user, stage.approveAction, details, now)
	return c, nil
}

// Reject records a rejection at the stage matching the record's status.
// Comments are required. Where the record goes is set by the policy.
func (w *Workflow) Reject(rec *Inspection, user User, comments string) (*Inspection, error) {
	stage, err := w.requireStage(rec, user, "rejected")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(comments) == "" {
		return nil, ErrorWithFields(map[string]string{"comments": "is required when rejecting"})
	}

	now := w.now()
	c := rec.Clone()
	if w.Rejection == RejectReturnToDraft {
		c.Status = InspectionStatusDraft
		c.SupervisorApproval = nil
		c.AdminApproval = nil
	}
	c.appendAudit(user, stage.rejectAction, fmt.Sprintf("Rejected by %s: %s", stage.name, comments), now)
	return c, nil
}

// requireEditor checks that rec is a draft the user may edit.
func (w *Workflow) requireEditor(rec *Inspection, user User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if !rec.IsEditable() {
		return InvalidState("Inspection is %s and can no longer be edited", rec.Status)
	}
	if !user.CanView(rec) {
		return Forbidden("Only %s can edit this inspection", rec.InspectedBy)
	}
	return nil
}

// asUpdate converts the non-empty fields of h into an update.
func (h Header) asUpdate() HeaderUpdate {
	ptr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	return HeaderUpdate{
		InspectedBy:      ptr(h.InspectedBy),
		Date:             ptr(h.Date),
		Contractor:       ptr(h.Contractor),
		Location:         ptr(h.Location),
		Building:         ptr(h.Building),
		Floor:            ptr(h.Floor),
		SerialNumber:     ptr(h.SerialNumber),
		ExtinguisherType: ptr(h.ExtinguisherType),
		Capacity:         ptr(h.Capacity),
		KitID:            ptr(h.KitID),
		KitType:          ptr(h.KitType),
	}
}
