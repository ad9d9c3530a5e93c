package safecheck

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// InspectionSummary is the unified list row for records of every kind.
type InspectionSummary struct {
	ID                 uuid.UUID        `json:"id"`
	Kind               Kind             `json:"kind"`
	Label              string           `json:"label"`
	InspectedBy        string           `json:"inspectedBy"`
	Date               string           `json:"date"`
	Status             InspectionStatus `json:"status"`
	CompletionRate     int              `json:"completionRate"`
	ComplianceRate     int              `json:"complianceRate"`
	CriticalIssueCount int              `json:"criticalIssueCount"`
	Condition          Condition        `json:"condition"`
	CreatedAt          time.Time        `json:"createdAt"`
	SavedAt            *time.Time       `json:"savedAt,omitempty"`
}

// Summarize builds the list row of a record.
func Summarize(rec *Inspection) InspectionSummary {
	s := rec.Stats(time.Now())
	return InspectionSummary{
		ID:                 rec.ID,
		Kind:               rec.Kind,
		Label:              rec.Label(),
		InspectedBy:        rec.InspectedBy,
		Date:               rec.Date,
		Status:             rec.Status,
		CompletionRate:     s.CompletionRate,
		ComplianceRate:     s.ComplianceRate,
		CriticalIssueCount: s.CriticalCount,
		Condition:          ConditionOf(s),
		CreatedAt:          rec.CreatedAt,
		SavedAt:            rec.SavedAt,
	}
}

// SummaryFilter defines criteria for listing records.
type SummaryFilter struct {
	Kind   *Kind
	Status *InspectionStatus

	// Pagination
	Offset int
	Limit  int
}

// VisibleTo returns the records the user may view, preserving order.
func VisibleTo(user User, records []*Inspection) []*Inspection {
	out := make([]*Inspection, 0, len(records))
	for _, rec := range records {
		if user.CanView(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterRecords applies the visibility rule first, then the kind and status
// criteria, and orders the result newest first. Pagination is not applied.
func FilterRecords(user User, records []*Inspection, filter SummaryFilter) []*Inspection {
	visible := VisibleTo(user, records)
	out := visible[:0:0]
	for _, rec := range visible {
		if filter.Kind != nil && rec.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID.String() < out[b].ID.String()
	})
	return out
}

// ListSummaries returns one page of summaries and the total number of
// matching records. Counts never include records the user cannot view.
func ListSummaries(user User, records []*Inspection, filter SummaryFilter) ([]InspectionSummary, int) {
	matched := FilterRecords(user, records, filter)
	total := len(matched)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]InspectionSummary, len(matched))
	for i, rec := range matched {
		out[i] = Summarize(rec)
	}
	return out, total
}
