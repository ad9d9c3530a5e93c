package safecheck

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Audit action tags.
const (
	ActionCreated           = "created"
	ActionHeaderUpdated     = "header_updated"
	ActionItemRated         = "item_rated"
	ActionItemUpdated       = "item_updated"
	ActionSubmitted         = "submitted"
	ActionSupervisorApprove = "supervisor_approve"
	ActionSupervisorReject  = "supervisor_reject"
	ActionAdminApprove      = "admin_approve"
	ActionAdminReject       = "admin_reject"
)

// AuditEntry is one append-only entry of a record's audit log.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// AppendAudit returns a copy of rec with one entry appended. Existing
// entries are never modified.
func AppendAudit(rec *Inspection, user User, action, details string, now time.Time) *Inspection {
	c := rec.Clone()
	c.appendAudit(user, action, details, now)
	return c
}

func (i *Inspection) appendAudit(user User, action, details string, now time.Time) {
	i.AuditLog = append(i.AuditLog, AuditEntry{
		Timestamp: now,
		User:      user.Name,
		Action:    action,
		Details:   details,
	})
}

// AuditTrailEntry is an audit entry decorated with its owning record.
type AuditTrailEntry struct {
	AuditEntry
	InspectionID uuid.UUID `json:"inspectionId"`
	Kind         Kind      `json:"kind"`
	Category     string    `json:"category"`
	Label        string    `json:"label"`
}

// FlattenAuditLogs merges the audit logs of every record into one trail,
// newest first.
func FlattenAuditLogs(records []*Inspection) []AuditTrailEntry {
	var trail []AuditTrailEntry
	for _, rec := range records {
		for _, e := range rec.AuditLog {
			trail = append(trail, AuditTrailEntry{
				AuditEntry:   e,
				InspectionID: rec.ID,
				Kind:         rec.Kind,
				Category:     rec.Kind.Label(),
				Label:        rec.Label(),
			})
		}
	}
	sort.SliceStable(trail, func(a, b int) bool {
		return trail[a].Timestamp.After(trail[b].Timestamp)
	})
	return trail
}

// AuditFilter defines search criteria for the audit trail. Zero fields
// match everything. User and Action match case-insensitive substrings.
type AuditFilter struct {
	User   string     `json:"user,omitempty"`
	Action string     `json:"action,omitempty"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
	Kind   *Kind      `json:"kind,omitempty"`
}

// Match reports whether the entry satisfies every set criterion.
func (f AuditFilter) Match(e AuditTrailEntry) bool {
	if f.User != "" && !containsFold(e.User, f.User) {
		return false
	}
	if f.Action != "" && !containsFold(e.Action, f.Action) {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if f.Kind != nil && e.Kind != *f.Kind {
		return false
	}
	return true
}

// FilterAuditTrail returns the entries matching the filter, preserving order.
func FilterAuditTrail(trail []AuditTrailEntry, f AuditFilter) []AuditTrailEntry {
	out := make([]AuditTrailEntry, 0, len(trail))
	for _, e := range trail {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
