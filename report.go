package safecheck

import "time"

// Report is the serializable view of one record that exports render:
// the raw record plus its computed statistics and audit log.
type Report struct {
	Inspection  *Inspection              `json:"inspection"`
	Stats       Stats                    `json:"stats"`
	Breakdown   map[string]CategoryStats `json:"breakdown"`
	Condition   Condition                `json:"condition"`
	AuditLog    []AuditEntry             `json:"auditLog"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

// BuildReport computes the report of a record. The report holds a copy of
// the record whose derived item fields are brought up to date as of now.
func BuildReport(rec *Inspection, now time.Time) *Report {
	rec = rec.Clone()
	for i := range rec.Items {
		rec.Items[i].refresh(rec.Kind, now)
	}
	stats := rec.Stats(now)
	return &Report{
		Inspection:  rec,
		Stats:       stats,
		Breakdown:   CategoryBreakdown(rec.Kind, rec.Items),
		Condition:   ConditionOf(stats),
		AuditLog:    append([]AuditEntry(nil), rec.AuditLog...),
		GeneratedAt: now,
	}
}

// Categories returns the record's categories in checklist order.
func (r *Report) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range r.Inspection.Items {
		if !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	return out
}
