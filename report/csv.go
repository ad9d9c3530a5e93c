package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/dukerupert/safecheck"
)

// WriteCSV renders one report: header fields, statistics, the checklist
// and the audit log, separated by blank rows.
func WriteCSV(w io.Writer, r *safecheck.Report) error {
	rec := r.Inspection
	writer := csv.NewWriter(w)

	writer.Write([]string{rec.Kind.Label() + " Inspection Report"})
	writer.Write([]string{"Generated", formatTime(r.GeneratedAt)})
	writer.Write([]string{"ID", rec.ID.String()})
	writer.Write([]string{"Status", string(rec.Status)})
	for _, f := range rec.Header.Fields(rec.Kind) {
		writer.Write([]string{f.Label, f.Value})
	}
	writer.Write([]string{"Supervisor Approval", approvalText(rec.SupervisorApproval)})
	writer.Write([]string{"Admin Approval", approvalText(rec.AdminApproval)})

	writer.Write([]string{})
	writer.Write([]string{"Summary"})
	writer.Write([]string{"Condition", string(r.Condition)})
	writer.Write([]string{"Total Items", strconv.Itoa(r.Stats.Total)})
	writer.Write([]string{"Completed", strconv.Itoa(r.Stats.Completed)})
	writer.Write([]string{"Compliant", strconv.Itoa(r.Stats.CompliantCount)})
	writer.Write([]string{"Poor", strconv.Itoa(r.Stats.PoorCount)})
	writer.Write([]string{"Critical", strconv.Itoa(r.Stats.CriticalCount)})
	writer.Write([]string{"Not Applicable", strconv.Itoa(r.Stats.NotApplicableCount)})
	writer.Write([]string{"Requires Action", strconv.Itoa(r.Stats.RequiresActionCount)})
	writer.Write([]string{"Compliance Rate (%)", strconv.Itoa(r.Stats.ComplianceRate)})
	writer.Write([]string{"Completion Rate (%)", strconv.Itoa(r.Stats.CompletionRate)})

	writer.Write([]string{})
	writer.Write([]string{"ID", "Category", "Item", "Rating", "Quantity", "Expiry", "Requires Action", "Comments"})
	for _, item := range rec.Items {
		writer.Write([]string{
			item.ID,
			item.Category,
			item.Item,
			safecheck.RatingLabel(item.Rating),
			quantityText(item),
			item.ExpiryDate,
			strconv.FormatBool(item.RequiresAction),
			item.Comments,
		})
	}

	writer.Write([]string{})
	writer.Write([]string{"Timestamp", "User", "Action", "Details"})
	for _, e := range r.AuditLog {
		writer.Write([]string{formatTime(e.Timestamp), e.User, e.Action, e.Details})
	}

	writer.Flush()
	return writer.Error()
}

var summaryColumns = []string{
	"ID", "Kind", "Label", "Inspected By", "Date", "Status",
	"Completion (%)", "Compliance (%)", "Critical Issues", "Condition", "Created", "Saved",
}

func summaryRow(r *safecheck.Report) []string {
	rec := r.Inspection
	return []string{
		rec.ID.String(),
		rec.Kind.Label(),
		rec.Label(),
		rec.InspectedBy,
		rec.Date,
		string(rec.Status),
		strconv.Itoa(r.Stats.CompletionRate),
		strconv.Itoa(r.Stats.ComplianceRate),
		strconv.Itoa(r.Stats.CriticalCount),
		string(r.Condition),
		formatTime(rec.CreatedAt),
		formatTimePtr(rec.SavedAt),
	}
}

// WriteSummariesCSV renders one row per report.
func WriteSummariesCSV(w io.Writer, reports []*safecheck.Report) error {
	writer := csv.NewWriter(w)
	writer.Write(summaryColumns)
	for _, r := range reports {
		writer.Write(summaryRow(r))
	}
	writer.Flush()
	return writer.Error()
}

var auditColumns = []string{"Timestamp", "User", "Action", "Details", "Kind", "Inspection", "Label"}

// WriteAuditCSV renders the audit trail, one row per entry.
func WriteAuditCSV(w io.Writer, trail []safecheck.AuditTrailEntry) error {
	writer := csv.NewWriter(w)
	writer.Write(auditColumns)
	for _, e := range trail {
		writer.Write([]string{
			formatTime(e.Timestamp),
			e.User,
			e.Action,
			e.Details,
			e.Category,
			e.InspectionID.String(),
			e.Label,
		})
	}
	writer.Flush()
	return writer.Error()
}
