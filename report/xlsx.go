package report

import (
	"fmt"
	"io"

	"github.com/dukerupert/safecheck"
	"github.com/xuri/excelize/v2"
)

// styles holds the cell styles shared by every sheet of a workbook.
type styles struct {
	title    int
	header   int
	data     int
	critical int
	poor     int
}

func newStyles(f *excelize.File) (*styles, error) {
	var s styles
	var err error
	border := func(color string) []excelize.Border {
		return []excelize.Border{
			{Type: "left", Color: color, Style: 1},
			{Type: "right", Color: color, Style: 1},
			{Type: "top", Color: color, Style: 1},
			{Type: "bottom", Color: color, Style: 1},
		}
	}
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return nil, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border("000000"),
	}); err != nil {
		return nil, err
	}
	if s.data, err = f.NewStyle(&excelize.Style{Border: border("CCCCCC")}); err != nil {
		return nil, err
	}
	if s.critical, err = f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#FDE2E2"}, Pattern: 1},
		Border: border("CCCCCC"),
	}); err != nil {
		return nil, err
	}
	if s.poor, err = f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#FFF4D6"}, Pattern: 1},
		Border: border("CCCCCC"),
	}); err != nil {
		return nil, err
	}
	return &s, nil
}

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) write(style int, values ...any) {
	if w.err != nil {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		w.err = err
		return
	}
	if style != 0 && len(values) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(values), w.row)
		w.err = w.f.SetCellStyle(w.sheet, cell, last, style)
	}
}

func (w *sheetWriter) skip() {
	w.row++
}

// WriteXLSX renders one report as a workbook with a Report sheet and an
// Audit Log sheet.
func WriteXLSX(w io.Writer, r *safecheck.Report) error {
	rec := r.Inspection
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	sw := &sheetWriter{f: f, sheet: sheet}

	sw.write(st.title, rec.Kind.Label()+" Inspection Report")
	sw.write(0, "Generated", formatTime(r.GeneratedAt))
	sw.write(0, "Status", string(rec.Status))
	sw.write(0, "Condition", string(r.Condition))
	for _, hf := range rec.Header.Fields(rec.Kind) {
		sw.write(0, hf.Label, hf.Value)
	}
	sw.write(0, "Supervisor Approval", approvalText(rec.SupervisorApproval))
	sw.write(0, "Admin Approval", approvalText(rec.AdminApproval))

	sw.skip()
	sw.write(st.header, "Total", "Completed", "Compliant", "Poor", "Critical", "N/A", "Compliance (%)", "Completion (%)")
	sw.write(st.data, r.Stats.Total, r.Stats.Completed, r.Stats.CompliantCount, r.Stats.PoorCount,
		r.Stats.CriticalCount, r.Stats.NotApplicableCount, r.Stats.ComplianceRate, r.Stats.CompletionRate)

	sw.skip()
	sw.write(st.header, "ID", "Category", "Item", "Rating", "Quantity", "Expiry", "Requires Action", "Comments")
	for _, item := range rec.Items {
		style := st.data
		switch safecheck.Classify(rec.Kind, item.Rating) {
		case safecheck.ClassCritical:
			style = st.critical
		case safecheck.ClassPoor:
			style = st.poor
		}
		sw.write(style, item.ID, item.Category, item.Item, safecheck.RatingLabel(item.Rating),
			quantityText(item), item.ExpiryDate, item.RequiresAction, item.Comments)
	}
	if sw.err != nil {
		return sw.err
	}
	f.SetColWidth(sheet, "A", "B", 22)
	f.SetColWidth(sheet, "C", "C", 48)
	f.SetColWidth(sheet, "D", "H", 16)

	const auditSheet = "Audit Log"
	if _, err := f.NewSheet(auditSheet); err != nil {
		return err
	}
	aw := &sheetWriter{f: f, sheet: auditSheet}
	aw.write(st.header, "Timestamp", "User", "Action", "Details")
	for _, e := range r.AuditLog {
		aw.write(st.data, formatTime(e.Timestamp), e.User, e.Action, e.Details)
	}
	if aw.err != nil {
		return aw.err
	}
	f.SetColWidth(auditSheet, "A", "C", 20)
	f.SetColWidth(auditSheet, "D", "D", 60)

	return f.Write(w)
}

// WriteSummariesXLSX renders one row per report on a single sheet.
func WriteSummariesXLSX(w io.Writer, reports []*safecheck.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	const sheet = "Inspections"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	sw := &sheetWriter{f: f, sheet: sheet}

	header := make([]any, len(summaryColumns))
	for i, c := range summaryColumns {
		header[i] = c
	}
	sw.write(st.header, header...)
	for _, r := range reports {
		row := summaryRow(r)
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		// Numeric columns stay numeric so they can be charted.
		values[6] = r.Stats.CompletionRate
		values[7] = r.Stats.ComplianceRate
		values[8] = r.Stats.CriticalCount

		style := st.data
		if r.Stats.CriticalCount > 0 {
			style = st.critical
		}
		sw.write(style, values...)
	}
	if sw.err != nil {
		return sw.err
	}
	f.SetColWidth(sheet, "A", "A", 38)
	f.SetColWidth(sheet, "B", "L", 18)

	return f.Write(w)
}
