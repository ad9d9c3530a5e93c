// Package report renders inspection reports, summary lists and the audit
// trail as CSV, HTML and XLSX, and archives rendered reports to file
// storage.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/safecheck"
)

// Format is an export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat parses an export format. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatCSV, FormatHTML, FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", safecheck.Invalid("Unknown export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Filename returns a download name for a report of one record.
func Filename(r *safecheck.Report, f Format) string {
	rec := r.Inspection
	return fmt.Sprintf("%s_%s_%s.%s",
		rec.Kind, sanitizeFilename(rec.Label()), r.GeneratedAt.Format("20060102_150405"), f)
}

// ListFilename returns a download name for a list export.
func ListFilename(name string, now time.Time, f Format) string {
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(name), now.Format("20060102_150405"), f)
}

func sanitizeFilename(filename string) string {
	if filename == "" {
		return "inspection"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, filename)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func approvalText(a *safecheck.Approval) string {
	if a == nil {
		return ""
	}
	s := fmt.Sprintf("%s (%s)", a.ApprovedBy, formatTime(a.ApprovedAt))
	if a.Comments != "" {
		s += ": " + a.Comments
	}
	return s
}

func quantityText(item safecheck.ChecklistItem) string {
	if !item.IsStockItem() {
		return ""
	}
	return fmt.Sprintf("%d/%d", item.CurrentQuantity, item.RequiredQuantity)
}
