package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/dukerupert/safecheck"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"formatTime":  formatTime,
	"approval":    approvalText,
	"ratingLabel": safecheck.RatingLabel,
	"quantity":    quantityText,
	"headerFields": func(rec *safecheck.Inspection) []safecheck.HeaderField {
		return rec.Header.Fields(rec.Kind)
	},
	"classify": func(kind safecheck.Kind, r safecheck.Rating) string {
		return string(safecheck.Classify(kind, r))
	},
}

// reportTemplate is the layout with the report page parsed into it.
var reportTemplate = template.Must(
	template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/report.html"),
)

// WriteHTML renders one report as a standalone HTML page.
func WriteHTML(w io.Writer, r *safecheck.Report) error {
	if err := reportTemplate.ExecuteTemplate(w, "report.html", r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
