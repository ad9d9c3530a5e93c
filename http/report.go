package http

import (
	"io"
	"log/slog"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/internal/validation"
	"github.com/dukerupert/safecheck/report"
	"github.com/labstack/echo/v4"
)

// StatsResponse is the computed view of one record without the record itself.
type StatsResponse struct {
	Stats     safecheck.Stats                    `json:"stats"`
	Breakdown map[string]safecheck.CategoryStats `json:"breakdown"`
	Condition safecheck.Condition                `json:"condition"`
}

// ArchiveResponse describes an archived report.
type ArchiveResponse struct {
	URL    string        `json:"url"`
	Key    string        `json:"key"`
	Format report.Format `json:"format"`
}

// requireExportFormat parses the format query parameter and checks that
// the user may export when a file format is requested.
func requireExportFormat(c echo.Context, user safecheck.User) (report.Format, error) {
	var req validation.ExportRequest
	if err := bindQuery(c, &req); err != nil {
		return "", err
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		return "", err
	}
	if format != report.FormatJSON && !user.Can(safecheck.PermExport) {
		return "", safecheck.Forbidden("Exporting requires the export permission")
	}
	return format, nil
}

func (s *Server) handleGetStats(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	kind, id, err := requireRecordParams(c)
	if err != nil {
		return err
	}

	r, err := s.inspectionService.GetInspectionReport(ctx, user, kind, id)
	if err != nil {
		return err
	}

	return RespondOK(c, StatsResponse{
		Stats:     r.Stats,
		Breakdown: r.Breakdown,
		Condition: r.Condition,
	})
}

func (s *Server) handleGetReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	kind, id, err := requireRecordParams(c)
	if err != nil {
		return err
	}

	format, err := requireExportFormat(c, user)
	if err != nil {
		return err
	}

	r, err := s.inspectionService.GetInspectionReport(ctx, user, kind, id)
	if err != nil {
		return err
	}

	if format == report.FormatJSON {
		return RespondOK(c, r)
	}
	return RespondFile(c, format, report.Filename(r, format), func(w io.Writer) error {
		return report.Render(w, r, format)
	})
}

func (s *Server) handleArchiveReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	kind, id, err := requireRecordParams(c)
	if err != nil {
		return err
	}

	format, err := requireExportFormat(c, user)
	if err != nil {
		return err
	}
	if !user.Can(safecheck.PermExport) {
		return safecheck.Forbidden("Archiving requires the export permission")
	}

	if s.archiver == nil {
		return safecheck.Errorf(safecheck.ESTORAGE, "Report archiving is not configured")
	}

	r, err := s.inspectionService.GetInspectionReport(ctx, user, kind, id)
	if err != nil {
		return err
	}

	url, err := s.archiver.Archive(ctx, r, format)
	if err != nil {
		return err
	}

	s.log(c).Info("report archive requested",
		slog.String("inspection_id", id.String()),
		slog.String("format", string(format)),
	)

	return RespondCreated(c, ArchiveResponse{URL: url, Key: report.Key(r, format), Format: format})
}

func (s *Server) handleExportInspections(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var list validation.ListInspectionsRequest
	if err := bindQuery(c, &list); err != nil {
		return err
	}

	format, err := requireExportFormat(c, user)
	if err != nil {
		return err
	}

	reports, err := s.inspectionService.ListReports(ctx, user, list.Filter())
	if err != nil {
		return err
	}

	filename := report.ListFilename("inspections", s.now(), format)
	switch format {
	case report.FormatCSV:
		return RespondFile(c, format, filename, func(w io.Writer) error {
			return report.WriteSummariesCSV(w, reports)
		})
	case report.FormatXLSX:
		return RespondFile(c, format, filename, func(w io.Writer) error {
			return report.WriteSummariesXLSX(w, reports)
		})
	case report.FormatJSON:
		if reports == nil {
			reports = []*safecheck.Report{}
		}
		return RespondOK(c, reports)
	}
	return safecheck.Invalid("Inspection lists export as csv, xlsx or json")
}
