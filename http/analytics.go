package http

import (
	"io"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/internal/validation"
	"github.com/dukerupert/safecheck/report"
	"github.com/labstack/echo/v4"
)

// AuditTrailResponse is the filtered audit trail.
type AuditTrailResponse struct {
	Entries []safecheck.AuditTrailEntry `json:"entries"`
	Total   int                         `json:"total"`
}

func (s *Server) handleGetAnalytics(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req validation.AnalyticsRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}

	window, err := safecheck.ParseWindow(req.Window)
	if err != nil {
		return err
	}

	filter := safecheck.AnalyticsFilter{Window: window}
	if req.Kind != "" {
		kind := safecheck.Kind(req.Kind)
		filter.Kind = &kind
	}

	summary, err := s.inspectionService.GetAnalytics(ctx, user, filter)
	if err != nil {
		return err
	}

	return RespondOK(c, summary)
}

func (s *Server) handleGetAuditTrail(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req validation.AuditRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}

	trail, err := s.inspectionService.GetAuditTrail(ctx, user, req.Filter())
	if err != nil {
		return err
	}
	if trail == nil {
		trail = []safecheck.AuditTrailEntry{}
	}

	return RespondOK(c, AuditTrailResponse{Entries: trail, Total: len(trail)})
}

func (s *Server) handleExportAuditTrail(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}
	if !user.Can(safecheck.PermExport) {
		return safecheck.Forbidden("Exporting requires the export permission")
	}

	var req validation.AuditRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}

	trail, err := s.inspectionService.GetAuditTrail(ctx, user, req.Filter())
	if err != nil {
		return err
	}

	filename := report.ListFilename("audit_trail", s.now(), report.FormatCSV)
	return RespondFile(c, report.FormatCSV, filename, func(w io.Writer) error {
		return report.WriteAuditCSV(w, trail)
	})
}
