package http

import (
	"log/slog"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/internal/validation"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleCreateInspection(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	kind, err := safecheck.ParseKind(c.Param("kind"))
	if err != nil {
		return err
	}

	// Header fields are optional while drafting; required-ness is
	// enforced at submit.
	var header safecheck.Header
	if err := c.Bind(&header); err != nil {
		return safecheck.Invalid("Invalid request body")
	}

	inspection, err := s.inspectionService.CreateInspection(ctx, user, kind, header)
	if err != nil {
		return err
	}

	s.log(c).Info("inspection created",
		slog.String("inspection_id", inspection.ID.String()),
		slog.String("kind", string(kind)),
	)

	return RespondCreated(c, inspection)
}

func (s *Server) handleGetInspection(c echo.Context) error {
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

	inspection, err := s.inspectionService.FindInspectionByID(ctx, user, kind, id)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleListInspections(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req validation.ListInspectionsRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}

	summaries, total, err := s.inspectionService.FindInspections(ctx, user, req.Filter())
	if err != nil {
		return err
	}

	return RespondList(c, summaries, total, req.Offset, req.Limit)
}

func (s *Server) handleDeleteInspection(c echo.Context) error {
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

	if err := s.inspectionService.DeleteInspection(ctx, user, kind, id); err != nil {
		return err
	}

	return RespondNoContent(c)
}

func (s *Server) handleUpdateHeader(c echo.Context) error {
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

	var upd safecheck.HeaderUpdate
	if err := c.Bind(&upd); err != nil {
		return safecheck.Invalid("Invalid request body")
	}

	inspection, err := s.inspectionService.UpdateHeader(ctx, user, kind, id, upd)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleUpdateItem(c echo.Context) error {
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

	itemID, err := requireParam(c, "itemId")
	if err != nil {
		return err
	}

	var req validation.UpdateItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inspection, err := s.inspectionService.UpdateItem(ctx, user, kind, id, itemID, req.Update())
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleSubmitInspection(c echo.Context) error {
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

	inspection, err := s.inspectionService.SubmitInspection(ctx, user, kind, id)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleApproveInspection(c echo.Context) error {
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

	var req validation.ApproveRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inspection, err := s.inspectionService.ApproveInspection(ctx, user, kind, id, validation.SanitizeInput(req.Comments))
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleRejectInspection(c echo.Context) error {
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

	var req validation.RejectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inspection, err := s.inspectionService.RejectInspection(ctx, user, kind, id, validation.SanitizeInput(req.Comments))
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}
