package http

import "github.com/labstack/echo/v4"

// registerRoutes sets up all routes for the server.
// All routes are defined in this single file for easy navigation.
func (s *Server) registerRoutes() {
	// Health check routes (public)
	s.echo.GET("/health", s.handleHealthCheck)
	s.echo.GET("/health/live", s.handleLivenessCheck)
	s.echo.GET("/health/ready", s.handleReadinessCheck)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	// API routes (require an identity from the upstream authenticator)
	api := s.echo.Group("/api")
	api.Use(s.RequireUser())
	if s.rateLimiter != nil {
		api.Use(s.rateLimiter.Middleware())
	}

	// Inspections
	api.GET("/inspections", s.handleListInspections)
	api.GET("/inspections/export", s.handleExportInspections)
	api.POST("/inspections/:kind", s.handleCreateInspection)
	api.GET("/inspections/:kind/:id", s.handleGetInspection)
	api.DELETE("/inspections/:kind/:id", s.handleDeleteInspection)
	api.PUT("/inspections/:kind/:id/header", s.handleUpdateHeader)
	api.PUT("/inspections/:kind/:id/items/:itemId", s.handleUpdateItem)

	// Workflow
	api.POST("/inspections/:kind/:id/submit", s.handleSubmitInspection)
	api.POST("/inspections/:kind/:id/approve", s.handleApproveInspection)
	api.POST("/inspections/:kind/:id/reject", s.handleRejectInspection)

	// Reports
	api.GET("/inspections/:kind/:id/stats", s.handleGetStats)
	api.GET("/inspections/:kind/:id/report", s.handleGetReport)
	api.POST("/inspections/:kind/:id/report/archive", s.handleArchiveReport)

	// Analytics and audit
	api.GET("/analytics", s.handleGetAnalytics)
	api.GET("/audit", s.handleGetAuditTrail)
	api.GET("/audit/export", s.handleExportAuditTrail)

	// Locally archived reports
	if s.reportsDir != "" {
		api.Static("/reports", s.reportsDir)
	}
}
