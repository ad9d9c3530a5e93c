package http

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/internal/metrics"
	"github.com/dukerupert/safecheck/internal/validation"
	"github.com/dukerupert/safecheck/report"
	"github.com/labstack/echo/v4"
)

// Server represents the HTTP server with all its dependencies.
type Server struct {
	echo   *echo.Echo
	ln     net.Listener
	logger *slog.Logger

	// Configuration
	Addr string

	// Domain services
	inspectionService safecheck.InspectionService

	// Supporting services
	archiver    *report.Archiver
	metrics     *metrics.Metrics
	rateLimiter *RateLimiter
	ready       func(ctx context.Context) error
	reportsDir  string
	now         func() time.Time
}

// Config holds the configuration for creating a new Server.
type Config struct {
	Addr   string
	Logger *slog.Logger

	// Domain services
	InspectionService safecheck.InspectionService

	// Archiver uploads rendered reports. Archiving is unavailable when nil.
	Archiver *report.Archiver

	// Metrics instruments requests and serves /metrics when set.
	Metrics *metrics.Metrics

	// RateLimit configures per-user request limiting. A zero Rate
	// disables it.
	RateLimit RateLimitConfig

	// ReadinessCheck reports whether the backing store is reachable.
	ReadinessCheck func(ctx context.Context) error

	// ReportsDir, when set, is served under /api/reports so locally
	// archived reports resolve.
	ReportsDir string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewServer creates a new HTTP server with the given configuration.
func NewServer(cfg Config) *Server {
	s := &Server{
		Addr:              cfg.Addr,
		logger:            cfg.Logger,
		inspectionService: cfg.InspectionService,
		archiver:          cfg.Archiver,
		metrics:           cfg.Metrics,
		ready:             cfg.ReadinessCheck,
		reportsDir:        cfg.ReportsDir,
		now:               cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.RateLimit.Rate > 0 {
		s.rateLimiter = NewRateLimiter(cfg.Logger, cfg.RateLimit)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = validation.NewValidator()

	// Register middleware and routes
	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// Echo returns the underlying Echo instance.
// Use sparingly - prefer registering routes through Server methods.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Open starts the HTTP server.
func (s *Server) Open() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		if err := s.echo.Server.Serve(s.ln); err != nil {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("server started", slog.String("addr", s.ln.Addr().String()))
	return nil
}

// Close gracefully shuts down the HTTP server.
func (s *Server) Close(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Shutdown()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// URL returns the URL of the server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}
