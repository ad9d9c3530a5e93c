package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/safecheck"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// withTimeout creates a context with a timeout for handler operations.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), DefaultTimeout)
}

// parseUUID parses a UUID from a string, returning a domain error if invalid.
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, safecheck.Invalid("Invalid ID format")
	}
	return id, nil
}

// requireParam extracts a required route parameter, returning error if empty.
func requireParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", safecheck.Invalid("%s is required", name)
	}
	return value, nil
}

// requireUUIDParam extracts and parses a required UUID route parameter.
func requireUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	value, err := requireParam(c, name)
	if err != nil {
		return uuid.UUID{}, err
	}
	return parseUUID(value)
}

// requireRecordParams extracts the kind and id of the addressed record.
func requireRecordParams(c echo.Context) (safecheck.Kind, uuid.UUID, error) {
	kind, err := safecheck.ParseKind(c.Param("kind"))
	if err != nil {
		return "", uuid.UUID{}, err
	}
	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return "", uuid.UUID{}, err
	}
	return kind, id, nil
}

// requireUser extracts the acting user from context.
func requireUser(c echo.Context) (safecheck.User, error) {
	user := safecheck.UserFromContext(c.Request().Context())
	if user == nil {
		return safecheck.User{}, safecheck.Unauthorized("Identity required")
	}
	return *user, nil
}

// bind binds the request body to a struct and validates it.
func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return safecheck.Invalid("Invalid request body")
	}
	if err := c.Validate(v); err != nil {
		return err
	}
	return nil
}

// bindQuery binds query parameters to a struct and validates it.
func bindQuery(c echo.Context, v interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, v); err != nil {
		return safecheck.Invalid("Invalid query parameters")
	}
	if err := c.Validate(v); err != nil {
		return err
	}
	return nil
}

// log returns the request-scoped logger.
func (s *Server) log(c echo.Context) *slog.Logger {
	return s.getRequestLogger(c)
}

// Health handlers
func (s *Server) handleHealthCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "ok"})
}

func (s *Server) handleLivenessCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "alive"})
}

func (s *Server) handleReadinessCheck(c echo.Context) error {
	if s.ready != nil {
		ctx, cancel := withTimeout(c)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.log(c).Warn("readiness check failed", slog.String("error", err.Error()))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return RespondOK(c, map[string]string{"status": "ready"})
}
