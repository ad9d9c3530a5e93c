package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Identity headers set by the upstream authenticator.
const (
	HeaderUserName        = "X-User-Name"
	HeaderUserRole        = "X-User-Role"
	HeaderUserEmail       = "X-User-Email"
	HeaderUserPermissions = "X-User-Permissions"
)

const (
	// Default timeout for handler operations.
	DefaultTimeout = 10 * time.Second
)

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware; the ID also travels on the request context
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := safecheck.NewContextWithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))

	// Logger middleware with request ID
	s.echo.Use(s.requestLoggerMiddleware())

	if s.metrics != nil {
		s.echo.Use(s.metrics.Middleware())
	}

	// CORS middleware (configure as needed)
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			HeaderUserName, HeaderUserRole, HeaderUserEmail, HeaderUserPermissions,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID, echo.HeaderContentDisposition},
	}))

	// Custom error handler
	s.echo.HTTPErrorHandler = s.httpErrorHandler
}

// requestLoggerMiddleware creates a middleware that logs requests with context.
func (s *Server) requestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			// Create request-scoped logger
			logger := s.logger.With(
				slog.String("request_id", requestID),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
			)
			c.Set("logger", logger)

			err := next(c)
			if err != nil {
				// Write the error response now so the logged status is final.
				c.Error(err)
			}

			// Log request completion
			duration := time.Since(start)
			status := c.Response().Status

			logAttrs := []any{
				slog.Int("status", status),
				slog.Duration("duration", duration),
			}

			if err != nil && status >= 500 {
				logAttrs = append(logAttrs, slog.String("error", err.Error()))
				logger.Error("request failed", logAttrs...)
			} else if status >= 500 {
				logger.Error("request completed with server error", logAttrs...)
			} else if status >= 400 {
				if err != nil {
					logAttrs = append(logAttrs, slog.String("error", err.Error()))
				}
				logger.Warn("request completed with client error", logAttrs...)
			} else {
				logger.Info("request completed", logAttrs...)
			}

			return nil
		}
	}
}

// httpErrorHandler handles errors and returns appropriate responses.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = HandleError(c, s.getRequestLogger(c), err)
}

// RequireUser is a middleware that builds the acting user from the
// identity headers and attaches it to the request context. Requests
// without a usable identity are rejected with 401.
func (s *Server) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := userFromHeaders(c.Request().Header)
			if err != nil {
				s.getRequestLogger(c).Debug("identity headers missing or invalid")
				return err
			}

			ctx := safecheck.NewContextWithUser(c.Request().Context(), user)
			c.SetRequest(c.Request().WithContext(ctx))

			logger := s.getRequestLogger(c).With(slog.String("user", user.Name))
			c.Set("logger", logger)
			c.Set("user", user)

			return next(c)
		}
	}
}

// userFromHeaders parses the identity headers. X-User-Permissions is an
// optional comma-separated override of the role's default permissions.
func userFromHeaders(h http.Header) (*safecheck.User, error) {
	user := &safecheck.User{
		Name:  strings.TrimSpace(h.Get(HeaderUserName)),
		Role:  safecheck.Role(strings.ToLower(strings.TrimSpace(h.Get(HeaderUserRole)))),
		Email: strings.TrimSpace(h.Get(HeaderUserEmail)),
	}
	if raw := h.Get(HeaderUserPermissions); raw != "" {
		user.Permissions = []safecheck.Permission{}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				user.Permissions = append(user.Permissions, safecheck.Permission(p))
			}
		}
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// getRequestLogger retrieves the request-scoped logger from context.
func (s *Server) getRequestLogger(c echo.Context) *slog.Logger {
	if logger, ok := c.Get("logger").(*slog.Logger); ok {
		return logger
	}
	return s.logger
}
