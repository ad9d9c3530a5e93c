package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/safecheck"
	"github.com/labstack/echo/v4"
)

// errorStatusCode maps domain error codes to HTTP status codes.
func errorStatusCode(code string) int {
	switch code {
	case safecheck.ENOTFOUND:
		return http.StatusNotFound
	case safecheck.EINVALID:
		return http.StatusBadRequest
	case safecheck.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case safecheck.EFORBIDDEN:
		return http.StatusForbidden
	case safecheck.ECONFLICT, safecheck.ESTATE:
		return http.StatusConflict
	case safecheck.ESTORAGE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusErrorCode maps an HTTP status raised by echo itself (unknown
// route, bad method, rate limit) back to an error code for the response.
func statusErrorCode(status int) string {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return safecheck.ENOTFOUND
	case http.StatusUnauthorized:
		return safecheck.EUNAUTHORIZED
	case http.StatusForbidden:
		return safecheck.EFORBIDDEN
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= 400 && status < 500 {
		return safecheck.EINVALID
	}
	return safecheck.EINTERNAL
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`

	// Set when a submit fails validation.
	MissingFields []string `json:"missingFields,omitempty"`
	UnratedCount  int      `json:"unratedCount,omitempty"`
}

// HandleError converts domain errors to appropriate HTTP responses.
// It logs internal and storage errors and returns user-safe messages.
func HandleError(c echo.Context, logger *slog.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		if he.Code >= 500 {
			logger.Error("http error",
				slog.Int("status", he.Code),
				slog.String("error", err.Error()),
			)
		}
		return c.JSON(he.Code, ErrorResponse{Error: statusErrorCode(he.Code), Message: msg})
	}

	code := safecheck.ErrorCode(err)
	resp := ErrorResponse{
		Error:   code,
		Message: safecheck.ErrorMessage(err),
		Fields:  safecheck.ErrorFields(err),
	}

	var verr *safecheck.ValidationError
	if errors.As(err, &verr) {
		resp.MissingFields = verr.MissingFields
		resp.UnratedCount = verr.UnratedCount
	}

	switch code {
	case safecheck.EINTERNAL:
		logger.Error("internal error",
			slog.String("error", err.Error()),
			slog.String("path", c.Path()),
			slog.String("method", c.Request().Method),
		)
		// Don't expose internal error details to clients
		resp.Message = "An internal error occurred."
	case safecheck.ESTORAGE:
		logger.Error("storage error",
			slog.String("error", err.Error()),
			slog.String("path", c.Path()),
		)
	}

	return c.JSON(errorStatusCode(code), resp)
}
