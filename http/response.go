package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/report"
	"github.com/labstack/echo/v4"
)

// Common HTTP response helpers.

// RespondOK sends a 200 OK response with the given data.
func RespondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with the given data.
func RespondCreated(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// RespondNoContent sends a 204 No Content response.
func RespondNoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// ListResponse represents a paginated list response.
type ListResponse[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondList sends a paginated list response.
func RespondList[T any](c echo.Context, data []T, total, offset, limit int) error {
	if data == nil {
		data = []T{}
	}
	return c.JSON(http.StatusOK, ListResponse[T]{
		Data:   data,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	})
}

// RespondFile renders into a buffer and sends the result as a download.
// Rendering completes before any header is written, so a render failure
// still produces a normal error response.
func RespondFile(c echo.Context, format report.Format, filename string, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return safecheck.Internal("Failed to render export", err)
	}
	if format != report.FormatJSON && format != report.FormatHTML {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	}
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}
