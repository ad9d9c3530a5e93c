package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukerupert/safecheck"
)

// Render writes a report in the given format.
func Render(w io.Writer, r *safecheck.Report, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatHTML:
		return WriteHTML(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return safecheck.Invalid("Unknown export format %q", f)
}

// Archiver stores rendered reports in file storage.
type Archiver struct {
	storage safecheck.FileStorage
	logger  *slog.Logger
}

// NewArchiver creates a new archiver.
func NewArchiver(storage safecheck.FileStorage, logger *slog.Logger) *Archiver {
	return &Archiver{storage: storage, logger: logger}
}

// Key returns the storage key of a report rendered in format f.
func Key(r *safecheck.Report, f Format) string {
	rec := r.Inspection
	return fmt.Sprintf("reports/%s/%s/%s.%s", rec.Kind, rec.ID, r.GeneratedAt.UTC().Format("20060102T150405Z"), f)
}

// Archive renders the report and uploads it, returning its URL.
func (a *Archiver) Archive(ctx context.Context, r *safecheck.Report, f Format) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r, f); err != nil {
		return "", safecheck.Internal("Failed to render report", err)
	}

	key := Key(r, f)
	url, err := a.storage.Upload(ctx, key, &buf, f.ContentType())
	if err != nil {
		return "", safecheck.StorageFailure("Failed to archive report", err)
	}

	a.logger.Info("report archived",
		slog.String("inspection_id", r.Inspection.ID.String()),
		slog.String("format", string(f)),
		slog.String("key", key))
	return url, nil
}
