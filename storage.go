package safecheck

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Entry is a stored value together with the store revision it was read at.
// A missing key reads as an empty value at revision 0.
type Entry struct {
	Value    []byte
	Revision int64
}

// KeyValueStore is the persistence collaborator: whole JSON values stored
// under string keys. Writes are compare-and-set on the key's revision.
type KeyValueStore interface {
	// Get returns the value stored under key. A missing key returns an
	// Entry with a nil Value and revision 0, not an error.
	Get(ctx context.Context, key string) (Entry, error)

	// Put stores value under key if the key's current revision equals
	// expected, and returns the new revision. Use 0 to create a key.
	// Returns ECONFLICT if the key was written since it was read.
	Put(ctx context.Context, key string, value []byte, expected int64) (int64, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}

// InspectionRepository loads and saves whole records. Drafts and
// submitted-or-later records live in separate collections per kind;
// callers never see the split.
type InspectionRepository interface {
	// GetAll returns every record of the kind, drafts included.
	GetAll(ctx context.Context, kind Kind) ([]*Inspection, error)

	// FindByID returns one record of the kind.
	// Returns ENOTFOUND if the record does not exist.
	FindByID(ctx context.Context, kind Kind, id uuid.UUID) (*Inspection, error)

	// Upsert saves rec into the collection its status belongs to and
	// removes it from the other one. rec.Revision must match the stored
	// revision (0 for a new record); on success it is incremented.
	// Returns ECONFLICT on a stale revision.
	Upsert(ctx context.Context, rec *Inspection) error

	// Delete removes a record. Returns ENOTFOUND if it does not exist.
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error
}

// FileStorage defines operations for file storage.
type FileStorage interface {
	// Upload uploads a file and returns its URL.
	// The key is the storage path/identifier for the file.
	// The contentType should be a valid MIME type (e.g., "text/csv").
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (url string, err error)

	// Delete removes a file from storage.
	// Returns nil if the file doesn't exist.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for a stored file.
	GetURL(key string) string

	// Exists checks if a file exists in storage.
	Exists(ctx context.Context, key string) (bool, error)
}

// StorageConfig holds configuration for report file storage.
type StorageConfig struct {
	// Provider is the storage provider ("local" or "s3").
	Provider string

	// Local storage configuration
	LocalPath string
	LocalURL  string

	// S3 storage configuration
	S3Bucket  string
	S3Region  string
	S3BaseURL string
}
