package mock

import (
	"context"
	"io"

	"github.com/dukerupert/safecheck"
	"github.com/google/uuid"
)

// Compile-time interface checks
var (
	_ safecheck.FileStorage          = (*FileStorage)(nil)
	_ safecheck.KeyValueStore        = (*KeyValueStore)(nil)
	_ safecheck.InspectionRepository = (*InspectionRepository)(nil)
)

// FileStorage is a mock implementation of safecheck.FileStorage.
type FileStorage struct {
	UploadFn func(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	DeleteFn func(ctx context.Context, key string) error
	GetURLFn func(key string) string
	ExistsFn func(ctx context.Context, key string) (bool, error)
}

func (s *FileStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if s.UploadFn != nil {
		return s.UploadFn(ctx, key, reader, contentType)
	}
	return "https://mock-storage.example.com/" + key, nil
}

func (s *FileStorage) Delete(ctx context.Context, key string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, key)
	}
	return nil
}

func (s *FileStorage) GetURL(key string) string {
	if s.GetURLFn != nil {
		return s.GetURLFn(key)
	}
	return "https://mock-storage.example.com/" + key
}

func (s *FileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if s.ExistsFn != nil {
		return s.ExistsFn(ctx, key)
	}
	return false, nil
}

// KeyValueStore is a mock implementation of safecheck.KeyValueStore.
type KeyValueStore struct {
	GetFn    func(ctx context.Context, key string) (safecheck.Entry, error)
	PutFn    func(ctx context.Context, key string, value []byte, expected int64) (int64, error)
	DeleteFn func(ctx context.Context, key string) error
	CloseFn  func() error
}

func (s *KeyValueStore) Get(ctx context.Context, key string) (safecheck.Entry, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, key)
	}
	return safecheck.Entry{}, nil
}

func (s *KeyValueStore) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	if s.PutFn != nil {
		return s.PutFn(ctx, key, value, expected)
	}
	return expected + 1, nil
}

func (s *KeyValueStore) Delete(ctx context.Context, key string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, key)
	}
	return nil
}

func (s *KeyValueStore) Close() error {
	if s.CloseFn != nil {
		return s.CloseFn()
	}
	return nil
}

// InspectionRepository is a mock implementation of safecheck.InspectionRepository.
type InspectionRepository struct {
	GetAllFn   func(ctx context.Context, kind safecheck.Kind) ([]*safecheck.Inspection, error)
	FindByIDFn func(ctx context.Context, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error)
	UpsertFn   func(ctx context.Context, rec *safecheck.Inspection) error
	DeleteFn   func(ctx context.Context, kind safecheck.Kind, id uuid.UUID) error
}

func (r *InspectionRepository) GetAll(ctx context.Context, kind safecheck.Kind) ([]*safecheck.Inspection, error) {
	if r.GetAllFn != nil {
		return r.GetAllFn(ctx, kind)
	}
	return []*safecheck.Inspection{}, nil
}

func (r *InspectionRepository) FindByID(ctx context.Context, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error) {
	if r.FindByIDFn != nil {
		return r.FindByIDFn(ctx, kind, id)
	}
	return nil, safecheck.NotFound("Inspection not found")
}

func (r *InspectionRepository) Upsert(ctx context.Context, rec *safecheck.Inspection) error {
	if r.UpsertFn != nil {
		return r.UpsertFn(ctx, rec)
	}
	rec.Revision++
	return nil
}

func (r *InspectionRepository) Delete(ctx context.Context, kind safecheck.Kind, id uuid.UUID) error {
	if r.DeleteFn != nil {
		return r.DeleteFn(ctx, kind, id)
	}
	return nil
}
