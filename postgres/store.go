package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/safecheck"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check
var _ safecheck.KeyValueStore = (*Store)(nil)

// Store keeps values in the kv_store table. Revisions are compared inside
// the UPDATE itself, so concurrent writers across processes are safe.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a store over pool. Run Migrate first.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (safecheck.Entry, error) {
	var e safecheck.Entry
	err := s.pool.QueryRow(ctx,
		`SELECT value, revision FROM kv_store WHERE key = $1`, key,
	).Scan(&e.Value, &e.Revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return safecheck.Entry{}, nil
	}
	if err != nil {
		return safecheck.Entry{}, safecheck.StorageFailure("Failed to read "+key, err)
	}
	return e, nil
}

// Put stores value if key is still at the expected revision.
func (s *Store) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	if expected == 0 {
		var rev int64
		err := s.pool.QueryRow(ctx,
			`INSERT INTO kv_store (key, value) VALUES ($1, $2) RETURNING revision`,
			key, value,
		).Scan(&rev)
		if isUniqueViolation(err) {
			return 0, safecheck.Conflict("Key %q already exists", key)
		}
		if err != nil {
			return 0, safecheck.StorageFailure("Failed to write "+key, err)
		}
		return rev, nil
	}

	var rev int64
	err := s.pool.QueryRow(ctx,
		`UPDATE kv_store
		    SET value = $2, revision = revision + 1, updated_at = NOW()
		  WHERE key = $1 AND revision = $3
		RETURNING revision`,
		key, value, expected,
	).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) || isSerializationFailure(err) {
		return 0, safecheck.Conflict("Key %q is no longer at revision %d", key, expected)
	}
	if err != nil {
		return 0, safecheck.StorageFailure("Failed to write "+key, err)
	}
	return rev, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return safecheck.StorageFailure("Failed to delete "+key, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
