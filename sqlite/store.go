// Package sqlite provides an embedded safecheck.KeyValueStore on SQLite.
//
// Reads use a connection pool; writes go through a single connection so
// that the load/mutate/save cycles of one process never interleave inside
// SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time interface check
var _ safecheck.KeyValueStore = (*Store)(nil)

// Config holds database configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	BusyTimeout     time.Duration
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns the settings used by the server.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    10,
		BusyTimeout:     5 * time.Second,
		ConnMaxLifetime: time.Hour,
	}
}

// Store keeps values in the kv_store table of one database file.
type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
	logger  *slog.Logger
}

// Open opens (creating if needed) the database and migrates it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	dsn := buildDSN(cfg)

	readDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(cfg.MaxOpenConns)
	readDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	writeDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		readDB.Close()
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{readDB: readDB, writeDB: writeDB, logger: logger}
	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	logger.Info("sqlite store opened", slog.String("path", cfg.Path))
	return s, nil
}

// buildDSN constructs the data source name with per-connection pragmas.
func buildDSN(cfg Config) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(normal)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.writeDB, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Debug("applied migration", slog.String("source", r.Source.Path))
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (safecheck.Entry, error) {
	var e safecheck.Entry
	err := s.readDB.QueryRowContext(ctx,
		`SELECT value, revision FROM kv_store WHERE key = ?`, key,
	).Scan(&e.Value, &e.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return safecheck.Entry{}, nil
	}
	if err != nil {
		return safecheck.Entry{}, safecheck.StorageFailure("Failed to read "+key, err)
	}
	return e, nil
}

// Put stores value if key is still at the expected revision.
func (s *Store) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	var res sql.Result
	var err error
	if expected == 0 {
		res, err = s.writeDB.ExecContext(ctx,
			`INSERT INTO kv_store (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
			key, value)
	} else {
		res, err = s.writeDB.ExecContext(ctx,
			`UPDATE kv_store
			    SET value = ?, revision = revision + 1,
			        updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			  WHERE key = ? AND revision = ?`,
			value, key, expected)
	}
	if err != nil {
		return 0, safecheck.StorageFailure("Failed to write "+key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, safecheck.StorageFailure("Failed to write "+key, err)
	}
	if n == 0 {
		return 0, safecheck.Conflict("Key %q is no longer at revision %d", key, expected)
	}
	return expected + 1, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.writeDB.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return safecheck.StorageFailure("Failed to delete "+key, err)
	}
	return nil
}

// Ping checks both connections.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.readDB.PingContext(ctx); err != nil {
		return err
	}
	return s.writeDB.PingContext(ctx)
}

// Close closes both connection pools.
func (s *Store) Close() error {
	return errors.Join(s.readDB.Close(), s.writeDB.Close())
}
