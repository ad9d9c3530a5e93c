// Package redis provides a safecheck.KeyValueStore on Redis.
//
// Each key is a hash holding the value and its revision. Writes use
// WATCH/MULTI so a write based on a stale read is rejected by Redis itself.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/dukerupert/safecheck"
	"github.com/redis/go-redis/v9"
)

// Compile-time interface check
var _ safecheck.KeyValueStore = (*Store)(nil)

var errStale = errors.New("stale revision")

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key, e.g. "safecheck:".
	Prefix string
}

// Store keeps values in Redis hashes.
type Store struct {
	client *redis.Client
	prefix string
}

// Open connects to Redis and pings it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, safecheck.StorageFailure("Failed to connect to Redis", err)
	}
	logger.Info("redis store connected", slog.String("addr", cfg.Addr), slog.Int("db", cfg.DB))
	return NewStore(client, cfg.Prefix), nil
}

// NewStore returns a store over an existing client.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (safecheck.Entry, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return safecheck.Entry{}, safecheck.StorageFailure("Failed to read "+key, err)
	}
	if len(fields) == 0 {
		return safecheck.Entry{}, nil
	}
	rev, err := strconv.ParseInt(fields["revision"], 10, 64)
	if err != nil {
		return safecheck.Entry{}, safecheck.StorageFailure("Stored revision of "+key+" is corrupt", err)
	}
	return safecheck.Entry{Value: []byte(fields["value"]), Revision: rev}, nil
}

// Put stores value if key is still at the expected revision.
func (s *Store) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	k := s.key(key)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, k, "revision").Int64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != expected {
			return errStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, "value", value, "revision", expected+1)
			return nil
		})
		return err
	}, k)

	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		return 0, safecheck.Conflict("Key %q is no longer at revision %d", key, expected)
	}
	if err != nil {
		return 0, safecheck.StorageFailure("Failed to write "+key, err)
	}
	return expected + 1, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return safecheck.StorageFailure("Failed to delete "+key, err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
