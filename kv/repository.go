// Package kv implements safecheck.InspectionRepository over any
// safecheck.KeyValueStore.
//
// Each kind is persisted as two JSON arrays: its drafts and its
// submitted-or-later records. Every write reloads the whole array,
// applies one change and writes the whole array back with the revision it
// was read at. Writers in this process are serialized per kind; writers in
// other processes are caught by the store's compare-and-set and retried.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/dukerupert/safecheck"
	"github.com/google/uuid"
)

// DefaultMaxRetries bounds how often a write is retried after another
// writer changed the same collection.
const DefaultMaxRetries = 3

// errNoChange lets an update function skip the write.
var errNoChange = errors.New("no change")

// Compile-time interface check
var _ safecheck.InspectionRepository = (*Repository)(nil)

// Repository stores inspection records in a key/value store.
type Repository struct {
	store  safecheck.KeyValueStore
	logger *slog.Logger

	// MaxRetries is the number of reload-and-retry attempts after a
	// collection-level conflict.
	MaxRetries int

	mu    sync.Mutex
	locks map[safecheck.Kind]*sync.Mutex
}

// NewRepository returns a repository over store.
func NewRepository(store safecheck.KeyValueStore, logger *slog.Logger) *Repository {
	return &Repository{
		store:      store,
		logger:     logger,
		MaxRetries: DefaultMaxRetries,
		locks:      make(map[safecheck.Kind]*sync.Mutex),
	}
}

// lock serializes writers of one kind. Drafts share their kind's lock so a
// submit, which touches both collections, is one unit of work.
func (r *Repository) lock(kind safecheck.Kind) func() {
	r.mu.Lock()
	l, ok := r.locks[kind]
	if !ok {
		l = &sync.Mutex{}
		r.locks[kind] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// load reads one collection.
func (r *Repository) load(ctx context.Context, key string) ([]*safecheck.Inspection, int64, error) {
	entry, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	if len(entry.Value) == 0 {
		return nil, entry.Revision, nil
	}

	var records []*safecheck.Inspection
	if err := json.Unmarshal(entry.Value, &records); err != nil {
		return nil, 0, safecheck.StorageFailure("Stored collection "+key+" is corrupt", err)
	}
	return records, entry.Revision, nil
}

// update applies fn to one collection and writes the result back. fn is
// re-run on a freshly loaded collection when another writer got there
// first, so it must not depend on state from an earlier attempt.
func (r *Repository) update(ctx context.Context, key string, fn func([]*safecheck.Inspection) ([]*safecheck.Inspection, error)) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, rev, err := r.load(ctx, key)
		if err != nil {
			return err
		}
		records, err = fn(records)
		if errors.Is(err, errNoChange) {
			return nil
		}
		if err != nil {
			return err
		}

		data, err := json.Marshal(records)
		if err != nil {
			return safecheck.Internal("Failed to encode collection", err)
		}
		_, err = r.store.Put(ctx, key, data, rev)
		if err == nil {
			return nil
		}
		if !safecheck.IsErrorCode(err, safecheck.ECONFLICT) || attempt >= r.MaxRetries {
			return err
		}
		r.logger.Warn("collection changed during write, retrying",
			slog.String("key", key),
			slog.Int("attempt", attempt+1))
	}
}

// GetAll returns every record of the kind, drafts first. A record caught
// in both collections by an interrupted move is returned once, at its
// newest revision.
func (r *Repository) GetAll(ctx context.Context, kind safecheck.Kind) ([]*safecheck.Inspection, error) {
	if !kind.IsValid() {
		return nil, safecheck.Invalid("Unknown inspection kind %q", kind)
	}
	drafts, _, err := r.load(ctx, kind.DraftKey())
	if err != nil {
		return nil, err
	}
	saved, _, err := r.load(ctx, kind.CollectionKey())
	if err != nil {
		return nil, err
	}

	index := make(map[uuid.UUID]int, len(drafts)+len(saved))
	out := make([]*safecheck.Inspection, 0, len(drafts)+len(saved))
	for _, rec := range append(drafts, saved...) {
		if i, ok := index[rec.ID]; ok {
			if rec.Revision > out[i].Revision {
				out[i] = rec
			}
			continue
		}
		index[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out, nil
}

// FindByID returns one record of the kind.
func (r *Repository) FindByID(ctx context.Context, kind safecheck.Kind, id uuid.UUID) (*safecheck.Inspection, error) {
	records, err := r.GetAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	if i := indexOf(records, id); i >= 0 {
		return records[i], nil
	}
	return nil, safecheck.NotFound("Inspection not found")
}

// Upsert saves rec into the collection matching its status and removes
// any copy left in the other collection.
func (r *Repository) Upsert(ctx context.Context, rec *safecheck.Inspection) error {
	if !rec.Kind.IsValid() {
		return safecheck.Invalid("Unknown inspection kind %q", rec.Kind)
	}
	unlock := r.lock(rec.Kind)
	defer unlock()

	target, other := rec.Kind.CollectionKey(), rec.Kind.DraftKey()
	if rec.Status == safecheck.InspectionStatusDraft {
		target, other = other, target
	}

	current, err := r.GetAll(ctx, rec.Kind)
	if err != nil {
		return err
	}
	if i := indexOf(current, rec.ID); i >= 0 {
		if current[i].Revision != rec.Revision {
			return safecheck.Conflict("Inspection was modified by someone else (revision %d, expected %d)",
				current[i].Revision, rec.Revision)
		}
	} else if rec.Revision != 0 {
		return safecheck.NotFound("Inspection not found")
	}

	saved := rec.Clone()
	saved.Revision = rec.Revision + 1

	var previous *safecheck.Inspection
	err = r.update(ctx, target, func(records []*safecheck.Inspection) ([]*safecheck.Inspection, error) {
		previous = nil
		i := indexOf(records, rec.ID)
		if i < 0 {
			return append(records, saved), nil
		}
		if records[i].Revision != rec.Revision {
			return nil, safecheck.Conflict("Inspection was modified by someone else (revision %d, expected %d)",
				records[i].Revision, rec.Revision)
		}
		previous = records[i]
		records[i] = saved
		return records, nil
	})
	if err != nil {
		return err
	}

	err = r.update(ctx, other, func(records []*safecheck.Inspection) ([]*safecheck.Inspection, error) {
		if i := indexOf(records, rec.ID); i >= 0 && records[i].Revision > rec.Revision {
			return nil, safecheck.Conflict("Inspection was modified by someone else (revision %d, expected %d)",
				records[i].Revision, rec.Revision)
		}
		kept := removeStale(records, rec.ID, saved.Revision)
		if len(kept) == len(records) {
			return nil, errNoChange
		}
		return kept, nil
	})
	if safecheck.IsErrorCode(err, safecheck.ECONFLICT) {
		// The other collection gained a newer copy, or kept changing
		// past the retry limit. Take back this write so that one wins.
		if rerr := r.revert(ctx, target, saved, previous); rerr != nil {
			r.logger.Error("failed to revert write after conflict",
				slog.String("key", target),
				slog.String("inspection_id", rec.ID.String()),
				slog.String("error", rerr.Error()))
		}
		return err
	}
	if err != nil {
		// The record is saved; the stale copy is hidden by GetAll and
		// removed by the next write.
		r.logger.Warn("failed to remove stale copy",
			slog.String("key", other),
			slog.String("inspection_id", rec.ID.String()),
			slog.String("error", err.Error()))
	}

	rec.Revision = saved.Revision
	return nil
}

// Delete removes a record from whichever collection holds it.
func (r *Repository) Delete(ctx context.Context, kind safecheck.Kind, id uuid.UUID) error {
	if !kind.IsValid() {
		return safecheck.Invalid("Unknown inspection kind %q", kind)
	}
	unlock := r.lock(kind)
	defer unlock()

	found := false
	for _, key := range []string{kind.DraftKey(), kind.CollectionKey()} {
		err := r.update(ctx, key, func(records []*safecheck.Inspection) ([]*safecheck.Inspection, error) {
			i := indexOf(records, id)
			if i < 0 {
				return nil, errNoChange
			}
			found = true
			return append(records[:i:i], records[i+1:]...), nil
		})
		if err != nil {
			return err
		}
	}
	if !found {
		return safecheck.NotFound("Inspection not found")
	}
	return nil
}

// revert replaces saved in key with previous, or removes it when there was
// no previous copy. A copy that was overwritten since is left alone.
func (r *Repository) revert(ctx context.Context, key string, saved, previous *safecheck.Inspection) error {
	return r.update(ctx, key, func(records []*safecheck.Inspection) ([]*safecheck.Inspection, error) {
		i := indexOf(records, saved.ID)
		if i < 0 || records[i].Revision != saved.Revision {
			return nil, errNoChange
		}
		if previous != nil {
			records[i] = previous
			return records, nil
		}
		return append(records[:i:i], records[i+1:]...), nil
	})
}

func indexOf(records []*safecheck.Inspection, id uuid.UUID) int {
	for i, rec := range records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

// removeStale drops copies of id older than rev.
func removeStale(records []*safecheck.Inspection, id uuid.UUID, rev int64) []*safecheck.Inspection {
	out := records[:0:0]
	for _, rec := range records {
		if rec.ID == id && rec.Revision < rev {
			continue
		}
		out = append(out, rec)
	}
	return out
}
