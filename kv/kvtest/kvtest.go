// Package kvtest holds the behaviour every safecheck.KeyValueStore must
// share. Store packages run it against their own implementation.
package kvtest

import (
	"context"
	"sync"
	"testing"

	"github.com/dukerupert/safecheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests exercises store. newKey must return a key unused by
// earlier calls so that tests against shared databases do not collide.
func RunStoreTests(t *testing.T, store safecheck.KeyValueStore, newKey func() string) {
	t.Run("MissingKey", func(t *testing.T) {
		e, err := store.Get(context.Background(), newKey())
		require.NoError(t, err)
		assert.Nil(t, e.Value)
		assert.Equal(t, int64(0), e.Revision)
	})

	t.Run("PutGet", func(t *testing.T) {
		ctx := context.Background()
		key := newKey()

		rev, err := store.Put(ctx, key, []byte(`[{"id":1}]`), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rev)

		e, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1}]`, string(e.Value))
		assert.Equal(t, int64(1), e.Revision)

		rev, err = store.Put(ctx, key, []byte(`[]`), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rev)

		e, err = store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(e.Value))
	})

	t.Run("StaleRevision", func(t *testing.T) {
		ctx := context.Background()
		key := newKey()

		_, err := store.Put(ctx, key, []byte(`[]`), 0)
		require.NoError(t, err)

		_, err = store.Put(ctx, key, []byte(`[1]`), 0)
		assert.Equal(t, safecheck.ECONFLICT, safecheck.ErrorCode(err))

		_, err = store.Put(ctx, key, []byte(`[1]`), 7)
		assert.Equal(t, safecheck.ECONFLICT, safecheck.ErrorCode(err))

		e, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(e.Value))
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		key := newKey()

		_, err := store.Put(ctx, key, []byte(`[]`), 0)
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, key))
		require.NoError(t, store.Delete(ctx, key))

		e, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, e.Value)
		assert.Equal(t, int64(0), e.Revision)
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		ctx := context.Background()
		key := newKey()

		const writers = 8
		var wg sync.WaitGroup
		wins := make(chan int64, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rev, err := store.Put(ctx, key, []byte(`[]`), 0); err == nil {
					wins <- rev
				}
			}()
		}
		wg.Wait()
		close(wins)

		var n int
		for range wins {
			n++
		}
		assert.Equal(t, 1, n, "exactly one writer may create the key")
	})
}
