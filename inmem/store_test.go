package inmem

import (
	"fmt"
	"testing"

	"github.com/dukerupert/safecheck/kv/kvtest"
)

func TestStore(t *testing.T) {
	n := 0
	kvtest.RunStoreTests(t, NewStore(), func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	})
}
