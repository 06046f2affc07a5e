package mystore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type ledgerEntry struct {
	UID       string
	UserUID   string
	Amount    int64
	Settled   bool
	CreatedAt time.Time
}

func TestStore(t *testing.T) {
	c := context.TODO()
	store, cleanup, err := NewInMemoryStore[ledgerEntry](c)
	assert.NoError(t, err)
	defer cleanup()

	t.Run("Put and get", func(t *testing.T) {
		err := store.Put(c, "1", ledgerEntry{UID: "1", UserUID: "u1", Amount: 500})
		assert.NoError(t, err)

		got, exists, err := store.Get(c, "1")
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, int64(500), got.Amount)
	})

	t.Run("Get non-existing", func(t *testing.T) {
		_, exists, err := store.Get(c, "unknown")
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Transactional put is rolled back on error", func(t *testing.T) {
		err := store.RunInTransaction(c, func(c context.Context) error {
			innerErr := store.Put(c, "2", ledgerEntry{UID: "2", UserUID: "u2"})
			assert.NoError(t, innerErr)
			return fmt.Errorf("forced failure")
		})
		assert.Error(t, err)
	})

	t.Run("Query applies filters and ordering", func(t *testing.T) {
		base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)
		for i, e := range []ledgerEntry{
			{UID: "a", UserUID: "u1", Settled: false, CreatedAt: base.Add(2 * time.Minute)},
			{UID: "b", UserUID: "u1", Settled: true, CreatedAt: base.Add(time.Minute)},
			{UID: "c", UserUID: "u2", Settled: false, CreatedAt: base},
			{UID: "d", UserUID: "u1", Settled: false, CreatedAt: base},
		} {
			err := store.Put(c, fmt.Sprintf("q%d", i), e)
			assert.NoError(t, err)
		}

		got, err := store.Query(c, []Filter{
			{Field: "UserUID", Compare: "=", Value: "u1"},
			{Field: "Settled", Compare: "=", Value: false},
		}, "CreatedAt")
		assert.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "d", got[0].UID)
		assert.Equal(t, "a", got[1].UID)
	})

	t.Run("Query rejects unsupported comparator", func(t *testing.T) {
		_, err := store.Query(c, []Filter{{Field: "Amount", Compare: ">", Value: int64(0)}}, "")
		assert.Error(t, err)
	})
}
