package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	"github.com/dalemusser/reporthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongo_CRUD(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "reports", map[string]any{"date": "2024-03-01T00:00:00.000Z", "userId": "u1"})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "reports", id)
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.String("userId"))

	require.NoError(t, s.Update(ctx, "reports", id, map[string]any{"text": "Report del 1 marzo 2024"}))
	doc, err = s.Get(ctx, "reports", id)
	require.NoError(t, err)
	assert.Equal(t, "Report del 1 marzo 2024", doc.String("text"))
	assert.Equal(t, "u1", doc.String("userId"))

	require.NoError(t, s.Delete(ctx, "reports", id))
	_, err = s.Get(ctx, "reports", id)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "reports", id, map[string]any{"text": "x"}), docstore.ErrNotFound)
}

func TestMongo_UniqueIndex(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureUnique(ctx, "users", "username"))
	_, err := s.Create(ctx, "users", map[string]any{"username": "mario"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "users", map[string]any{"username": "mario"})
	assert.ErrorIs(t, err, docstore.ErrDuplicate)
}

func TestMongo_ListenDeliversChanges(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()

	got := make(chan int, 16)
	sub := s.Listen(ctx, docstore.Query{Collection: "reports", Where: []docstore.Filter{docstore.Eq("userId", "u1")}},
		func(docs []docstore.Document) { got <- len(docs) },
		func(err error) { t.Logf("listen error: %v", err) })
	defer sub.Unsubscribe()

	waitFor := func(want int) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case n := <-got:
				if n == want {
					return
				}
			case <-deadline:
				t.Fatalf("no delivery with %d documents", want)
			}
		}
	}

	waitFor(0)
	// The change stream opens just after the initial load.
	time.Sleep(200 * time.Millisecond)
	_, err := s.Create(ctx, "reports", map[string]any{"userId": "u1", "date": "2024-03-01"})
	require.NoError(t, err)
	waitFor(1)
	_, err = s.Create(ctx, "reports", map[string]any{"userId": "u2", "date": "2024-03-02"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "reports", map[string]any{"userId": "u1", "date": "2024-03-03"})
	require.NoError(t, err)
	waitFor(2)
}
