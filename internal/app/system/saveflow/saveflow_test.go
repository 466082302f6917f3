package saveflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	"github.com/dalemusser/reporthub/internal/app/system/saveflow"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRepo(t *testing.T) (*reportstore.Store, *docstore.MemoryStore) {
	t.Helper()
	mem := docstore.NewMemory(zap.NewNop())
	return reportstore.New(mem, zap.NewNop()), mem
}

func TestSave_CreatesNew(t *testing.T) {
	repo, _ := newRepo(t)
	res := saveflow.Save(context.Background(), repo, "u1", "", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z", Text: "a"})

	require.Equal(t, saveflow.Saved, res.Outcome)
	assert.True(t, res.Created)
	assert.NotEmpty(t, res.Report.Key)
}

func TestSave_ConflictOnSameDay(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	existing, err := repo.Save(ctx, "u1", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z"})
	require.NoError(t, err)

	res := saveflow.Save(ctx, repo, "u1", "", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z", Text: "b"})
	require.Equal(t, saveflow.Conflict, res.Outcome)
	require.NotNil(t, res.Conflicting)
	assert.Equal(t, existing.Key, res.Conflicting.Key)

	all, err := repo.List(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, all, 1, "a conflict must not write")
}

func TestSave_EditingKeepsOwnDay(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	existing, err := repo.Save(ctx, "u1", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z", Text: "a"})
	require.NoError(t, err)

	res := saveflow.Save(ctx, repo, "u1", existing.Key, reportstore.Draft{Date: "2024-03-05T00:00:00.000Z", Text: "b"})
	require.Equal(t, saveflow.Saved, res.Outcome)
	assert.False(t, res.Created)

	got, err := repo.Get(ctx, existing.Key)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Text)
}

func TestSave_StoreFailure(t *testing.T) {
	repo, mem := newRepo(t)
	mem.SetOutage(errors.New("offline"))

	res := saveflow.Save(context.Background(), repo, "u1", "", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z"})
	require.Equal(t, saveflow.Failed, res.Outcome)
	assert.Error(t, res.Err)
}

// racingRepo hides the conflict from the pre-check, as a concurrent writer would.
type racingRepo struct {
	*reportstore.Store
	checks int
}

func (r *racingRepo) CheckDateConflict(ctx context.Context, userID, dateISO, excludeKey string) *models.Report {
	r.checks++
	if r.checks == 1 {
		return nil
	}
	return r.Store.CheckDateConflict(ctx, userID, dateISO, excludeKey)
}

func TestSave_UniqueIndexBecomesConflict(t *testing.T) {
	store, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureIndexes(ctx))
	winner, err := store.Save(ctx, "u1", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z"})
	require.NoError(t, err)

	repo := &racingRepo{Store: store}
	res := saveflow.Save(ctx, repo, "u1", "", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z"})
	require.Equal(t, saveflow.Conflict, res.Outcome)
	assert.Equal(t, winner.Key, res.Conflicting.Key)
	assert.Equal(t, 2, repo.checks)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "saved", saveflow.Saved.String())
	assert.Equal(t, "conflict", saveflow.Conflict.String())
	assert.Equal(t, "failed", saveflow.Failed.String())
}
