package userstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*userstore.Store, *docstore.MemoryStore) {
	t.Helper()
	mem := docstore.NewMemory(zap.NewNop())
	return userstore.New(mem, zap.NewNop()), mem
}

func TestAdd_NormalizesAndActivates(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	u, err := s.Add(ctx, "  Anna.Rossi ", "  ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "anna.rossi", u.Username)
	assert.Equal(t, "anna.rossi", u.Name, "blank name defaults to username")
	assert.True(t, u.IsActive)

	got, ok := s.GetByUsername(ctx, "ANNA.ROSSI")
	require.True(t, ok)
	assert.Equal(t, u, got)
}

func TestAdd_AccentsDistinguishUsernames(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	accented, err := s.Add(ctx, "José", "", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "josé", accented.Username)

	plain, err := s.Add(ctx, "jose", "", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, accented.ID, plain.ID)

	got, ok := s.GetByUsername(ctx, "JOSÉ")
	require.True(t, ok)
	assert.Equal(t, accented.ID, got.ID)
}

func TestGetByUsername_FindsStoredAccentedName(t *testing.T) {
	s, mem := newStore(t)
	ctx := context.Background()

	id, err := mem.Create(ctx, userstore.Collection, map[string]any{
		"username": "josé",
		"name":     "José",
		"isActive": true,
		"password": "secret1",
	})
	require.NoError(t, err)

	got, ok := s.GetByUsername(ctx, "JOSÉ")
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
}

func TestAdd_TrimsName(t *testing.T) {
	s, _ := newStore(t)
	u, err := s.Add(context.Background(), "bob", "  Bob Bianchi ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Bob Bianchi", u.Name)
}

func TestAdd_ValidationOrder(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "   ", "", "")
	assert.ErrorIs(t, err, userstore.ErrUsernameRequired)

	_, err = s.Add(ctx, "anna", "", "secret1")
	require.NoError(t, err)

	// Duplicate is reported before the short password.
	_, err = s.Add(ctx, "Anna", "", "x")
	assert.ErrorIs(t, err, userstore.ErrDuplicateUsername)

	_, err = s.Add(ctx, "carla", "", "12345")
	assert.ErrorIs(t, err, userstore.ErrPasswordTooShort)

	_, err = s.Add(ctx, "carla", "", "123456")
	assert.NoError(t, err)
}

func TestEnsureIndexes_DeclaresUniqueUsername(t *testing.T) {
	s, mem := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureIndexes(ctx))

	_, err := s.Add(ctx, "anna", "", "secret1")
	require.NoError(t, err)

	// A writer bypassing the lookup hits the index.
	_, err = mem.Create(ctx, userstore.Collection, map[string]any{"username": "anna"})
	assert.ErrorIs(t, err, docstore.ErrDuplicate)
}

func TestGetByUsername_FailOpen(t *testing.T) {
	s, mem := newStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, "anna", "", "secret1")
	require.NoError(t, err)

	mem.SetOutage(errors.New("offline"))
	_, ok := s.GetByUsername(ctx, "anna")
	assert.False(t, ok)
}

func TestUpdate_MergesOnlyGivenFields(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u, err := s.Add(ctx, "anna", "Anna", "secret1")
	require.NoError(t, err)

	inactive := false
	require.NoError(t, s.Update(ctx, u.ID, userstore.UserUpdate{IsActive: &inactive}))

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "secret1", got.Password)
	assert.Equal(t, "Anna", got.Name)

	// No validation on update.
	short := "1"
	require.NoError(t, s.Update(ctx, u.ID, userstore.UserUpdate{Password: &short}))
	got, err = s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Password)
}

func TestUpdate_Missing(t *testing.T) {
	s, _ := newStore(t)
	name := "x"
	err := s.Update(context.Background(), "missing", userstore.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, userstore.ErrNotFound)
	assert.NoError(t, s.Update(context.Background(), "missing", userstore.UserUpdate{}))
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u, err := s.Add(ctx, "anna", "", "secret1")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, u.ID))
	_, err = s.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, userstore.ErrNotFound)
}

func TestListen_DeliversOnChange(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	got := make(chan []models.User, 8)
	sub := s.Listen(ctx, func(u []models.User) { got <- u }, func(error) {})
	defer sub.Unsubscribe()

	select {
	case initial := <-got:
		assert.Empty(t, initial)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial delivery")
	}

	_, err := s.Add(ctx, "anna", "", "secret1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case u := <-got:
			return len(u) == 1 && u[0].Username == "anna"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSeedMaster(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	created, err := s.SeedMaster(ctx, "admin123", "Amministratore")
	require.NoError(t, err)
	assert.True(t, created)

	m, ok := s.GetByUsername(ctx, models.MasterUsername)
	require.True(t, ok)
	assert.True(t, m.IsMaster())
	assert.Equal(t, "Amministratore", m.Name)

	inactive := false
	require.NoError(t, s.Update(ctx, m.ID, userstore.UserUpdate{IsActive: &inactive}))

	created, err = s.SeedMaster(ctx, "newpass1", "")
	require.NoError(t, err)
	assert.False(t, created)

	m, ok = s.GetByUsername(ctx, models.MasterUsername)
	require.True(t, ok)
	assert.Equal(t, "newpass1", m.Password)
	assert.True(t, m.IsActive)
	assert.Equal(t, "Amministratore", m.Name)

	_, err = s.SeedMaster(ctx, "short", "")
	assert.ErrorIs(t, err, userstore.ErrPasswordTooShort)
}

func TestFetcher(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u, err := s.Add(ctx, "master", "", "secret1")
	require.NoError(t, err)

	f := userstore.NewFetcher(s)
	su := f.FetchUser(ctx, u.ID)
	require.NotNil(t, su)
	assert.Equal(t, u.ID, su.ID)
	assert.True(t, su.IsAdmin)
	assert.Equal(t, "master", su.Name)

	inactive := false
	require.NoError(t, s.Update(ctx, u.ID, userstore.UserUpdate{IsActive: &inactive}))
	assert.Nil(t, f.FetchUser(ctx, u.ID))
	assert.Nil(t, f.FetchUser(ctx, "missing"))
}
