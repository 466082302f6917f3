package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MongoURIEnv names the variable that enables MongoDB integration tests.
const MongoURIEnv = "REPORTHUB_TEST_MONGO_URI"

// TestContext returns a context that is cancelled when the test ends.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SetupTestStore returns a fresh in-memory document store.
func SetupTestStore(t *testing.T) *docstore.MemoryStore {
	t.Helper()
	return docstore.NewMemory(zap.NewNop())
}

// SetupTestDB connects to the MongoDB named by REPORTHUB_TEST_MONGO_URI,
// using a throwaway database dropped at cleanup. The test is skipped when
// the variable is unset.
func SetupTestDB(t *testing.T) *docstore.MongoStore {
	t.Helper()
	uri := os.Getenv(MongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set; skipping MongoDB integration test", MongoURIEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "reporthub_test_" + uuid.NewString()[:8]
	store, err := docstore.ConnectMongo(ctx, uri, dbName, 50*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.Database().Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	t       *testing.T
	Users   *userstore.Store
	Reports *reportstore.Store
}

// NewFixtures creates a new Fixtures instance over db.
func NewFixtures(t *testing.T, db docstore.Client) *Fixtures {
	t.Helper()
	return &Fixtures{
		t:       t,
		Users:   userstore.New(db, zap.NewNop()),
		Reports: reportstore.New(db, zap.NewNop()),
	}
}

// CreateUser adds an active user with password "secret".
func (f *Fixtures) CreateUser(ctx context.Context, username, name string) models.User {
	f.t.Helper()
	u, err := f.Users.Add(ctx, username, name, "secret")
	if err != nil {
		f.t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateMaster seeds the administrator account with password "master1".
func (f *Fixtures) CreateMaster(ctx context.Context) models.User {
	f.t.Helper()
	if _, err := f.Users.SeedMaster(ctx, "master1", "Amministratore"); err != nil {
		f.t.Fatalf("seed master: %v", err)
	}
	u, ok := f.Users.GetByUsername(ctx, models.MasterUsername)
	if !ok {
		f.t.Fatal("master not found after seeding")
	}
	return u
}

// CreateReport saves a report for userID on day (YYYY-MM-DD).
func (f *Fixtures) CreateReport(ctx context.Context, userID, day, text string) models.Report {
	f.t.Helper()
	r, err := f.Reports.Save(ctx, userID, reportstore.Draft{Date: day + "T00:00:00.000Z", Text: text})
	if err != nil {
		f.t.Fatalf("create report: %v", err)
	}
	return r
}
