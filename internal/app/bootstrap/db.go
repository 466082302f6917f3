// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// ConnectDB opens the configured document store backend.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, appCfg.ConnectTimeout)
		defer cancel()
	}

	var (
		store docstore.Client
		err   error
	)
	switch appCfg.StoreBackend {
	case docstore.BackendMongo:
		store, err = docstore.ConnectMongo(ctx, appCfg.MongoURI, appCfg.MongoDatabase, appCfg.ListenPollInterval, logger)
	case docstore.BackendFirestore:
		store, err = docstore.ConnectFirestore(ctx, appCfg.FirestoreProjectID, appCfg.FirestoreCredentialsFile, logger)
	case docstore.BackendMemory:
		store = docstore.NewMemory(logger)
	default:
		err = fmt.Errorf("unknown store_backend %q", appCfg.StoreBackend)
	}
	if err != nil {
		logger.Error("document store connect failed",
			zap.String("backend", appCfg.StoreBackend),
			zap.Error(err))
		return DBDeps{}, err
	}

	logger.Info("document store connected", zap.String("backend", appCfg.StoreBackend))
	return DBDeps{Store: store, Backend: appCfg.StoreBackend}, nil
}

// EnsureSchema declares the unique indexes that close the username and
// report-day races on backends that support them.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := userstore.New(deps.Store, logger).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	if err := reportstore.New(deps.Store, logger).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("report indexes: %w", err)
	}
	return nil
}
