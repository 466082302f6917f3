// internal/app/features/auditlog/handler.go
package auditlog

import (
	"time"

	uierrors "github.com/dalemusser/reporthub/internal/app/features/errors"
	"github.com/dalemusser/reporthub/internal/app/store/audit"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"go.uber.org/zap"
)

type Handler struct {
	Audit    *audit.Store
	Users    *userstore.Store
	ErrLog   *uierrors.ErrorLogger
	Views    viewdata.Renderer
	Location *time.Location
	Log      *zap.Logger
}

// NewHandler constructs the audit log viewer. Times are shown in loc.
func NewHandler(store *audit.Store, users *userstore.Store, errLog *uierrors.ErrorLogger, views viewdata.Renderer, loc *time.Location, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:    store,
		Users:    users,
		ErrLog:   errLog,
		Views:    views,
		Location: loc,
		Log:      logger,
	}
}
