// internal/app/features/users/handler.go
package users

import (
	"time"

	uierrors "github.com/dalemusser/reporthub/internal/app/features/errors"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/app/system/auditlog"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/metrics"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// DefaultKeepAlive is the idle interval between stream keep-alive comments.
const DefaultKeepAlive = 25 * time.Second

type Handler struct {
	Users     *userstore.Store
	ErrLog    *uierrors.ErrorLogger
	AuditLog  *auditlog.Logger
	Metrics   *metrics.Metrics
	Views     viewdata.Renderer
	Log       *zap.Logger
	KeepAlive time.Duration

	// Identity re-validates the administrator while a stream is open.
	Identity auth.UserFetcher
}

// NewHandler constructs the user administration handler.
func NewHandler(users *userstore.Store, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, views viewdata.Renderer, logger *zap.Logger) *Handler {
	return &Handler{
		Users:     users,
		ErrLog:    errLog,
		AuditLog:  audit,
		Metrics:   m,
		Views:     views,
		Log:       logger,
		KeepAlive: DefaultKeepAlive,
		Identity:  userstore.NewFetcher(users),
	}
}
