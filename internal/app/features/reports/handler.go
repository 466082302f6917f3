// internal/app/features/reports/handler.go
package reports

import (
	"time"

	uierrors "github.com/dalemusser/reporthub/internal/app/features/errors"
	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/app/system/auditlog"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"github.com/dalemusser/reporthub/internal/app/system/metrics"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// DefaultKeepAlive is the idle interval between stream keep-alive comments.
const DefaultKeepAlive = 25 * time.Second

// Handler owns the report editor, the saved-reports list, its live stream
// and the exports.
type Handler struct {
	Reports    *reportstore.Store
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Drafts     *drafts.Cache
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	Views      viewdata.Renderer
	Log        *zap.Logger

	// Identity re-validates the signed-in user while a stream is open.
	Identity auth.UserFetcher

	Location  *time.Location   // business time zone deciding "today"
	Now       func() time.Time // overridable in tests
	KeepAlive time.Duration
}

func NewHandler(
	reports *reportstore.Store,
	users *userstore.Store,
	sessionMgr *auth.SessionManager,
	draftCache *drafts.Cache,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	views viewdata.Renderer,
	loc *time.Location,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Reports:    reports,
		Users:      users,
		SessionMgr: sessionMgr,
		Drafts:     draftCache,
		ErrLog:     errLog,
		AuditLog:   audit,
		Metrics:    m,
		Views:      views,
		Log:        logger,
		Identity:   userstore.NewFetcher(users),
		Location:   loc,
		Now:        time.Now,
		KeepAlive:  DefaultKeepAlive,
	}
}
