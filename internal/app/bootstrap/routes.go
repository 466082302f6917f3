// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/reporthub/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/reporthub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/reporthub/internal/app/features/health"
	homefeature "github.com/dalemusser/reporthub/internal/app/features/home"
	loginfeature "github.com/dalemusser/reporthub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/reporthub/internal/app/features/logout"
	reportsfeature "github.com/dalemusser/reporthub/internal/app/features/reports"
	usersfeature "github.com/dalemusser/reporthub/internal/app/features/users"
	"github.com/dalemusser/reporthub/internal/app/store/audit"
	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/app/system/auditlog"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"github.com/dalemusser/reporthub/internal/app/system/metrics"
	"github.com/dalemusser/reporthub/internal/app/system/ratelimit"
	"github.com/dalemusser/reporthub/internal/app/system/timezones"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root router.
//
// Every request passes metrics, CSRF protection and session loading, in
// that order. Feature routers apply their own sign-in or admin gates.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	prod := coreCfg.Env == "prod"

	users := userstore.New(deps.Store, logger)
	reports := reportstore.New(deps.Store, logger)

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, prod, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Disabled, deleted or re-roled users lose their session on the next request.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(users))

	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)
	views := viewdata.Engine{}

	loc, err := timezones.Load(appCfg.TimeZone)
	if err != nil {
		logger.Error("time zone load failed", zap.String("timezone", appCfg.TimeZone), zap.Error(err))
		return nil, err
	}

	errLog := errorsfeature.NewErrorLogger(views, logger)
	m := metrics.New(appCfg.MetricsRuntime)
	draftCache := drafts.New(appCfg.DraftTTL)
	auditStore := audit.New(deps.Store)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Admin:  appCfg.AuditLogAdmin,
		Report: appCfg.AuditLogReport,
	})

	r := chi.NewRouter()
	if appCfg.MetricsEnabled {
		r.Use(m.Middleware)
	}
	r.Use(csrfMiddleware([]byte(appCfg.CSRFKey), prod, errLog))
	r.Use(sessionMgr.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.Store, deps.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", m.Handler())
	}

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	homeHandler := homefeature.NewHandler(views, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	loginHandler := loginfeature.NewHandler(users, sessionMgr, ratelimit.NewLoginLimiter(), errLog, auditLog, m, views, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, draftCache, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	reportsHandler := reportsfeature.NewHandler(reports, users, sessionMgr, draftCache, errLog, auditLog, m, views, loc, logger)
	r.Mount("/reports", reportsfeature.Routes(reportsHandler, sessionMgr))

	usersHandler := usersfeature.NewHandler(users, errLog, auditLog, m, views, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(auditStore, users, errLog, views, loc, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errLog.NotFound(w, r, "Pagina non trovata.", "/")
	})

	return r, nil
}
