// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/reporthub/internal/app/features/errors"
	"github.com/dalemusser/reporthub/internal/app/store/audit"
	"github.com/dalemusser/reporthub/internal/app/system/auditlog"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"github.com/dalemusser/reporthub/internal/app/system/metrics"
	"github.com/dalemusser/reporthub/internal/app/system/normalize"
	"github.com/dalemusser/reporthub/internal/app/system/ratelimit"
	"github.com/dalemusser/reporthub/internal/app/system/timeouts"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// Messages shown on the login form.
const (
	MsgRequired           = "Nome utente e password sono obbligatori."
	MsgUnauthorized       = "Utente non trovato o non autorizzato."
	MsgDisabled           = "Il tuo account è stato disabilitato."
	MsgInvalidCredentials = "Credenziali non valide."
)

type Handler struct {
	Users      auth.UserFinder
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	Views      viewdata.Renderer
	Log        *zap.Logger
}

func NewHandler(
	users auth.UserFinder,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	views viewdata.Renderer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		ErrLog:     errLog,
		AuditLog:   audit,
		Metrics:    m,
		Views:      views,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error     string
	Username  string // what the user typed
	ReturnURL string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.Views.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Accedi", "/"),
		ReturnURL: query.Get(r, "return"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Dati del modulo non validi.", "/login")
		return
	}

	username := normalize.Username(r.FormValue("username"))
	password := r.FormValue("password")
	ret := strings.TrimSpace(r.FormValue("return"))

	if username == "" || password == "" {
		h.Metrics.LoginAttempt("missing_fields")
		h.renderFormWithError(w, r, MsgRequired, username, ret)
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, username); !ok {
			h.Log.Warn("login throttled", zap.String("username", username), zap.String("ip", ratelimit.ClientIP(r)))
			h.Metrics.LoginAttempt("throttled")
			w.WriteHeader(http.StatusTooManyRequests)
			h.renderFormWithError(w, r, msg, username, ret)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := auth.Authenticate(ctx, h.Users, username, password)
	if err != nil {
		msg, eventType, result := describeFailure(err)
		h.AuditLog.LoginFailed(ctx, r, eventType, username, err.Error())
		h.Metrics.LoginAttempt(result)
		h.renderFormWithError(w, r, msg, username, ret)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID, drafts.NewID()); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "Impossibile avviare la sessione. Riprova.", "/login")
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetUsername(username)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Username)
	h.Metrics.LoginAttempt("success")
	h.Log.Info("user signed in", zap.String("user_id", u.ID), zap.String("username", u.Username))

	http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/"), http.StatusSeeOther)
}

// describeFailure maps an authentication error to the form message, the
// audit event type and the metrics label.
func describeFailure(err error) (msg, eventType, result string) {
	switch {
	case errors.Is(err, auth.ErrDisabled):
		return MsgDisabled, audit.EventLoginFailedUserDisabled, "disabled"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return MsgInvalidCredentials, audit.EventLoginFailedWrongPassword, "invalid_credentials"
	default:
		return MsgUnauthorized, audit.EventLoginFailedUserNotFound, "unauthorized"
	}
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, username, ret string) {
	h.Views.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Accedi", "/"),
		Error:     msg,
		Username:  username,
		ReturnURL: ret,
	})
}
