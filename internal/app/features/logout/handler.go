// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/reporthub/internal/app/system/auditlog"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Drafts     *drafts.Cache
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, draftCache *drafts.Cache, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Drafts:     draftCache,
		AuditLog:   audit,
	}
}

// ServeLogout handles GET and POST /logout. The session cookie is expired,
// together with the draft and edit target it carried.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	draftID, err := h.SessionMgr.Destroy(w, r)
	if err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if h.Drafts != nil {
		h.Drafts.Discard(draftID)
	}
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Logout(r.Context(), r, u.ID)
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation to "/".
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
