// internal/app/features/users/stream.go
package users

import (
	"net/http"
	"time"

	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/metrics"
	"github.com/dalemusser/reporthub/internal/app/system/sse"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"go.uber.org/zap"
)

const (
	eventUsers = "users"
	eventError = "stream-error"
	eventEnded = "session-ended"
)

// ServeStream pushes the managed accounts as a full replacement on every
// change to the user collection, until the client goes away or the
// administrator's account stops being valid.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	stream, err := sse.Open(w)
	if err != nil {
		h.Log.Error("open user stream failed", zap.Error(err))
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer h.Metrics.StreamOpened(metrics.StreamUsers)()

	ctx := r.Context()
	updates := sse.NewLatest[[]models.User]()
	failures := sse.NewLatest[error]()
	sub := h.Users.Listen(ctx, updates.Put, func(err error) {
		h.Log.Warn("user stream subscription error", zap.Error(err))
		failures.Put(err)
	})
	defer sub.Unsubscribe()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case all := <-updates.C():
			err = stream.SendJSON(eventUsers, rowsFor(all, ""))
		case <-failures.C():
			err = stream.Send(eventError, MsgStreamError)
		case <-ticker.C:
			if !h.stillAdmin(r, user) {
				_ = stream.Send(eventEnded, "/")
				return
			}
			err = stream.Comment(sse.KeepAliveComment)
		}
		if err != nil {
			h.Log.Debug("user stream closed", zap.Error(err))
			return
		}
	}
}

func (h *Handler) stillAdmin(r *http.Request, user *auth.SessionUser) bool {
	if h.Identity == nil || user == nil {
		return true
	}
	u := h.Identity.FetchUser(r.Context(), user.ID)
	return u != nil && u.IsAdmin
}
