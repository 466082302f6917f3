// internal/app/features/reports/stream.go
package reports

import (
	"net/http"
	"time"

	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/metrics"
	"github.com/dalemusser/reporthub/internal/app/system/reportfilter"
	"github.com/dalemusser/reporthub/internal/app/system/sse"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"go.uber.org/zap"
)

// Stream event names.
const (
	eventReports = "reports"
	eventError   = "stream-error"
	eventEnded   = "session-ended"
)

// ServeStream pushes the filtered report list as a full replacement on every
// change. Administrators also follow the user collection so author names
// stay current. Both subscriptions end with the request, or as soon as the
// signed-in identity is disabled, removed or changes role.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	f := reportfilter.FromRequest(r)

	stream, err := sse.Open(w)
	if err != nil {
		h.Log.Error("open report stream failed", zap.Error(err))
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer h.Metrics.StreamOpened(metrics.StreamReports)()

	ctx := r.Context()
	reports := sse.NewLatest[[]models.Report]()
	failures := sse.NewLatest[error]()
	onError := func(err error) {
		h.Log.Warn("report stream subscription error", zap.String("user_id", user.ID), zap.Error(err))
		failures.Put(err)
	}

	sub := h.Reports.Listen(ctx, user.ID, user.IsAdmin, reports.Put, onError)
	defer sub.Unsubscribe()

	var userUpdates <-chan []models.User
	names := map[string]string{user.ID: user.Name}
	if user.IsAdmin {
		users := sse.NewLatest[[]models.User]()
		usub := h.Users.Listen(ctx, users.Put, onError)
		defer usub.Unsubscribe()
		userUpdates = users.C()
	}

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	var (
		current []models.Report
		loaded  bool
	)
	push := func() error {
		rows := buildRows(f.Apply(current, user.IsAdmin), names, user.IsAdmin)
		return stream.SendJSON(eventReports, streamPayload{Rows: rows, Count: len(rows)})
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return

		case current = <-reports.C():
			loaded = true
			err = push()

		case us := <-userUpdates:
			names = reportfilter.AuthorNames(us)
			if loaded {
				err = push()
			}

		case <-failures.C():
			err = stream.Send(eventError, MsgStreamError)

		case <-ticker.C:
			if !h.stillSignedIn(r, user) {
				_ = stream.Send(eventEnded, "/")
				return
			}
			err = stream.Comment(sse.KeepAliveComment)
		}
		if err != nil {
			h.Log.Debug("report stream closed", zap.String("user_id", user.ID), zap.Error(err))
			return
		}
	}
}

func (h *Handler) stillSignedIn(r *http.Request, user *auth.SessionUser) bool {
	if h.Identity == nil {
		return true
	}
	u := h.Identity.FetchUser(r.Context(), user.ID)
	return u != nil && u.IsAdmin == user.IsAdmin
}
