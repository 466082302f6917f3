// internal/app/features/users/list.go
package users

import (
	"net/http"
	"sort"

	"github.com/dalemusser/reporthub/internal/app/system/timeouts"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList renders every account except the administrator's.
// ?reveal=<id> shows that row's password.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	data := listData{}
	switch {
	case query.Get(r, "created") != "":
		data.Flash = FlashCreated
	case query.Get(r, "updated") != "":
		data.Flash = FlashUpdated
	case query.Get(r, "password") != "":
		data.Flash = FlashPassword
	case query.Get(r, "deleted") != "":
		data.Flash = FlashDeleted
	}
	h.renderList(w, r, data)
}

// renderList loads the accounts and renders data. A store failure renders
// the error page with a way back.
func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list users")
	defer cancel()

	all, err := h.Users.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users failed", err, MsgLoadFailed, "/")
		return
	}

	data.BaseVM = viewdata.NewBaseVM(r, "Gestione Utenti", "/")
	data.Rows = rowsFor(all, query.Get(r, "reveal"))
	data.StreamURL = "/users/stream"
	h.Views.Render(w, r, "users_list", data)
}

// rowsFor drops the master account and sorts by username.
func rowsFor(all []models.User, reveal string) []userRow {
	rows := make([]userRow, 0, len(all))
	for _, u := range all {
		if u.IsMaster() {
			continue
		}
		rows = append(rows, userRow{
			ID:       u.ID,
			Username: u.Username,
			Name:     u.DisplayName(),
			IsActive: u.IsActive,
			Password: u.Password,
			Revealed: reveal != "" && u.ID == reveal,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Username < rows[j].Username })
	return rows
}
