// internal/app/features/users/actions.go
package users

import (
	"errors"
	"net/http"
	"unicode/utf8"

	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/normalize"
	"github.com/dalemusser/reporthub/internal/app/system/timeouts"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleCreate adds an account from the inline form.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Richiesta non valida.", "/users")
		return
	}

	form := createForm{
		Username: normalize.Username(r.PostForm.Get("username")),
		Name:     normalize.Name(r.PostForm.Get("name")),
	}
	password := r.PostForm.Get("password")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create user")
	defer cancel()

	u, err := h.Users.Add(ctx, form.Username, form.Name, password)
	if err != nil {
		form.Error = createMessage(err)
		if form.Error == MsgCreateFailed {
			h.Log.Error("create user failed", zap.String("username", form.Username), zap.Error(err))
		}
		h.renderList(w, r, listData{Form: form})
		return
	}

	h.AuditLog.UserCreated(r.Context(), r, actor.ID, u.ID, u.Username)
	http.Redirect(w, r, "/users?created=1", http.StatusSeeOther)
}

func createMessage(err error) string {
	switch {
	case errors.Is(err, userstore.ErrUsernameRequired):
		return MsgUsernameRequired
	case errors.Is(err, userstore.ErrDuplicateUsername):
		return MsgDuplicate
	case errors.Is(err, userstore.ErrPasswordTooShort):
		return MsgPasswordShort
	default:
		return MsgCreateFailed
	}
}

// HandleToggleActive flips the enabled flag.
func (h *Handler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	u, ok := h.loadManaged(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "toggle user active")
	defer cancel()

	active := !u.IsActive
	if err := h.Users.Update(ctx, u.ID, userstore.UserUpdate{IsActive: &active}); err != nil {
		h.Log.Error("toggle user active failed", zap.String("user_id", u.ID), zap.Error(err))
		h.renderList(w, r, listData{Error: MsgUpdateFailed, ErrorRow: u.ID})
		return
	}
	h.AuditLog.UserActiveChanged(r.Context(), r, actor.ID, u.ID, active)
	http.Redirect(w, r, "/users?updated=1", http.StatusSeeOther)
}

// HandleResetPassword replaces the password. The length rule lives here,
// not in the store.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	u, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Richiesta non valida.", "/users")
		return
	}

	password := r.PostForm.Get("password")
	if utf8.RuneCountInString(password) < userstore.MinPasswordLength {
		h.renderList(w, r, listData{Error: MsgPasswordShort, ErrorRow: u.ID})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reset user password")
	defer cancel()

	if err := h.Users.Update(ctx, u.ID, userstore.UserUpdate{Password: &password}); err != nil {
		h.Log.Error("reset password failed", zap.String("user_id", u.ID), zap.Error(err))
		h.renderList(w, r, listData{Error: MsgUpdateFailed, ErrorRow: u.ID})
		return
	}
	h.AuditLog.UserPasswordChanged(r.Context(), r, actor.ID, u.ID)
	http.Redirect(w, r, "/users?password=1", http.StatusSeeOther)
}

// ServeDeleteConfirm asks before deleting an account.
func (h *Handler) ServeDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	h.renderDelete(w, r, u, "")
}

// HandleDelete removes the account. Its reports are kept.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	u, ok := h.loadManaged(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete user")
	defer cancel()

	if err := h.Users.Delete(ctx, u.ID); err != nil {
		h.Log.Error("delete user failed", zap.String("user_id", u.ID), zap.Error(err))
		h.renderDelete(w, r, u, MsgDeleteFailed)
		return
	}
	h.AuditLog.UserDeleted(r.Context(), r, actor.ID, u.ID)
	http.Redirect(w, r, "/users?deleted=1", http.StatusSeeOther)
}

func (h *Handler) renderDelete(w http.ResponseWriter, r *http.Request, u models.User, errMsg string) {
	h.Views.Render(w, r, "user_delete", deleteData{
		BaseVM:   viewdata.NewBaseVM(r, "Elimina Utente", "/users"),
		ID:       u.ID,
		Username: u.Username,
		Message:  MsgDeleteConfirm,
		Error:    errMsg,
	})
}

// loadManaged resolves {id}. The master account is not managed here and is
// reported as missing.
func (h *Handler) loadManaged(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load user")
	defer cancel()

	u, err := h.Users.GetByID(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.ErrLog.NotFound(w, r, MsgNotFound, "/users")
		return models.User{}, false
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load user failed", err, MsgLoadFailed, "/users")
		return models.User{}, false
	}
	if u.IsMaster() {
		h.ErrLog.NotFound(w, r, MsgNotFound, "/users")
		return models.User{}, false
	}
	return u, true
}
