// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts user administration under the path where this router is
// mounted (typically "/users" from bootstrap). Everyone but the
// administrator is sent back to the landing page.
//
//	h := users.NewHandler(userStore, errLog, audit, m, views, logger)
//	r.Mount("/users", users.Routes(h, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)

		// List, live updates and create
		pr.Get("/", h.ServeList)
		pr.Get("/stream", h.ServeStream)
		pr.Post("/", h.HandleCreate)

		// Per-user actions
		pr.Post("/{id}/active", h.HandleToggleActive)
		pr.Post("/{id}/password", h.HandleResetPassword)
		pr.Get("/{id}/delete", h.ServeDeleteConfirm)
		pr.Post("/{id}/delete", h.HandleDelete)
	})

	return r
}
