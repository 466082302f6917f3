// internal/app/features/reports/routes.go
package reports

import (
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the report screens under the path where this router is
// mounted (typically "/reports" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// Saved reports list, live updates and CSV export
		pr.Get("/", h.ServeList)
		pr.Get("/stream", h.ServeStream)
		pr.Get("/export.csv", h.ServeCSV)

		// Editor
		pr.Get("/new", h.ServeNew)
		pr.Post("/editor", h.HandleEditor)
		pr.Get("/{key}/edit", h.ServeEdit)

		// Per-report actions
		pr.Get("/{key}/download", h.ServeDownload)
		pr.Get("/{key}/delete", h.ServeDeleteConfirm)
		pr.Post("/{key}/delete", h.HandleDelete)
	})

	return r
}
