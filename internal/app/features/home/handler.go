package home

import (
	"net/http"

	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// Handler serves the landing page.
type Handler struct {
	Views viewdata.Renderer
	Log   *zap.Logger
}

func NewHandler(views viewdata.Renderer, logger *zap.Logger) *Handler {
	return &Handler{
		Views: views,
		Log:   logger,
	}
}

// landingData also feeds the embedded login form.
type landingData struct {
	viewdata.BaseVM
	Error     string
	Username  string
	ReturnURL string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot shows the login form to anonymous visitors and the dashboard to
// signed-in users.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	data := landingData{
		BaseVM: viewdata.NewBaseVM(r, "Benvenuto", "/"),
	}
	if !data.IsLoggedIn {
		h.Views.Render(w, r, "home_login", data)
		return
	}
	data.Title = "Dashboard"
	h.Views.Render(w, r, "home_dashboard", data)
}
