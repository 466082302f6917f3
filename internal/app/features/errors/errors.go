// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// pageData is the view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Message string
}

// ErrorLogger logs handler failures and renders a friendly page that always
// offers a way back.
type ErrorLogger struct {
	Views viewdata.Renderer
	Log   *zap.Logger
}

func NewErrorLogger(views viewdata.Renderer, logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Views: views, Log: logger}
}

// LogServerError logs err at Error level and renders userMsg with a 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.Log.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	e.render(w, r, http.StatusInternalServerError, "Errore", userMsg, backURL)
}

// LogBadRequest logs err at Warn level and renders userMsg with a 400.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.Log.Warn(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	e.render(w, r, http.StatusBadRequest, "Richiesta non valida", userMsg, backURL)
}

// NotFound renders the not-found page.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request, userMsg, backURL string) {
	e.render(w, r, http.StatusNotFound, "Non trovato", userMsg, backURL)
}

// Forbidden renders the access-denied page. CSRF rejections land here.
func (e *ErrorLogger) Forbidden(w http.ResponseWriter, r *http.Request) {
	e.render(w, r, http.StatusForbidden, "Accesso negato",
		"La richiesta non è stata autorizzata. Ricarica la pagina e riprova.", "/")
}

func (e *ErrorLogger) render(w http.ResponseWriter, r *http.Request, status int, title, userMsg, backURL string) {
	if backURL == "" {
		backURL = "/"
	}
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, backURL),
		Message: userMsg,
	}
	data.BackURL = backURL
	w.WriteHeader(status)
	e.Views.Render(w, r, "error_page", data)
}
