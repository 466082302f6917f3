// internal/app/bootstrap/csrf.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/reporthub/internal/app/features/errors"
	"github.com/gorilla/csrf"
)

// csrfMiddleware guards every unsafe method with a per-session token. Outside
// production the app is served over plain HTTP, so requests are marked as
// such and the Referer check does not demand https.
func csrfMiddleware(key []byte, prod bool, errLog *errorsfeature.ErrorLogger) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(prod),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(errLog.Forbidden)),
	)
	if prod {
		return protect
	}
	return func(next http.Handler) http.Handler {
		guarded := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guarded.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
