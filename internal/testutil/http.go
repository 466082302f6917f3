package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewSessionManager returns a dev-mode session manager with a fixed key.
func NewSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

// CarryCookies copies the cookies set on rec onto req, as a browser would on
// its next request.
func CarryCookies(rec *httptest.ResponseRecorder, req *http.Request) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// AdminUser returns the session identity of the master account.
func AdminUser(id string) *auth.SessionUser {
	return &auth.SessionUser{ID: id, Username: models.MasterUsername, Name: "Amministratore", IsAdmin: true}
}

// StandardUser returns a non-admin session identity.
func StandardUser(id, username string) *auth.SessionUser {
	return &auth.SessionUser{ID: id, Username: username, Name: username}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, u *auth.SessionUser) *http.Request {
	return auth.WithTestUser(r, u)
}

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// Rendered is one captured Render or RenderSnippet call.
type Rendered struct {
	Name    string
	Data    any
	Snippet bool
}

// Views is a viewdata.Renderer that records calls instead of executing
// templates. It writes the template name to the response so status codes
// and bodies can still be asserted.
type Views struct {
	mu    sync.Mutex
	calls []Rendered
}

func (v *Views) Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	v.record(Rendered{Name: name, Data: data})
	_, _ = w.Write([]byte(name))
}

func (v *Views) RenderSnippet(w http.ResponseWriter, name string, data any) {
	v.record(Rendered{Name: name, Data: data, Snippet: true})
	_, _ = w.Write([]byte(name))
}

func (v *Views) record(c Rendered) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, c)
}

// Last returns the most recent call, or the zero value.
func (v *Views) Last() Rendered {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.calls) == 0 {
		return Rendered{}
	}
	return v.calls[len(v.calls)-1]
}

// Count returns the number of recorded calls.
func (v *Views) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.calls)
}
