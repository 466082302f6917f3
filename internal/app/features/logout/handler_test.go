package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/reporthub/internal/app/features/logout"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"github.com/dalemusser/reporthub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*logout.Handler, *drafts.Cache) {
	t.Helper()
	cache := drafts.New(time.Minute)
	// nil audit logger is a no-op
	return logout.NewHandler(testutil.NewSessionManager(t), cache, nil, zap.NewNop()), cache
}

func TestServeLogout_RedirectsToHome(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, httptest.NewRequest("GET", "/logout", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/" {
		t.Errorf("Location: got %q, want %q", location, "/")
	}
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, httptest.NewRequest("GET", "/logout", nil))

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge: got %d, want -1 (delete)", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}

func TestServeLogout_HTMX_ReturnsHXRedirect(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest("GET", "/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if hx := rec.Header().Get("HX-Redirect"); hx != "/" {
		t.Errorf("HX-Redirect: got %q, want %q", hx, "/")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for HTMX, got %d", http.StatusOK, rec.Code)
	}
}

func TestServeLogout_DiscardsDraft(t *testing.T) {
	handler, cache := newTestHandler(t)
	sm := handler.SessionMgr

	draftID := drafts.NewID()
	cache.Put(draftID, drafts.Draft{Text: "in progress"})

	req1 := httptest.NewRequest("POST", "/login", nil)
	rec1 := httptest.NewRecorder()
	if err := sm.SignIn(rec1, req1, "u1", draftID); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req2 := testutil.CarryCookies(rec1, httptest.NewRequest("GET", "/logout", nil))
	req2 = testutil.WithUser(req2, testutil.StandardUser("u1", "mario"))
	handler.ServeLogout(httptest.NewRecorder(), req2)

	if _, ok := cache.Get(draftID); ok {
		t.Error("expected draft to be discarded on logout")
	}
}
