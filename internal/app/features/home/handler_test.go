package home

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/reporthub/internal/testutil"
	"go.uber.org/zap"
)

func TestServeRoot_Unauthenticated(t *testing.T) {
	views := &testutil.Views{}
	h := NewHandler(views, zap.NewNop())

	h.ServeRoot(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if got := views.Last().Name; got != "home_login" {
		t.Errorf("template: got %q, want home_login", got)
	}
}

func TestServeRoot_AuthenticatedUser(t *testing.T) {
	views := &testutil.Views{}
	h := NewHandler(views, zap.NewNop())

	req := testutil.WithUser(httptest.NewRequest("GET", "/", nil), testutil.StandardUser("u1", "mario"))
	h.ServeRoot(httptest.NewRecorder(), req)

	last := views.Last()
	if last.Name != "home_dashboard" {
		t.Fatalf("template: got %q, want home_dashboard", last.Name)
	}
	if data := last.Data.(landingData); data.IsAdmin {
		t.Error("standard user must not see administration")
	}
}

func TestServeRoot_AdminSeesUserManagement(t *testing.T) {
	views := &testutil.Views{}
	h := NewHandler(views, zap.NewNop())

	req := testutil.WithUser(httptest.NewRequest("GET", "/", nil), testutil.AdminUser("m1"))
	h.ServeRoot(httptest.NewRecorder(), req)

	if data := views.Last().Data.(landingData); !data.IsAdmin {
		t.Error("admin flag should be set for master")
	}
}
