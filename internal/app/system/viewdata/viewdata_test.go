package viewdata

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/reporthub/internal/app/system/auth"
)

func TestNewBaseVM_Anonymous(t *testing.T) {
	req := httptest.NewRequest("GET", "/reports", nil)
	vm := NewBaseVM(req, "Report Salvati", "/")

	if vm.IsLoggedIn || vm.IsAdmin {
		t.Errorf("anonymous request should not be logged in: %+v", vm)
	}
	if vm.Title != "Report Salvati" || vm.SiteName != SiteName {
		t.Errorf("unexpected title/site: %+v", vm)
	}
}

func TestNewBaseVM_Admin(t *testing.T) {
	req := httptest.NewRequest("GET", "/users", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "1", Username: "master", Name: "Amministratore", IsAdmin: true})
	vm := NewBaseVM(req, "Gestione Utenti", "/")

	if !vm.IsLoggedIn || !vm.IsAdmin {
		t.Errorf("expected admin identity: %+v", vm)
	}
	if vm.UserName != "Amministratore" {
		t.Errorf("UserName: got %q", vm.UserName)
	}
}
