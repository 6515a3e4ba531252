package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRequireRole(t *testing.T, userRoles []string, required ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/patients/cache", nil)
	req = req.WithContext(WithUser(req.Context(), "u1", userRoles))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}
	return rec, RequireRole(required...)(handler)(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	rec, err := runRequireRole(t, []string{"registrar"}, "admin", "registrar")
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestRequireRole_AdminSatisfiesAnyRole(t *testing.T) {
	if _, err := runRequireRole(t, []string{"admin"}, "nurse"); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	_, err := runRequireRole(t, []string{"nurse"}, "admin", "registrar")
	if err == nil {
		t.Fatal("expected error for missing role")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequireRole_ClinicalStaffReads(t *testing.T) {
	for _, role := range ClinicalStaff {
		if _, err := runRequireRole(t, []string{role}, ClinicalStaff...); err != nil {
			t.Errorf("expected %s to read, got %v", role, err)
		}
	}
	if _, err := runRequireRole(t, []string{"billing"}, ClinicalStaff...); err == nil {
		t.Error("expected billing to be denied")
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	if _, err := runRequireRole(t, nil, "registrar"); err == nil {
		t.Error("expected error when no roles are present")
	}
}
