package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Roles carried in the "roles" claim of dashboard session tokens.
const (
	RoleAdmin     = "admin"
	RolePhysician = "physician"
	RoleNurse     = "nurse"
	RoleRegistrar = "registrar"
)

// ClinicalStaff may read patient records.
var ClinicalStaff = []string{RoleAdmin, RolePhysician, RoleNurse, RoleRegistrar}

// RequireRole admits callers holding any of roles. RoleAdmin is always
// admitted.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := map[string]struct{}{RoleAdmin: {}}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	denied := "requires role " + strings.Join(roles, " or ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, has := range RolesFromContext(c.Request().Context()) {
				if _, ok := allowed[has]; ok {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, denied)
		}
	}
}
