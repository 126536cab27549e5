package auth

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// RoleAdmin satisfies every RequireRole check.
const RoleAdmin = "admin"

// RequireRole rejects requests whose identity holds none of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			held := RolesFromContext(c.Request().Context())
			if slices.Contains(held, RoleAdmin) {
				return next(c)
			}
			for _, r := range roles {
				if slices.Contains(held, r) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
