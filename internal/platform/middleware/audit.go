package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// patientRoutes are route prefixes whose :id parameter is a patient id.
var patientRoutes = []string{
	"/api/v1/patients/:id",
	"/api/v1/assistant/patients/:id",
}

// Audit logs every access to clinical data under /api/v1: who did it, which action on
// which resource, and the patient involved when the route names one.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			ctx := req.Context()
			logger.Info().
				Str("type", "phi_access").
				Str("request_id", requestID(c)).
				Str("user_id", auth.UserIDFromContext(ctx)).
				Strs("user_roles", auth.RolesFromContext(ctx)).
				Str("resource_type", resourceType(req.URL.Path)).
				Str("patient_id", patientID(c)).
				Str("action", methodToAction(req.Method)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Int("status", status).
				Msg("clinical data access")

			return err
		}
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceType returns the first path segment after /api/v1/.
func resourceType(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/api/v1/"), "/")
	if seg == "" {
		return "unknown"
	}
	return seg
}

func patientID(c echo.Context) string {
	route := c.Path()
	for _, prefix := range patientRoutes {
		if strings.HasPrefix(route, prefix) {
			if id := c.Param("id"); isUUID(id) {
				return id
			}
		}
	}
	if id := c.QueryParam("patient_id"); isUUID(id) {
		return id
	}
	return ""
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return s != "" && err == nil
}
