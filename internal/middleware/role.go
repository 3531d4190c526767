package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/secure-notes/internal/audit"
	"github.com/iliyamo/secure-notes/internal/envelope"
	"github.com/iliyamo/secure-notes/internal/model"
)

// RequireRole enforces that the authenticated actor holds one of the given
// roles. It assumes JWTAuth ran earlier; a missing or unknown role is a
// fail-closed 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return requireRole(nil, roles...)
}

// RequireRoleAudited is RequireRole for admin-scoped groups: role denials
// are recorded to the audit log with the requested method and path, so the
// trail includes callers who never reached a handler.
func RequireRoleAudited(rec *audit.Recorder, roles ...model.Role) echo.MiddlewareFunc {
	return requireRole(rec, roles...)
}

func requireRole(rec *audit.Recorder, roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := Actor(c)
			if actor.ID == 0 || !allowed[actor.Role] {
				if rec != nil {
					action := c.Request().Method + " " + c.Path()
					rec.Record(c.Request().Context(), actor.ID, action, 0, model.AuditOutcomeDenied)
				}
				return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
			}
			return next(c)
		}
	}
}
