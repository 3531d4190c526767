package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/secure-notes/internal/auth"
	"github.com/iliyamo/secure-notes/internal/authz"
	"github.com/iliyamo/secure-notes/internal/envelope"
)

// Context keys set by JWTAuth for downstream middleware and handlers.
const (
	ContextActor  = "actor"
	ContextClaims = "claims"
)

// JWTAuth returns middleware that validates a Bearer access token and
// injects the authenticated actor into the request context. Verification
// is pure (signature + expiry): no store lookup happens per request, which
// is the whole point of self-contained access tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenInvalid)
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := auth.AuthenticateAccessToken(secret, raw)
			if err != nil {
				code := envelope.CodeTokenInvalid
				if errors.Is(err, auth.ErrTokenExpired) {
					code = envelope.CodeTokenExpired
				}
				return envelope.Fail(c, http.StatusUnauthorized, code)
			}

			c.Set(ContextActor, authz.Actor{ID: claims.SubjectID(), Role: claims.Role})
			c.Set(ContextClaims, claims)
			return next(c)
		}
	}
}

// Actor extracts the authenticated actor placed by JWTAuth. The zero
// Actor is returned on unauthenticated requests.
func Actor(c echo.Context) authz.Actor {
	if a, ok := c.Get(ContextActor).(authz.Actor); ok {
		return a
	}
	return authz.Actor{}
}
