// Package middleware contains reusable HTTP middleware: the internal
// gateway key check, access-token authentication, role guards and the
// Redis-backed rate limiter.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderInternalKey is the pre-shared secret header injected by the
// reverse proxy / BFF layer in front of this service.
const HeaderInternalKey = "X-Internal-Key"

// GatewayKey rejects any request that does not carry the expected
// pre-shared secret, before any business logic runs. The response is a
// bare 403 without the envelope: nothing about internal state leaks to a
// caller outside the trust boundary.
func GatewayKey(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(HeaderInternalKey)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return c.NoContent(http.StatusForbidden)
			}
			return next(c)
		}
	}
}
