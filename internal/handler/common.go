package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/secure-notes/internal/authz"
)

// actorFrom reads the authenticated actor placed in context by the JWT
// middleware (key "actor"). The zero Actor means unauthenticated; the
// authz policy denies it everywhere ownership matters.
func actorFrom(c echo.Context) authz.Actor {
	if a, ok := c.Get("actor").(authz.Actor); ok {
		return a
	}
	return authz.Actor{}
}
