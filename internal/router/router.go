// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/secure-notes/internal/config"
	"github.com/iliyamo/secure-notes/internal/handler"
	"github.com/iliyamo/secure-notes/internal/middleware"
	"github.com/iliyamo/secure-notes/internal/model"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth   *handler.AuthHandler
	Notes  *handler.NoteHandler
	Admin  *handler.AdminHandler
	Health *handler.HealthHandler
}

// Register mounts all routes. Health probes sit outside the gateway check
// so orchestrators can reach them without the internal key; everything
// under /v1 requires it.
func Register(e *echo.Echo, cfg *config.Config, rlCfg config.RateLimitConfig, rdb *redis.Client, h Handlers) {
	e.GET("/healthz", h.Health.Healthz)
	e.GET("/readyz", h.Health.Readyz)

	v1 := e.Group("/v1", middleware.GatewayKey(cfg.InternalKey))

	// Auth endpoints are unauthenticated and rate limited per ip+route,
	// so a burst against login cannot starve signup.
	auth := v1.Group("/auth", middleware.NewTokenBucket(rlCfg, rdb))
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/verify-email", h.Auth.VerifyEmail)
	auth.POST("/resend-verification", h.Auth.ResendVerification)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	authed := v1.Group("", middleware.JWTAuth(cfg.JWTSecret))
	authed.GET("/me", h.Auth.Me)

	notes := authed.Group("/notes",
		middleware.RequireRole(model.RoleClient, model.RoleAdmin, model.RoleSuperAdmin, model.RoleGuest))
	notes.POST("", h.Notes.Create)
	notes.GET("", h.Notes.List)
	notes.GET("/:id", h.Notes.Get)
	notes.PATCH("/:id", h.Notes.Update)
	notes.DELETE("/:id", h.Notes.Delete)

	admin := authed.Group("/admin",
		middleware.RequireRoleAudited(h.Admin.Recorder, model.RoleAdmin, model.RoleSuperAdmin))
	admin.GET("/users", h.Admin.ListUsers)
	admin.GET("/users/:id", h.Admin.GetUser)
	admin.PATCH("/users/:id", h.Admin.PatchUser)
	admin.PATCH("/users/:id/role", h.Admin.PatchRole)
	admin.GET("/notes", h.Admin.ListNotes)
	admin.GET("/notes/:id", h.Admin.GetNote)
	admin.GET("/audit", h.Admin.ListAudit)
}
