package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/secure-notes/internal/audit"
	"github.com/iliyamo/secure-notes/internal/authz"
	"github.com/iliyamo/secure-notes/internal/cursor"
	"github.com/iliyamo/secure-notes/internal/envelope"
	"github.com/iliyamo/secure-notes/internal/model"
	"github.com/iliyamo/secure-notes/internal/repository"
)

// AdminHandler serves the admin-scoped endpoints. Every allow and deny
// that reaches a handler is written to the audit log with actor, action
// and target; the role middleware covers callers rejected earlier.
type AdminHandler struct {
	Log      zerolog.Logger
	Users    UserStore
	Notes    NoteStore
	Sessions SessionStore
	Audits   AuditStore
	Recorder *audit.Recorder
}

func NewAdminHandler(log zerolog.Logger, u UserStore, n NoteStore, s SessionStore, a AuditStore, rec *audit.Recorder) *AdminHandler {
	return &AdminHandler{Log: log, Users: u, Notes: n, Sessions: s, Audits: a, Recorder: rec}
}

type adminUserResp struct {
	ID              uint64       `json:"id"`
	Email           string       `json:"email"`
	Role            model.Role   `json:"role"`
	Status          model.Status `json:"status"`
	EmailVerifiedAt *time.Time   `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type userPageResp struct {
	Items      []adminUserResp `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type patchUserReq struct {
	Status string `json:"status" validate:"required,oneof=VERIFIED DISABLED"`
}

type patchRoleReq struct {
	Role string `json:"role" validate:"required"`
}

type auditPage struct {
	Items      []auditResp `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type auditResp struct {
	ID        uint64    `json:"id"`
	ActorID   uint64    `json:"actor_id"`
	Action    string    `json:"action"`
	TargetID  uint64    `json:"target_id"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

func toAdminUserResp(u model.User) adminUserResp {
	return adminUserResp{
		ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status,
		EmailVerifiedAt: u.EmailVerifiedAt, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

// authorize runs the policy for an admin action and records the outcome.
// Denials still return FORBIDDEN to the caller after being logged.
func (h *AdminHandler) authorize(c echo.Context, action authz.Action, targetID uint64) bool {
	actor := actorFrom(c)
	allowed := authz.Authorize(actor, action, authz.Target{OwnerID: targetID})
	outcome := model.AuditOutcomeAllowed
	if !allowed {
		outcome = model.AuditOutcomeDenied
	}
	h.Recorder.Record(c.Request().Context(), actor.ID, string(action), targetID, outcome)
	return allowed
}

// ListUsers pages over all users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	if !h.authorize(c, authz.ActionAdminUserList, 0) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}
	afterID, limit, err := pageParams(c)
	if err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "cursor", Code: envelope.CodeValidation, Issue: "invalid"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.List(ctx, afterID, limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("admin: list users")
		return envelope.Internal(c)
	}
	items := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		items = append(items, toAdminUserResp(u))
	}
	page := userPageResp{Items: items}
	if len(users) == limit {
		page.NextCursor = cursor.Encode(users[len(users)-1].ID)
	}
	return envelope.OK(c, http.StatusOK, "users", page)
}

// GetUser returns one user's profile.
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "id", Code: envelope.CodeValidation, Issue: "invalid"})
	}
	if !h.authorize(c, authz.ActionAdminUserRead, id) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
		}
		h.Log.Error().Err(err).Msg("admin: get user")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "user", toAdminUserResp(u))
}

// PatchUser changes a user's status. Disabling also revokes every refresh
// session the user holds, so a disabled account cannot ride out an
// existing session.
func (h *AdminHandler) PatchUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "id", Code: envelope.CodeValidation, Issue: "invalid"})
	}
	var req patchUserReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if !h.authorize(c, authz.ActionAdminUserStatus, id) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	status := model.Status(req.Status)
	if err := h.Users.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
		}
		h.Log.Error().Err(err).Msg("admin: update status")
		return envelope.Internal(c)
	}
	if status == model.StatusDisabled {
		if err := h.Sessions.RevokeAllForUser(ctx, id); err != nil {
			h.Log.Error().Err(err).Uint64("user_id", id).Msg("admin: revoke sessions on disable")
		}
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.Log.Error().Err(err).Msg("admin: reload user")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "user updated", toAdminUserResp(u))
}

// PatchRole elevates or demotes a user's role. The policy admits only
// super_admin; an admin reaching this handler is denied and the attempt
// audited.
func (h *AdminHandler) PatchRole(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "id", Code: envelope.CodeValidation, Issue: "invalid"})
	}
	var req patchRoleReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if !model.ValidRole(req.Role) {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "role", Code: envelope.CodeValidation, Issue: "unknown role"})
	}
	if !h.authorize(c, authz.ActionAdminUserElevate, id) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.UpdateRole(ctx, id, model.Role(req.Role)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
		}
		h.Log.Error().Err(err).Msg("admin: update role")
		return envelope.Internal(c)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.Log.Error().Err(err).Msg("admin: reload user")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "role updated", toAdminUserResp(u))
}

// ListNotes pages over notes across users, optionally filtered by owner.
func (h *AdminHandler) ListNotes(c echo.Context) error {
	if !h.authorize(c, authz.ActionAdminNoteList, 0) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}
	afterID, limit, err := pageParams(c)
	if err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "cursor", Code: envelope.CodeValidation, Issue: "invalid"})
	}
	var ownerID uint64
	if s := c.QueryParam("user_id"); s != "" {
		ownerID, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
				envelope.FieldError{Field: "user_id", Code: envelope.CodeValidation, Issue: "invalid"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	notes, err := h.Notes.ListAll(ctx, ownerID, afterID, limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("admin: list notes")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "notes", buildNotePage(notes, limit))
}

// GetNote returns any user's note by id.
func (h *AdminHandler) GetNote(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "id", Code: envelope.CodeValidation, Issue: "invalid"})
	}
	if !h.authorize(c, authz.ActionAdminNoteRead, id) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Notes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
		}
		h.Log.Error().Err(err).Msg("admin: get note")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "note", toNoteResp(n))
}

// ListAudit pages over the audit log.
func (h *AdminHandler) ListAudit(c echo.Context) error {
	if !h.authorize(c, authz.ActionAdminAuditRead, 0) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}
	afterID, limit, err := pageParams(c)
	if err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "cursor", Code: envelope.CodeValidation, Issue: "invalid"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	entries, err := h.Audits.List(ctx, afterID, limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("admin: list audit")
		return envelope.Internal(c)
	}
	items := make([]auditResp, 0, len(entries))
	for _, e := range entries {
		items = append(items, auditResp{
			ID: e.ID, ActorID: e.ActorID, Action: e.Action,
			TargetID: e.TargetID, Outcome: e.Outcome, CreatedAt: e.CreatedAt,
		})
	}
	page := auditPage{Items: items}
	if len(entries) == limit {
		page.NextCursor = cursor.Encode(entries[len(entries)-1].ID)
	}
	return envelope.OK(c, http.StatusOK, "audit log", page)
}

func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
