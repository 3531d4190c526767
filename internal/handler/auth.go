package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/secure-notes/internal/auth"
	"github.com/iliyamo/secure-notes/internal/config"
	"github.com/iliyamo/secure-notes/internal/envelope"
	"github.com/iliyamo/secure-notes/internal/model"
	"github.com/iliyamo/secure-notes/internal/queue"
	"github.com/iliyamo/secure-notes/internal/repository"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg           config.Config
	Log           zerolog.Logger
	Users         UserStore
	Sessions      SessionStore
	Verifications VerificationStore
	Publisher     EventPublisher
}

func NewAuthHandler(cfg config.Config, log zerolog.Logger, u UserStore, s SessionStore, v VerificationStore, p EventPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Log: log, Users: u, Sessions: s, Verifications: v, Publisher: p}
}

// ----- DTOs -----

type signupReq struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}
type verifyReq struct {
	Token string `json:"token" validate:"required"`
}
type resendReq struct {
	Email string `json:"email" validate:"required,email"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID     uint64       `json:"id"`
	Email  string       `json:"email"`
	Role   model.Role   `json:"role"`
	Status model.Status `json:"status"`
}
type authResp struct {
	User    userPart   `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh *tokenPart `json:"refresh,omitempty"`
}

// Signup creates a PENDING_VERIFICATION user, issues a verification token
// and requests mail dispatch. Mail failure never rolls the user back: the
// account exists and verification can be resent.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	hash, err := auth.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		h.Log.Error().Err(err).Msg("signup: hash password")
		return envelope.Internal(c)
	}
	uid, err := h.Users.Create(ctx, email, hash, model.RoleClient)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return envelope.Fail(c, http.StatusConflict, envelope.CodeConflict,
				envelope.FieldError{Field: "email", Code: envelope.CodeConflict, Issue: "already registered"})
		}
		h.Log.Error().Err(err).Msg("signup: create user")
		return envelope.Internal(c)
	}

	if err := h.issueVerification(ctx, uid, email); err != nil {
		// The user row is committed; a token can be reissued through the
		// resend endpoint, so report success regardless.
		h.Log.Error().Err(err).Uint64("user_id", uid).Msg("signup: issue verification")
	}

	return envelope.OK(c, http.StatusCreated, "account created, verification email sent", userPart{
		ID: uid, Email: email, Role: model.RoleClient, Status: model.StatusPendingVerification,
	})
}

// VerifyEmail consumes a verification token and flips the account to
// VERIFIED. Consumption is atomic: under concurrent calls with the same
// token exactly one succeeds and the other sees ALREADY_USED.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, err := h.Verifications.Consume(ctx, auth.HashToken(strings.TrimSpace(req.Token)))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVerificationNotFound):
			return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
		case errors.Is(err, repository.ErrVerificationExpired):
			return envelope.Fail(c, http.StatusGone, envelope.CodeTokenExpired)
		case errors.Is(err, repository.ErrVerificationUsed):
			return envelope.Fail(c, http.StatusConflict, envelope.CodeConflict)
		}
		h.Log.Error().Err(err).Msg("verify-email: consume")
		return envelope.Internal(c)
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", uid).Msg("verify-email: load user")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "email verified", userPart{
		ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status,
	})
}

// ResendVerification reissues the verification token for a pending
// account. Prior unused tokens are superseded. The response is identical
// whether or not the email exists, so this endpoint is not an account
// oracle.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err == nil && u.Status == model.StatusPendingVerification {
		if err := h.issueVerification(ctx, u.ID, u.Email); err != nil {
			h.Log.Error().Err(err).Uint64("user_id", u.ID).Msg("resend: issue verification")
		}
	}
	return envelope.OK(c, http.StatusOK, "if the account is pending verification, a new email was sent", nil)
}

// Login verifies credentials and returns a fresh access/refresh pair.
// A pending account with correct credentials gets the distinct
// AUTH_NOT_VERIFIED so clients can route to the resend flow; a disabled
// account is indistinguishable from bad credentials.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeInvalidCredentials)
		}
		h.Log.Error().Err(err).Msg("login: load user")
		return envelope.Internal(c)
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeInvalidCredentials)
	}
	switch u.Status {
	case model.StatusVerified:
	case model.StatusPendingVerification:
		// Only revealed after a correct password, so the distinct error is
		// not an existence oracle.
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeNotVerified)
	default: // DISABLED
		return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeInvalidCredentials)
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", u.ID).Msg("login: issue tokens")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "logged in", resp)
}

// Refresh exchanges a valid refresh token for a new access token. With
// rotation enabled the presented session is revoked and replaced in one
// transaction; presenting a revoked token is treated as a replay signal
// and may revoke every session of the user.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	hash := auth.HashToken(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if !h.Cfg.RefreshRotate {
		return h.refreshWithoutRotation(c, ctx, hash)
	}

	s, err := h.Sessions.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenInvalid)
		}
		h.Log.Error().Err(err).Msg("refresh: load session")
		return envelope.Internal(c)
	}
	if s.RevokedAt != nil {
		return h.handleReplay(c, ctx, s)
	}
	if !s.Active(time.Now().UTC()) {
		return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenExpired)
	}

	u, err := h.Users.GetByID(ctx, s.UserID)
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", s.UserID).Msg("refresh: load user")
		return envelope.Internal(c)
	}
	if u.Status == model.StatusDisabled {
		return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenRevoked)
	}

	next, err := auth.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return envelope.Internal(c)
	}
	if _, err := h.Sessions.Rotate(ctx, hash, u.ID, auth.HashToken(next.Raw), next.Exp); err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionRevoked):
			// Lost the race against a concurrent refresh (or a replay that
			// slipped between the read and the rotate).
			return h.handleReplay(c, ctx, s)
		case errors.Is(err, repository.ErrSessionExpired):
			return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenExpired)
		case errors.Is(err, repository.ErrSessionNotFound):
			return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenInvalid)
		}
		h.Log.Error().Err(err).Msg("refresh: rotate")
		return envelope.Internal(c)
	}

	access, err := auth.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTLMin)
	if err != nil {
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "token refreshed", authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: &tokenPart{Token: next.Raw, Expires: next.Exp},
	})
}

// refreshWithoutRotation validates the presented session, stamps
// last_used_at and returns a new access token while keeping the session.
func (h *AuthHandler) refreshWithoutRotation(c echo.Context, ctx context.Context, hash string) error {
	uid, err := h.Sessions.Touch(ctx, hash)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionRevoked):
			s, gerr := h.Sessions.GetByHash(ctx, hash)
			if gerr == nil {
				return h.handleReplay(c, ctx, s)
			}
			return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenRevoked)
		case errors.Is(err, repository.ErrSessionExpired):
			return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenExpired)
		case errors.Is(err, repository.ErrSessionNotFound):
			return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenInvalid)
		}
		h.Log.Error().Err(err).Msg("refresh: touch session")
		return envelope.Internal(c)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", uid).Msg("refresh: load user")
		return envelope.Internal(c)
	}
	if u.Status == model.StatusDisabled {
		return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenRevoked)
	}
	access, err := auth.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTLMin)
	if err != nil {
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "token refreshed", authResp{
		User:   userPart{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// handleReplay reacts to a revoked session being presented again: a
// distinct security event, logged apart from ordinary expiry, optionally
// escalating to revocation of every session the user holds.
func (h *AuthHandler) handleReplay(c echo.Context, ctx context.Context, s model.RefreshSession) error {
	h.Log.Warn().
		Str("event", "refresh_token_replay").
		Uint64("user_id", s.UserID).
		Uint64("session_id", s.ID).
		Msg("revoked refresh token presented again")
	if h.Cfg.ReplayRevokeAll {
		if err := h.Sessions.RevokeAllForUser(ctx, s.UserID); err != nil {
			h.Log.Error().Err(err).Uint64("user_id", s.UserID).Msg("replay: revoke all sessions")
		}
	}
	return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenRevoked)
}

// Logout revokes the presented refresh session, or every session of the
// bearer when no refresh token is supplied. Revoking an already-revoked
// session succeeds: logout is idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req)
	refresh := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if refresh != "" {
		if err := h.Sessions.RevokeByHash(ctx, auth.HashToken(refresh)); err != nil {
			h.Log.Error().Err(err).Msg("logout: revoke session")
			return envelope.Internal(c)
		}
		return envelope.OK(c, http.StatusOK, "logged out", nil)
	}

	// No refresh token in the body: fall back to the bearer and revoke all
	// sessions of that user (logout everywhere).
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		claims, err := auth.AuthenticateAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err == nil && claims.SubjectID() != 0 {
			if err := h.Sessions.RevokeAllForUser(ctx, claims.SubjectID()); err != nil {
				h.Log.Error().Err(err).Msg("logout: revoke all sessions")
				return envelope.Internal(c)
			}
			return envelope.OK(c, http.StatusOK, "logged out everywhere", nil)
		}
		return envelope.Fail(c, http.StatusUnauthorized, envelope.CodeTokenInvalid)
	}
	return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
		envelope.FieldError{Field: "refresh_token", Code: envelope.CodeValidation, Issue: "provide refresh_token or Authorization header"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	actor := actorFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
		}
		h.Log.Error().Err(err).Msg("me: load user")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "profile", userPart{
		ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status,
	})
}

// issuePair creates a refresh session and an access token for a user.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
	access, err := auth.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := auth.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if _, err := h.Sessions.Create(ctx, u.ID, auth.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: &tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// issueVerification stores a fresh verification token (superseding unused
// ones) and publishes the mail dispatch event. Publishing is best-effort
// relative to the HTTP response.
func (h *AuthHandler) issueVerification(ctx context.Context, userID uint64, email string) error {
	tok, err := auth.NewVerificationToken(h.Cfg.VerifyTTLHours)
	if err != nil {
		return err
	}
	if err := h.Verifications.Issue(ctx, userID, auth.HashToken(tok.Raw), tok.Exp); err != nil {
		return err
	}
	ev := queue.VerificationRequestedEvent{
		UserID:      userID,
		Email:       email,
		RawToken:    tok.Raw,
		ExpiresAt:   tok.Exp.Format(time.RFC3339),
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Publisher.PublishVerificationRequested(ctx, ev); err != nil {
		// Token row is committed; resend covers the gap.
		h.Log.Warn().Err(err).Uint64("user_id", userID).Msg("verification mail publish failed")
	}
	return nil
}
