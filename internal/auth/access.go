// Package auth provides credential primitives: signed access tokens,
// opaque refresh/verification tokens and password hashing. Access tokens
// are self-contained (signature + expiry only, no store lookup); opaque
// tokens are high-entropy random strings whose SHA-256 hash is the only
// form ever persisted.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/secure-notes/internal/model"
)

// Verification failures for access tokens. Callers map these onto the
// envelope error taxonomy.
var (
	ErrTokenExpired   = errors.New("access token expired")
	ErrTokenInvalid   = errors.New("access token invalid")
	ErrTokenMalformed = errors.New("access token malformed")
)

// AccessClaims is the payload of a signed access token. The subject is the
// user id, Role and EmailVerified mirror the user row at issuance time.
type AccessClaims struct {
	Role          model.Role `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	jwt.RegisteredClaims
}

// AccessToken bundles a signed JWT with its expiry so handlers can return
// both to the client without re-parsing the token.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user. The TTL is
// expressed in minutes; 15 is the recommended production value.
func NewAccessToken(secret string, u model.User, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := AccessClaims{
		Role:          u.Role,
		EmailVerified: u.EmailVerifiedAt != nil,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconvID(u.ID),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// AuthenticateAccessToken verifies signature and expiry of a signed token
// and returns its claims. Pure verification, no I/O: revocation of refresh
// sessions never affects already-issued access tokens.
func AuthenticateAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	switch {
	case err == nil && tok.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, ErrTokenInvalid
	}
}

// SubjectID parses the numeric user id out of the subject claim. Returns 0
// when the subject is missing or not numeric.
func (c *AccessClaims) SubjectID() uint64 {
	return parseID(c.Subject)
}
