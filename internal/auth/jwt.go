// Package auth resolves who is calling: it issues and verifies JWTs, hashes
// passwords, runs the GitHub OAuth flow, and puts the verified Identity into
// the request context.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. The client registers or logs in (email/password, or GitHub OAuth)
//  2. The server issues a signed JWT carrying the user ID and role
//  3. The client sends it back as "Authorization: Bearer <jwt>" or in the
//     HttpOnly "token" cookie
//  4. RequireAuth validates it, loads the account for its current role and
//     stores the Identity in the context; RequireRole gates admin-only routes
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","role":"admin","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The role claim is informational for clients. Authorization uses the role
// stored on the account, which RequireAuth reads on every request, so a
// promotion or demotion never waits for the token to expire.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/eventhub/internal/model"
)

const (
	issuer     = "eventhub"
	defaultTTL = 24 * time.Hour
)

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A non-positive ttl falls back to
// 24 hours.
//
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid. Handlers use it for the cookie
// Max-Age so cookie and token expire together.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload: the standard registered claims ("sub" holds the
// user ID) plus the user's role.
type claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Generate signs a token for userID with the configured lifetime.
func (s *TokenService) Generate(userID string, role model.Role) (string, error) {
	return s.GenerateWithDuration(userID, role, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. A negative
// duration produces an already-expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT string and returns the Identity it
// carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Token is not expired, and carries an expiry at all
//   - Issuer is "eventhub"
//   - Algorithm is HS256 (prevents the "alg: none" confusion attack)
//
// Tokens with an unknown role are rejected rather than downgraded.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}
	if !c.Role.Valid() {
		return Identity{}, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return Identity{UserID: c.Subject, Role: c.Role}, nil
}
