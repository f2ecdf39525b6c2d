// Package auth provides session tokens, password hashing, cookies, and the
// GitHub OAuth client for the taskboard API.
//
// SESSION FLOW OVERVIEW:
// 1. User registers or logs in (password), or completes the GitHub OAuth flow
// 2. Server issues a JWT embedding the user's id and email
// 3. The JWT is stored in an HttpOnly cookie (see cookie.go)
// 4. On subsequent requests, middleware reads the cookie, validates the JWT,
//    and puts the userID in the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't store session
// data. All the information needed (userID, email, expiry) is inside the
// signed token. The signature ensures nobody can tamper with it without
// the secret key. The flip side: there is no server-side revocation —
// "logout" just deletes the cookie and the token ages out after an hour.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is the fixed lifetime of a session token. After expiry
// the client must log in again; there is no refresh mechanism.
const SessionDuration = time.Hour

// InsecureDevSecret is the signing key used when JWT_SECRET is not set.
//
// It exists so local development works out of the box — a missing secret
// must not hard-fail the server. main() logs a prominent warning when this
// fallback is active; a real deployment must always set JWT_SECRET.
const InsecureDevSecret = "insecure-dev-secret-change-in-production"

const issuer = "taskboard"

// TokenService signs and verifies session tokens.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations — keep it safe, rotate it
// periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// An empty secret falls back to InsecureDevSecret (see above).
// In production the secret should be at least 32 bytes of random data:
// JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) *TokenService {
	if secret == "" {
		secret = InsecureDevSecret
	}
	return &TokenService{secret: []byte(secret)}
}

// Claims is the verified content of a session token: who the session
// belongs to. Email is carried alongside the id so the client identity is
// self-contained without a DB lookup.
type Claims struct {
	UserID string
	Email  string
}

// sessionClaims is the JWT payload. It embeds jwt.RegisteredClaims (which
// provides Subject, ExpiresAt, IssuedAt, Issuer) and adds the email claim.
// The user id travels in "sub" — the standard claim for the token's owner.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue creates and signs a session token for the given user.
//
// Token lifetime: 1 hour, fixed (SessionDuration).
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key for
// signing and verifying. Fine for a single-server deployment.
func (s *TokenService) Issue(userID, email string) (string, error) {
	return s.IssueWithDuration(userID, email, SessionDuration)
}

// IssueWithDuration creates a token with a custom expiry duration.
// Used by tests to produce already-expired tokens.
func (s *TokenService) IssueWithDuration(userID, email string, d time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Email: email,
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

// ErrInvalidToken is returned by Validate for EVERY failure mode.
//
// Malformed token, bad signature, and expired token are deliberately
// indistinguishable to callers — per the error design, the client must
// never learn which sub-check failed. The wrapped cause is still in the
// chain for server-side logs.
var ErrInvalidToken = errors.New("invalid or expired token")

// Validate parses and verifies a session token.
// Returns the claims (userID, email) if the token is valid.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (passing jwt.WithValidMethods prevents the
//     classic "alg:none" confusion attack)
func (s *TokenService) Validate(tokenStr string) (Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
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
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{UserID: c.Subject, Email: c.Email}, nil
}
