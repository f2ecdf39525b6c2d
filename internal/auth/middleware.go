package auth

import (
	"context"
	"fmt"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "userID", id), ANY package that knows the string "userID"
// can read or shadow your value. Using a package-private type prevents collisions:
// only THIS package can create a key of type contextKey, so only this package
// can read or write userID values in the context.
type contextKey string

const userIDKey contextKey = "userID"

// unauthorizedBody is the single 401 payload for every authentication
// failure. Missing cookie, malformed token, bad signature, expired token —
// all byte-identical to the client, so nothing about the failure mode (or
// about which accounts exist) leaks. Matches the shape produced by the
// handler package's error writer.
const unauthorizedBody = `{"error":"unauthorized","message":"Not authenticated"}`

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the session cookie, validates it, and stores the
// userID in the request context. If the token is missing or invalid, it
// clears the session cookie on the client and returns 401.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler that "wraps" the original. Chi applies them in a chain:
// req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractClaims(r, tokens)
			if err != nil {
				// A bad cookie is useless to the client — clear it along
				// with the rejection so the browser stops sending it.
				http.SetCookie(w, ClearSessionCookie())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprintln(w, unauthorizedBody)
				return
			}

			// Store userID in context so handlers can read it
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the user identity when a valid token is present,
// but does NOT block the request if it's missing or invalid. Handlers
// check UserIDFromContext — ("", false) means the request is anonymous.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := extractClaims(r, tokens); err == nil {
				ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
				r = r.WithContext(ctx)
			}
			// Always continue — no 401 even without a token
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractClaims reads the session cookie from the raw Cookie header and
// validates the token. Parsing failures degrade to "no token found" — a
// garbage header is an anonymous request, never a 500.
func extractClaims(r *http.Request, tokens *TokenService) (Claims, error) {
	token, ok := TokenFromCookieHeader(r.Header.Get("Cookie"))
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	return tokens.Validate(token)
}
