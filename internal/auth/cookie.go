package auth

import (
	"net/http"
	"strings"
)

// Cookie names. The session cookie and the OAuth state cookie are distinct
// on purpose — the state cookie is a 5-minute one-shot for the OAuth
// round-trip and must never be confused with a session.
const (
	SessionCookieName = "auth_token"
	StateCookieName   = "oauth_state"
)

const stateCookieMaxAge = 300 // 5 minutes — one OAuth round-trip

// SessionCookie builds the Set-Cookie value carrying a session token.
//
// Attributes:
//   - HttpOnly: JavaScript cannot read it (XSS protection)
//   - SameSite=Lax: sent on top-level navigations, not cross-site POSTs
//   - Max-Age matches the token lifetime exactly, so the cookie and the
//     JWT expire together
//
// Secure is not forced here — it depends on whether the deployment
// terminates TLS. Production deployments should serve over HTTPS and
// enable it.
func SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie builds the Set-Cookie value that deletes the session
// cookie (empty value, Max-Age=0). Used on logout and whenever a bad
// token should be cleaned off the client.
func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // net/http emits Max-Age=0 for negative values
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// StateCookie builds the short-lived cookie carrying the OAuth CSRF state.
func StateCookie(state string) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearStateCookie builds the Set-Cookie value that deletes the state
// cookie. The callback sets this on EVERY exit path — success or failure —
// because the state is single-use.
func ClearStateCookie() *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ParseCookieHeader parses a raw `Cookie:` header value into a name→value
// map.
//
// It is total and side-effect-free: empty input, stray separators,
// pairs without '=', and duplicate names are all handled without error.
// On duplicates the LAST occurrence wins (deterministic).
//
// WHY NOT r.Cookie()?
// net/http's cookie accessors are fine for request handling and the
// middleware uses them indirectly through this function, but having the
// parse as a pure function makes the "never panics on garbage" property
// testable without building an *http.Request.
func ParseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found || name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}

// TokenFromCookieHeader extracts the session token from a raw Cookie
// header. Returns ("", false) when no session cookie is present —
// malformed headers degrade to "no token", they never fail the request.
func TokenFromCookieHeader(header string) (string, bool) {
	token, ok := ParseCookieHeader(header)[SessionCookieName]
	return token, ok && token != ""
}
