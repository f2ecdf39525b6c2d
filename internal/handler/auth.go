package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/service"
)

// AuthHandler manages registration, login, and the GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an email+password account, start a session
//   - HandleLogin          → verify credentials, start a session
//   - HandleLogout         → clear the session cookie
//   - HandleMe             → return the logged-in user's profile
//   - HandleUpdateMe       → rename the account
//   - HandleDeleteMe       → delete the account and end the session
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorize page
//   - HandleGitHubCallback → finish the OAuth dance, start a session
//
// Sessions are a JWT in an HttpOnly cookie; the handler sets and clears the
// cookie, the service layer issues and owns the token.
type AuthHandler struct {
	auth    *service.AuthService
	github  *auth.GitHubProvider
	valid   *requestValidator
	logger  *slog.Logger
	// frontendURL is where OAuth outcomes land ("" = same origin).
	frontendURL string
	// redirectURI overrides the derived GitHub callback URL when set.
	// Needed behind proxies where r.Host isn't the public hostname.
	redirectURI string
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	authSvc *service.AuthService,
	github *auth.GitHubProvider,
	frontendURL, redirectURI string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:        authSvc,
		github:      github,
		valid:       newRequestValidator(),
		logger:      logger,
		frontendURL: frontendURL,
		redirectURI: redirectURI,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates a new account and logs it in.
//
// HTTP: POST /auth
// BODY: {"name": "...", "email": "...", "password": "..."}
//
// Success is 201 with the public user profile; the session cookie rides
// along on the response, so the client is logged in immediately.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}
	if err := h.valid.check(req, msgRegisterFieldsRequired); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(result.Token))
	writeJSON(w, http.StatusCreated, result.User.Public())
}

// HandleLogin verifies credentials and starts a session.
//
// HTTP: POST /auth/login
//
// All authentication failures come back as the same 401 — the service layer
// guarantees that; this handler just forwards whatever it returns.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}
	if err := h.valid.check(req, msgLoginFieldsRequired); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(result.Token))
	writeJSON(w, http.StatusOK, result.User.Public())
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// WHY POST AND NOT GET?
// Logout is a state-changing operation. GET would be vulnerable to CSRF and
// to browsers pre-fetching the URL.
//
// Sessions are stateless (JWT), so "logout" just means deleting the cookie.
// The token stays technically valid until its one-hour expiry, but without
// the cookie the browser can't send it. Logging out when already logged out
// is fine — clearing an absent cookie is a no-op.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearSessionCookie())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /auth/me
// Auth: Required (RequireAuth middleware sets userID in context)
//
// A valid token for a since-deleted account answers the same 401 as no
// token at all — the session simply isn't valid anymore.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.SetCookie(w, auth.ClearSessionCookie())
			writeError(w, apperror.Unauthorized("Not authenticated"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

type updateMeRequest struct {
	Name string `json:"name" validate:"required"`
}

// HandleUpdateMe renames the authenticated account.
//
// HTTP: PUT /api/me
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}
	if err := h.valid.check(req, "Name is required"); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.UpdateName(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// HandleDeleteMe deletes the authenticated account and ends the session.
//
// HTTP: DELETE /api/me
func (h *AuthHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, auth.ClearSessionCookie())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github
//
// CSRF PROTECTION VIA STATE:
// A random state value goes both into GitHub's authorize URL and into a
// short-lived cookie. HandleGitHubCallback verifies the two match, proving
// the callback belongs to a flow this server started.
//
// SOFT FAILURE:
// The browser is mid-navigation when it hits this endpoint, so a raw error
// page is a dead end. Anything that goes wrong redirects back to the app
// with an error code in the query string instead.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if !h.github.Configured() {
		h.logger.Warn("github login requested but OAuth is not configured")
		h.redirectWithError(w, r, "oauth_not_configured")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("github login: generating state", slog.String("error", err.Error()))
		h.redirectWithError(w, r, "server_error")
		return
	}

	http.SetCookie(w, auth.StateCookie(state))
	http.Redirect(w, r, h.github.AuthURL(state, h.callbackURI(r)), http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// The heavy lifting happens in completeGitHubCallback, which walks the
// steps and reports the outcome as values. This method only translates the
// outcome into HTTP: cookie plus redirect on success, redirect with an
// error code on failure — never a raw error page, for the same reason as
// HandleGitHubLogin.
//
// The state cookie is single-use and gets cleared on EVERY outcome,
// success or failure.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearStateCookie())

	result, errCode := h.completeGitHubCallback(r)
	if errCode != "" {
		h.redirectWithError(w, r, errCode)
		return
	}

	http.SetCookie(w, auth.SessionCookie(result.Token))
	http.Redirect(w, r, h.frontendURL+"/?auth=success", http.StatusFound)
}

// completeGitHubCallback runs the callback steps and returns either an auth
// result or a client-facing error code. It never writes to the response.
func (h *AuthHandler) completeGitHubCallback(r *http.Request) (*service.AuthResult, string) {
	if !h.github.Configured() {
		return nil, "oauth_not_configured"
	}

	q := r.URL.Query()

	// GitHub reports user-side failures (denied authorization, bad scope)
	// in an error parameter. Pass its code through to the frontend.
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("github callback: provider error", slog.String("error", errParam))
		return nil, errParam
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		return nil, "missing_params"
	}

	// CSRF check: the state must match what HandleGitHubLogin stored.
	stateCookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || !auth.ValidateState(stateCookie.Value, state) {
		h.logger.Warn("github callback: state mismatch")
		return nil, "invalid_state"
	}

	token, err := h.github.Exchange(r.Context(), code, h.callbackURI(r))
	if err != nil {
		h.logger.Error("github callback: code exchange failed", slog.String("error", err.Error()))
		// If GitHub itself rejected the exchange it supplies an error code
		// (e.g. bad_verification_code) worth surfacing to the client.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return nil, retrieveErr.ErrorCode
		}
		return nil, "exchange_failed"
	}

	ghUser, err := h.github.FetchUser(r.Context(), token)
	if err != nil {
		h.logger.Error("github callback: fetching profile", slog.String("error", err.Error()))
		return nil, "server_error"
	}

	// The profile's public email is often empty; the emails endpoint has
	// the real list. Every provider call in this flow is load-bearing, so
	// a failure here ends the callback like the profile fetch would.
	emails, err := h.github.FetchEmails(r.Context(), token)
	if err != nil {
		h.logger.Error("github callback: fetching emails", slog.String("error", err.Error()))
		return nil, "server_error"
	}
	email := auth.SelectPrimaryEmail(emails, ghUser.Email)
	if email == "" {
		return nil, "no_email"
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser, email)
	if err != nil {
		h.logger.Error("github callback: resolving identity", slog.String("error", err.Error()))
		return nil, "server_error"
	}

	return result, ""
}

// redirectWithError sends the browser back to the app with the failure
// reason in the auth_error query parameter.
func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/?auth_error="+url.QueryEscape(code), http.StatusFound)
}

// callbackURI resolves the OAuth redirect URI registered with GitHub.
//
// Priority: explicit configuration, then the request's own host, then a
// localhost default for bare dev setups. Deriving from the request keeps
// one binary working across environments without per-environment config.
func (h *AuthHandler) callbackURI(r *http.Request) string {
	if h.redirectURI != "" {
		return h.redirectURI
	}
	if r.Host != "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		return scheme + "://" + r.Host + "/auth/github/callback"
	}
	return "http://localhost:8080/auth/github/callback"
}
