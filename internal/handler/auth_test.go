package handler_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"

	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/handler"
	"github.com/sakif/taskboard/internal/repository/sqlite"
	"github.com/sakif/taskboard/internal/service"
)

const testFrontend = "http://app.example"

// fakeGitHub simulates GitHub's token endpoint and the two API calls the
// callback makes. Fields are mutable so each test can shape the responses.
type fakeGitHub struct {
	server     *httptest.Server
	user       auth.GitHubUser
	emails     []auth.GitHubEmail
	badCode    bool // reject the token exchange like an expired code
	emailsDown bool // fail the /user/emails call like an API outage
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		user: auth.GitHubUser{
			ID:        4242,
			Login:     "octocat",
			Name:      "The Octocat",
			AvatarURL: "https://avatars.example/4242",
		},
		emails: []auth.GitHubEmail{
			{Email: "octo@example.com", Primary: true, Verified: true},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if f.badCode {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"bad_verification_code"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"gho_testtoken","token_type":"bearer"}`)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if f.emailsDown {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.emails)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// provider returns a GitHubProvider pointed at the fake server.
func (f *fakeGitHub) provider() *auth.GitHubProvider {
	p := auth.NewGitHubProvider("test-client-id", "test-client-secret")
	p.Endpoint = oauth2.Endpoint{
		AuthURL:  f.server.URL + "/authorize",
		TokenURL: f.server.URL + "/token",
	}
	p.APIBaseURL = f.server.URL
	return p
}

// newTestRouter wires the real stack — in-memory SQLite, services, handlers,
// auth middleware — so these tests exercise exactly what production serves.
func newTestRouter(t *testing.T, github *auth.GitHubProvider) http.Handler {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens := auth.NewTokenService("handler-test-secret-32-bytes-ok!")
	passwords := auth.NewPasswordServiceForTest(4)

	authSvc := service.NewAuthService(db.Users(), tokens, passwords, logger)
	if github == nil {
		github = auth.NewGitHubProvider("", "") // unconfigured
	}
	authHandler := handler.NewAuthHandler(authSvc, github, testFrontend, "", logger)

	r := chi.NewRouter()
	r.Post("/auth", authHandler.HandleRegister)
	r.Post("/auth/login", authHandler.HandleLogin)
	r.Post("/auth/logout", authHandler.HandleLogout)
	r.Get("/auth/github", authHandler.HandleGitHubLogin)
	r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/auth/me", authHandler.HandleMe)
		r.Put("/api/me", authHandler.HandleUpdateMe)
		r.Delete("/api/me", authHandler.HandleDeleteMe)
	})
	return r
}

func doJSON(h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// cookieByName digs a cookie out of a recorded response.
func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func registerUser(t *testing.T, h http.Handler, name, email, password string) *http.Cookie {
	t.Helper()
	rr := doJSON(h, http.MethodPost, "/auth",
		fmt.Sprintf(`{"name":%q,"email":%q,"password":%q}`, name, email, password))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rr.Code, rr.Body.String())
	}
	c := cookieByName(rr, auth.SessionCookieName)
	if c == nil {
		t.Fatal("register did not set a session cookie")
	}
	return c
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := doJSON(h, http.MethodPost, "/auth",
		`{"name":"Ada","email":"ada@example.com","password":"secret123"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var body map[string]any
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "Ada", body["name"])
	// The hash must never leave the server
	assert.NotContains(t, body, "passwordHash")
	assert.NotContains(t, body, "password")

	c := cookieByName(rr, auth.SessionCookieName)
	if assert.NotNil(t, c, "session cookie missing") {
		assert.True(t, c.HttpOnly, "session cookie must be HttpOnly")
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, 3600, c.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.NotEmpty(t, c.Value)
	}
}

func TestRegister_Validation(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			"missing name",
			`{"email":"a@example.com","password":"secret123"}`,
			"Name, email, and password are required",
		},
		{
			"missing everything",
			`{}`,
			"Name, email, and password are required",
		},
		{
			"invalid email",
			`{"name":"A","email":"not-an-email","password":"secret123"}`,
			"Invalid email format",
		},
		{
			"short password",
			`{"name":"A","email":"a@example.com","password":"12345"}`,
			"Password must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(h, http.MethodPost, "/auth", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp handler.ErrorResponse
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newTestRouter(t, nil)
	registerUser(t, h, "First", "dup@example.com", "secret123")

	rr := doJSON(h, http.MethodPost, "/auth",
		`{"name":"Second","email":"dup@example.com","password":"other456"}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
	var resp handler.ErrorResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "User with this email already exists", resp.Message)
}

// =========================================================================
// LOGIN / LOGOUT / ME
// =========================================================================

func TestLoginAndMe(t *testing.T) {
	h := newTestRouter(t, nil)
	registerUser(t, h, "Ada", "ada@example.com", "secret123")

	rr := doJSON(h, http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	session := cookieByName(rr, auth.SessionCookieName)
	if !assert.NotNil(t, session) {
		return
	}

	me := doJSON(h, http.MethodGet, "/auth/me", "", session)
	assert.Equal(t, http.StatusOK, me.Code)

	var body map[string]any
	assert.NoError(t, json.NewDecoder(me.Body).Decode(&body))
	assert.Equal(t, "ada@example.com", body["email"])
}

// Wrong password and unknown email must be byte-identical responses.
func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	h := newTestRouter(t, nil)
	registerUser(t, h, "Ada", "ada@example.com", "secret123")

	wrongPassword := doJSON(h, http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"wrong"}`)
	unknownEmail := doJSON(h, http.MethodPost, "/auth/login",
		`{"email":"ghost@example.com","password":"secret123"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Contains(t, wrongPassword.Body.String(), "Invalid email or password")
}

func TestLogin_MissingFields(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := doJSON(h, http.MethodPost, "/auth/login", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email and password are required")
}

func TestLogout(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := doJSON(h, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Logged out successfully")

	cleared := cookieByName(rr, auth.SessionCookieName)
	if assert.NotNil(t, cleared, "logout must clear the session cookie") {
		assert.Empty(t, cleared.Value)
		assert.True(t, cleared.MaxAge < 0 || cleared.MaxAge == 0, "cookie must be expired")
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	h := newTestRouter(t, nil)

	noCookie := doJSON(h, http.MethodGet, "/auth/me", "")
	garbage := doJSON(h, http.MethodGet, "/auth/me", "",
		&http.Cookie{Name: auth.SessionCookieName, Value: "not-a-jwt"})

	// Exact same body for "no token" and "bad token" — nothing leaks about
	// why authentication failed.
	assert.Equal(t, http.StatusUnauthorized, noCookie.Code)
	assert.Equal(t, http.StatusUnauthorized, garbage.Code)
	assert.JSONEq(t, `{"error":"unauthorized","message":"Not authenticated"}`, noCookie.Body.String())
	assert.Equal(t, noCookie.Body.String(), garbage.Body.String())
}

func TestMe_TokenForDeletedUser(t *testing.T) {
	h := newTestRouter(t, nil)
	session := registerUser(t, h, "Gone", "gone@example.com", "secret123")

	del := doJSON(h, http.MethodDelete, "/api/me", "", session)
	assert.Equal(t, http.StatusOK, del.Code)

	// The token is still cryptographically valid, but the account is gone —
	// same generic 401 as any other auth failure.
	me := doJSON(h, http.MethodGet, "/auth/me", "", session)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
	assert.JSONEq(t, `{"error":"unauthorized","message":"Not authenticated"}`, me.Body.String())
}

func TestUpdateMe(t *testing.T) {
	h := newTestRouter(t, nil)
	session := registerUser(t, h, "Old Name", "rename@example.com", "secret123")

	rr := doJSON(h, http.MethodPut, "/api/me", `{"name":"New Name"}`, session)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "New Name", body["name"])
}

// =========================================================================
// GITHUB OAUTH
// =========================================================================

func TestGitHubLogin_NotConfigured(t *testing.T) {
	h := newTestRouter(t, nil) // nil = unconfigured provider

	rr := doJSON(h, http.MethodGet, "/auth/github", "")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, testFrontend+"/?auth_error=oauth_not_configured", rr.Header().Get("Location"))
}

func TestGitHubLogin_RedirectsWithState(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newTestRouter(t, gh.provider())

	rr := doJSON(h, http.MethodGet, "/auth/github", "")
	assert.Equal(t, http.StatusFound, rr.Code)

	stateCookie := cookieByName(rr, auth.StateCookieName)
	if !assert.NotNil(t, stateCookie, "state cookie missing") {
		return
	}
	assert.True(t, stateCookie.HttpOnly)
	assert.Equal(t, 300, stateCookie.MaxAge)

	// The state in the authorize URL matches the cookie
	loc, err := url.Parse(rr.Header().Get("Location"))
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), gh.server.URL+"/authorize"))
	assert.Equal(t, stateCookie.Value, loc.Query().Get("state"))
	assert.Equal(t, "test-client-id", loc.Query().Get("client_id"))
}

// The callback flow: initiation gives us the state cookie, then we play
// GitHub redirecting back with code+state.
func callbackWithState(t *testing.T, h http.Handler, query string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	start := doJSON(h, http.MethodGet, "/auth/github", "")
	stateCookie := cookieByName(start, auth.StateCookieName)
	if stateCookie == nil {
		t.Fatal("no state cookie from /auth/github")
	}
	q := strings.ReplaceAll(query, "{state}", stateCookie.Value)
	return doJSON(h, http.MethodGet, "/auth/github/callback?"+q, "", stateCookie), stateCookie
}

func TestGitHubCallback_Success(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newTestRouter(t, gh.provider())

	rr, _ := callbackWithState(t, h, "code=good&state={state}")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, testFrontend+"/?auth=success", rr.Header().Get("Location"))

	session := cookieByName(rr, auth.SessionCookieName)
	if !assert.NotNil(t, session, "callback must set a session cookie") {
		return
	}

	// The state cookie is cleared even on success
	state := cookieByName(rr, auth.StateCookieName)
	if assert.NotNil(t, state) {
		assert.Empty(t, state.Value)
	}

	// And the session actually works
	me := doJSON(h, http.MethodGet, "/auth/me", "", session)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "octo@example.com")
}

func TestGitHubCallback_LinksToExistingAccount(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newTestRouter(t, gh.provider())

	// A password account with the same email GitHub will report
	registerUser(t, h, "Octo", "octo@example.com", "secret123")

	rr, _ := callbackWithState(t, h, "code=good&state={state}")
	assert.Equal(t, testFrontend+"/?auth=success", rr.Header().Get("Location"))

	session := cookieByName(rr, auth.SessionCookieName)
	me := doJSON(h, http.MethodGet, "/auth/me", "", session)

	var body map[string]any
	assert.NoError(t, json.NewDecoder(me.Body).Decode(&body))
	// Linked, not duplicated: the original name survives
	assert.Equal(t, "Octo", body["name"])
}

func TestGitHubCallback_InvalidState(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newTestRouter(t, gh.provider())

	rr, _ := callbackWithState(t, h, "code=good&state=tampered-value")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, testFrontend+"/?auth_error=invalid_state", rr.Header().Get("Location"))
	// No session on failure
	assert.Nil(t, cookieByName(rr, auth.SessionCookieName))
}

func TestGitHubCallback_MissingParams(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newTestRouter(t, gh.provider())

	rr := doJSON(h, http.MethodGet, "/auth/github/callback", "")
	assert.Equal(t, testFrontend+"/?auth_error=missing_params", rr.Header().Get("Location"))

	// The single-use state cookie is cleared even on failure
	state := cookieByName(rr, auth.StateCookieName)
	if assert.NotNil(t, state) {
		assert.Empty(t, state.Value)
	}
}

func TestGitHubCallback_ProviderErrorPassthrough(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newTestRouter(t, gh.provider())

	// User clicked "Cancel" on GitHub's authorize page
	rr := doJSON(h, http.MethodGet, "/auth/github/callback?error=access_denied", "")
	assert.Equal(t, testFrontend+"/?auth_error=access_denied", rr.Header().Get("Location"))
}

func TestGitHubCallback_ExchangeFailure(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.badCode = true
	h := newTestRouter(t, gh.provider())

	rr, _ := callbackWithState(t, h, "code=expired&state={state}")

	// GitHub's own error code surfaces to the frontend
	assert.Equal(t, testFrontend+"/?auth_error=bad_verification_code", rr.Header().Get("Location"))
}

func TestGitHubCallback_EmailFetchFailure(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.emailsDown = true
	h := newTestRouter(t, gh.provider())

	rr, _ := callbackWithState(t, h, "code=good&state={state}")

	// The emails call is part of the flow, not an optimization — if it
	// fails we don't guess from the profile email, we abort.
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, testFrontend+"/?auth_error=server_error", rr.Header().Get("Location"))
	assert.Nil(t, cookieByName(rr, auth.SessionCookieName))
}

func TestGitHubCallback_NoEmail(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.emails = []auth.GitHubEmail{{Email: "hidden@example.com", Verified: false}}
	gh.user.Email = "" // profile email hidden too
	h := newTestRouter(t, gh.provider())

	rr, _ := callbackWithState(t, h, "code=good&state={state}")

	assert.Equal(t, testFrontend+"/?auth_error=no_email", rr.Header().Get("Location"))
}
