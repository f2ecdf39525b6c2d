package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64  `json:"id"`         // GitHub's numeric user ID — stable, never changes
	Login     string `json:"login"`      // GitHub username, e.g. "sakif"
	Name      string `json:"name"`       // Display name (may be empty)
	Email     string `json:"email"`      // Primary email (empty if hidden in GitHub settings)
	AvatarURL string `json:"avatar_url"` // Profile picture URL
}

// GitHubEmail is one entry of the GitHub /user/emails API response.
// Fetched separately because the /user profile email is empty whenever the
// user has marked their email private — which is most users.
type GitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. Your server redirects the user to GitHub's authorization endpoint,
//    with your ClientID and the requested scope.
// 2. The user approves (or denies) the authorization request on GitHub.
// 3. GitHub redirects back to your callback URL with a short-lived "code".
// 4. Your server exchanges the code for an access token (server-to-server call).
// 5. Your server uses the access token to call the GitHub API for the
//    profile and the email list.
//
// WHY SERVER-SIDE EXCHANGE?
// The code-for-token exchange happens server-to-server, using your
// ClientSecret. The access token never touches the browser.
//
// The redirect URI is passed per call rather than fixed at construction:
// deployments may pin it via GITHUB_REDIRECT_URI, but when unset it is
// derived from the incoming request's host, which the provider cannot
// know up front.
type GitHubProvider struct {
	clientID     string
	clientSecret string

	// Endpoint and APIBaseURL default to GitHub's real endpoints.
	// Overridable so tests can point the provider at an httptest server.
	Endpoint   oauth2.Endpoint
	APIBaseURL string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// You get the client id and secret by registering an OAuth App at:
// https://github.com/settings/developers → "OAuth Apps" → "New OAuth App"
//
// Scope requested: "user:email" — profile plus the email address list.
func NewGitHubProvider(clientID, clientSecret string) *GitHubProvider {
	return &GitHubProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		Endpoint:     github.Endpoint,
		APIBaseURL:   "https://api.github.com",
	}
}

// Configured reports whether a client id is present. When it isn't, the
// login handler soft-fails with a redirect instead of starting the flow.
func (p *GitHubProvider) Configured() bool {
	return p.clientID != ""
}

// config assembles the oauth2.Config for one request. The redirect URI must
// match the one used at initiation exactly, so both AuthURL and Exchange
// take it as a parameter.
func (p *GitHubProvider) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"user:email"},
		Endpoint:     p.Endpoint,
	}
}

// AuthURL returns the GitHub authorization URL to redirect the user to,
// carrying the CSRF state (see state.go).
func (p *GitHubProvider) AuthURL(state, redirectURI string) string {
	return p.config(redirectURI).AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for an access token.
// This makes a POST to GitHub's token endpoint using our ClientSecret.
//
// A provider-side rejection (e.g. bad_verification_code) comes back as an
// *oauth2.RetrieveError — the callback handler surfaces its error code to
// the frontend.
func (p *GitHubProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	token, err := p.config(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	return token, nil
}

// FetchUser retrieves the authenticated user's GitHub profile.
func (p *GitHubProvider) FetchUser(ctx context.Context, token *oauth2.Token) (*GitHubUser, error) {
	var ghUser GitHubUser
	if err := p.getJSON(ctx, token, "/user", &ghUser); err != nil {
		return nil, err
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}
	return &ghUser, nil
}

// FetchEmails retrieves the user's registered email addresses. The profile
// email is often empty (private), so the callback needs this list to find
// a usable address.
func (p *GitHubProvider) FetchEmails(ctx context.Context, token *oauth2.Token) ([]GitHubEmail, error) {
	var emails []GitHubEmail
	if err := p.getJSON(ctx, token, "/user/emails", &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// getJSON performs an authenticated GET against the GitHub API and
// unmarshals the response.
func (p *GitHubProvider) getJSON(ctx context.Context, token *oauth2.Token, path string, out any) error {
	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := p.config("").Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.APIBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("auth: building GitHub request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling GitHub %s API: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: GitHub %s API returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decoding GitHub %s response: %w", path, err)
	}
	return nil
}

// SelectPrimaryEmail picks the usable email for account resolution.
//
// Priority:
//  1. the address marked both primary and verified
//  2. any verified address
//  3. the profile's direct email field (may itself be empty)
//
// Unverified addresses are never preferred — linking an account by an
// unverified email would let anyone claim someone else's address.
func SelectPrimaryEmail(emails []GitHubEmail, profileEmail string) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return profileEmail
}
