// Package model defines the data structures used throughout the application.
package model

import "time"

// Auth provider tags stored in users.auth_provider. The tag records how the
// account was first registered — it is informational and is NOT updated when
// a password account later links a GitHub identity.
const (
	ProviderPassword = "password"
	ProviderGitHub   = "github"
)

// User represents a registered account.
//
// A user can authenticate with a password, with GitHub OAuth, or both:
//   - Password registration sets PasswordHash; OAuthID stays empty.
//   - A first-time GitHub login sets OAuthID; PasswordHash stays empty.
//   - A GitHub login whose verified email matches an existing password
//     account LINKS the two: OAuthID is filled in on the existing row.
//
// The invariant after creation is that at least one credential exists:
// PasswordHash != "" OR OAuthID != "". Never both empty.
//
// WHY OAuthID string (not int64)?
// GitHub user IDs are numeric, but we store the provider subject as an
// opaque string so the column doesn't assume any one provider's numbering
// scheme. The repository stores "" as SQL NULL so the UNIQUE constraint
// only applies to linked accounts.
//
// PasswordHash carries `json:"-"` — it must never leave the server, no
// matter which handler serializes a User. Public() is the belt-and-braces
// view used in responses.
type User struct {
	ID             string    `json:"id"             db:"id"`
	Name           string    `json:"name"           db:"name"`
	Email          string    `json:"email"          db:"email"`
	PasswordHash   string    `json:"-"              db:"password_hash"`
	OAuthID        string    `json:"-"              db:"oauth_id"`        // provider subject, "" = not linked
	AuthProvider   string    `json:"authProvider"   db:"auth_provider"`   // "password" or "github"
	ProfilePicture string    `json:"profilePicture" db:"profile_picture"` // avatar URL, "" = none
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// PublicUser is the subset of User that is safe to return to a client.
type PublicUser struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Public returns the client-safe view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// HasPassword reports whether this account can log in with a password.
// OAuth-only accounts return false — password verification against them
// must always fail rather than comparing against an empty hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
