// Package service — authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Register/login with email+password (bcrypt via PasswordService)
//   - Resolve a GitHub identity to a local account (find, link, or create)
//   - Encapsulate all auth rules in one place, away from HTTP concerns
//   - Be easily testable with mock dependencies
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// invalidCredentials is the single message for every login failure.
// Unknown email, wrong password, and "this account only has GitHub login"
// all read identically, so a caller can't probe which emails exist.
const invalidCredentials = "Invalid email or password"

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go (or main.go) when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations.
// It bundles the user record and the issued JWT together so the caller
// (the HTTP handler) can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new email+password account and logs it in.
//
// The handler has already validated the input shape (email format, password
// length); the service owns the uniqueness rule. A taken email returns
// apperror.ErrConflict so the handler can answer 409.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	// Existence check first. The users.email UNIQUE constraint still backs
	// this up if two registrations race; that insert error surfaces as a 500,
	// which is acceptable for the window involved.
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, apperror.Conflict("User with this email already exists")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email availability: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		AuthProvider: model.ProviderPassword,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issueFor(user)
}

// Login authenticates an email+password pair.
//
// Every failure path returns the same apperror.ErrUnauthorized with the same
// message — see invalidCredentials above.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	// A GitHub-only account has no password hash. Verify rejects the empty
	// hash, so this falls into the same branch as a wrong password.
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issueFor(user)
}

// LoginOrRegisterGitHub resolves a GitHub identity to a local account.
//
// Resolution order (the order matters):
//
//  1. oauth_id match → returning GitHub user, log them in
//  2. email match    → existing password account; link the GitHub ID to it
//     so future logins hit step 1, and log them in
//  3. neither        → brand-new account created from the GitHub profile
//
// Checking oauth_id BEFORE email means a user who changes their GitHub email
// keeps their account, and a linked account never gets duplicated.
//
// WHAT THIS METHOD DOES NOT DO:
//   - It does NOT set cookies (that's the handler's job — HTTP concern)
//   - It does NOT talk to GitHub; the handler hands it a fetched profile
//     and an already-selected email
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser, email string) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	if email == "" {
		return nil, fmt.Errorf("service/auth: GitHub email must not be empty")
	}

	// GitHub's numeric ID is stored as an opaque string; the column doesn't
	// care that this provider happens to use integers.
	oauthID := strconv.FormatInt(ghUser.ID, 10)

	// Step 1: returning GitHub user?
	user, err := s.users.GetByOAuthID(ctx, oauthID)
	if err == nil {
		s.logger.Info("github login: existing oauth user", slog.String("userID", user.ID))
		return s.issueFor(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up user by oauth_id: %w", err)
	}

	// Step 2: same email as an existing account? Link rather than duplicate.
	user, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		if err := s.users.LinkOAuthID(ctx, user.ID, oauthID); err != nil {
			return nil, fmt.Errorf("service/auth: linking oauth_id to user %s: %w", user.ID, err)
		}
		user.OAuthID = oauthID
		s.logger.Info("github login: linked to existing account", slog.String("userID", user.ID))
		return s.issueFor(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	// Step 3: first visit — create the account from the GitHub profile.
	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}
	user = &model.User{
		Name:           name,
		Email:          email,
		OAuthID:        oauthID,
		AuthProvider:   model.ProviderGitHub,
		ProfilePicture: ghUser.AvatarURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating github user: %w", err)
	}

	s.logger.Info("github login: new account created", slog.String("userID", user.ID))

	return s.issueFor(user)
}

// issueFor generates a JWT for user and bundles it into an AuthResult.
func (s *AuthService) issueFor(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID.
//
// Used by the /auth/me handler to look up the full user record after the
// middleware validates the JWT and extracts the userID from the token's
// Subject claim.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// ValidateToken validates a JWT string and returns the claims it encodes.
//
// This is a thin delegation to TokenService.Validate. Having it on
// AuthService means callers only need to import the service package, not
// the auth package directly.
func (s *AuthService) ValidateToken(tokenStr string) (auth.Claims, error) {
	claims, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("service/auth: %w", err)
	}
	return claims, nil
}

// UpdateName changes the display name on an account.
func (s *AuthService) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("service/auth: renaming user %s: %w", userID, err)
	}
	return s.GetUserByID(ctx, userID)
}

// DeleteAccount removes a user; their projects and tasks go with them via
// the schema's ON DELETE CASCADE.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: deleting user %s: %w", userID, err)
	}
	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}
