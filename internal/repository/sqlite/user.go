package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// UserDB implements repository.UserRepository on the shared pool.
type UserDB struct {
	conn *sql.DB
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, name, email, password_hash, oauth_id, auth_provider, profile_picture, created_at, updated_at`

// Create inserts a new user.
//
// ID GENERATION WITH xid:
// xid generates globally unique IDs that are 20 chars, URL-safe, and
// sortable by creation time — e.g. "cv37rs3pp9olc6atsptg".
//
// The pointer receiver matters: after Create(), the caller's struct has
// the generated ID and timestamps filled in.
//
// The UNIQUE constraints on email and oauth_id are the last line of
// defense; the service layer checks for duplicates first so that it can
// return a clean Conflict error.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, oauth_id, auth_provider, profile_picture, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		nullIfEmpty(user.OAuthID),
		user.AuthProvider,
		user.ProfilePicture,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email. Emails are compared exactly as
// stored (case-sensitive).
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByOAuthID retrieves a user by their linked provider subject.
func (db *UserDB) GetByOAuthID(ctx context.Context, oauthID string) (*model.User, error) {
	if oauthID == "" {
		// "" means "not linked" — it must never match the NULL rows.
		return nil, apperror.NotFound("user", oauthID)
	}
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE oauth_id = ?`, oauthID)
}

func (db *UserDB) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	var oauthID sql.NullString

	err := db.conn.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&oauthID,
		&u.AuthProvider,
		&u.ProfilePicture,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	u.OAuthID = oauthID.String
	return &u, nil
}

// LinkOAuthID attaches a provider identity to an existing account — the
// linking step when a GitHub login resolves to a password account with the
// same email. A single conditional UPDATE; auth_provider keeps its
// original value (it records how the account was first registered).
func (db *UserDB) LinkOAuthID(ctx context.Context, userID, oauthID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET oauth_id = ?, updated_at = ? WHERE id = ?`,
		oauthID, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking oauth id to user %s: %w", userID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking link result: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// UpdateName changes the display name.
func (db *UserDB) UpdateName(ctx context.Context, userID, name string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s name: %w", userID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// Delete removes a user. Their projects go with them via ON DELETE
// CASCADE, and the projects' tasks in turn.
func (db *UserDB) Delete(ctx context.Context, userID string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", userID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}
