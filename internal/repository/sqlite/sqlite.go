// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - A single-user task manager (which is by definition single-server)
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...)
	// knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out the per-entity
// repositories (Users, Projects, Tasks), which all share the same pool.
//
// It is constructed explicitly in server.New and closed on shutdown —
// there is deliberately no lazily-initialized package-level handle.
type DB struct {
	conn *sql.DB
}

// Users returns the user repository backed by this connection.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Projects returns the project repository backed by this connection.
func (db *DB) Projects() *ProjectDB { return &ProjectDB{conn: db.conn} }

// Tasks returns the task repository backed by this connection.
func (db *DB) Tasks() *TaskDB { return &TaskDB{conn: db.conn} }

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/taskboard.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// issue surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening —
	// important for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. We need them ON: deleting
	// a user must cascade to their projects, and deleting a project to its
	// tasks.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. The server defers this during
// graceful shutdown so the WAL is flushed and the file lock released.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent — safe to run on every start.
func (db *DB) migrate() error {
	// users: email is the unique business key for password accounts;
	// oauth_id is the unique provider subject for linked/OAuth accounts.
	// oauth_id is nullable — SQLite's UNIQUE constraint allows any number
	// of NULLs, so only linked accounts participate in the uniqueness.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			email           TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL DEFAULT '',
			oauth_id        TEXT UNIQUE,
			auth_provider   TEXT NOT NULL DEFAULT 'password',
			profile_picture TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			title      TEXT NOT NULL,
			color      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}

	// tasks.tags and tasks.categories hold JSON-encoded string arrays.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			project_id  TEXT REFERENCES projects(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date        TEXT NOT NULL,
			start_time  TEXT NOT NULL DEFAULT '',
			end_time    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'pending',
			priority    TEXT NOT NULL DEFAULT 'medium',
			tags        TEXT NOT NULL DEFAULT '[]',
			categories  TEXT NOT NULL DEFAULT '[]',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_date ON tasks(user_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating tasks table: %w", err)
	}

	return nil
}

// nullIfEmpty maps "" to SQL NULL for nullable TEXT columns (oauth_id,
// project_id). The Go side uses "" as the zero value; the database needs
// NULL so UNIQUE and foreign-key constraints skip absent values.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
