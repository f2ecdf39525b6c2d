// Package main is the entry point for the taskboard server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars)
// 2. Create dependencies (the logger)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server and below).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. A
// project might grow more executables later (e.g., cmd/migrate); each gets
// its own directory with its own main.go.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/taskboard/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	// Structured text logs on stdout. Debug level locally; production
	// deployments can tighten this via LOG_LEVEL.
	level := slog.LevelDebug
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := level.UnmarshalText([]byte(lvl)); err != nil {
			level = slog.LevelDebug
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// === 2. READ CONFIGURATION ===
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// DB_PATH overrides the default for production deployments,
	// e.g. DB_PATH=/var/lib/taskboard/taskboard.db
	dbPath := "data/taskboard.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// JWT_SECRET must be a long random string in production:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// When unset the server falls back to a fixed dev secret, which means
	// anyone can forge sessions. Fine on localhost, fatal anywhere else.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set — using the insecure development secret, sessions are forgeable")
	}

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubRedirectURI:  os.Getenv("GITHUB_REDIRECT_URI"),
		FrontendURL:        os.Getenv("FRONTEND_URL"),
	}
	if cfg.GitHubClientID == "" {
		logger.Info("GITHUB_CLIENT_ID not set — GitHub login disabled")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
