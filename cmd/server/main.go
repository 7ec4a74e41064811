// Command server runs the tastegate API: a thin authenticated gateway in
// front of the MCP restaurant-recommendation service.
//
// The gateway owns exactly two things — the account registry (SQLite) and
// session tokens (JWT). Everything about taste lives upstream in MCP; the
// gateway forwards, it never decides.
//
// CONFIGURATION (environment variables):
//
//	PORT        HTTP port                      (default 8080)
//	DB_PATH     SQLite file path               (default data/tastegate.db)
//	JWT_SECRET  HMAC secret, min 16 chars      (required)
//	MCP_API_URL upstream MCP base URL          (default http://localhost:8001)
//	MCP_API_KEY upstream API key               (default empty)
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/tastegate/internal/server"
)

func main() {
	// JSON logs: one object per line, machine-parseable, the format every
	// log aggregator understands.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := server.Config{
		Port:      envInt("PORT", 8080),
		DBPath:    envString("DB_PATH", "data/tastegate.db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		MCPURL:    envString("MCP_API_URL", "http://localhost:8001"),
		MCPAPIKey: os.Getenv("MCP_API_KEY"),
	}

	// Fail fast on missing secrets — better than issuing tokens signed with
	// an empty string.
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	// SQLite won't create parent directories on its own.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default",
			slog.String("key", key),
			slog.String("value", v),
		)
		return fallback
	}
	return n
}
