// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository / MCP client  → durable accounts / upstream context state
//
// AuthService is the account registry: it owns the email → account mapping
// and issues session tokens. It is also the one place the registry and the
// upstream MCP service have to agree: registration creates the local
// account AND the upstream preference context, or neither.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/auth"
	"github.com/sakif/tastegate/internal/mcp"
	"github.com/sakif/tastegate/internal/model"
	"github.com/sakif/tastegate/internal/repository"
)

// AuthService handles registration, login, and token issuance.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	upstream  mcp.API
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	upstream mcp.API,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		upstream:  upstream,
		logger:    logger,
	}
}

// AuthResult bundles the account and the issued session token so the
// handler can respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account and seeds its preference context upstream.
//
// ORDERING AND ROLLBACK:
// The account is created locally first, then the preferences are forwarded
// to MCP keyed by the new identity. If the upstream call fails, the local
// account is deleted again so a later signup with the same email can
// succeed — no orphaned local account without upstream context.
//
// The rollback is local-store-only: if MCP partially applied the context
// before failing, no compensating delete is issued. That inconsistency is
// accepted; the next successful signup overwrites the upstream context
// anyway (MCP upserts by user ID, and retried signups mint a fresh ID).
func (s *AuthService) Register(ctx context.Context, email, password string, prefs model.Preferences) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating account for %s: %w", email, err)
	}

	if err := s.upstream.CreateContext(ctx, user.ID, prefs); err != nil {
		s.logger.Error("initial context creation failed, rolling back account",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		// Best-effort rollback: a delete failure leaves an orphaned
		// account, which is logged but cannot fail the already-failed
		// registration any harder.
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("rollback delete failed",
				slog.String("userID", user.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("service/auth: creating initial context for %s: %w", user.ID, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates an existing account and issues a fresh session token.
//
// It returns apperror.ErrNotFound for an unknown email and
// apperror.ErrUnauthorized for a wrong password. Callers that face the
// outside world must collapse both into one indistinguishable response to
// avoid account enumeration — the distinction exists for logs and tests
// only.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", slog.String("email", email))
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}
