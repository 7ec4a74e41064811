package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/model"
	"github.com/sakif/tastegate/internal/service"
)

// AuthHandler exposes signup and login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup → create the account + upstream context, return a token
//   - HandleLogin  → verify credentials, return a fresh token
//
// All rules live in service.AuthService; this layer only speaks HTTP.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// signupRequest is the POST /api/auth/signup body.
type signupRequest struct {
	Email       string             `json:"email"`
	Password    string             `json:"password"`
	Preferences *model.Preferences `json:"preferences"`
}

// authResponse is returned by both signup and login.
type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// HandleSignup registers a new account.
//
// HTTP: POST /api/auth/signup
//
//	201 {message, token}         — account + upstream context created
//	400                          — missing email/password/preferences
//	409                          — email already registered
//	500                          — upstream context creation failed (the
//	                               local account is rolled back)
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	// Preferences must be present (an empty object is fine — the field
	// itself is required so the upstream context is always seeded
	// deliberately, never by accident of a missing key).
	if req.Preferences == nil {
		writeError(w, apperror.ValidationFailed("preferences", "preferences are required"))
		return
	}

	result, err := h.auth.Register(r.Context(), req.Email, req.Password, *req.Preferences)
	if err != nil {
		h.logger.Warn("signup failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully and context created.",
		Token:   result.Token,
	})
}

// loginRequest is the POST /api/auth/login body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates an existing account.
//
// HTTP: POST /api/auth/login
//
//	200 {message, token}  — credentials accepted
//	400                   — missing email/password
//	401                   — unknown email OR wrong password
//
// ACCOUNT ENUMERATION:
// Unknown-email and wrong-password failures return byte-identical 401
// responses. The service reports them as distinct errors for logging, but
// leaking the distinction to callers would let an attacker probe which
// emails are registered.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "invalid email or password",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "Logged in successfully.",
		Token:   result.Token,
	})
}
