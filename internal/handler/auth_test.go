package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter2!",
		"preferences": map[string]any{
			"dietary_restrictions": []string{"vegetarian"},
			"cuisine_preferences":  []string{"Italian", "Thai"},
			"spice_level":          "Medium",
		},
	})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var body struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	require.NoError(t, decodeBody(resp, &body))
	assert.Equal(t, "User registered successfully and context created.", body.Message)
	require.NotEmpty(t, body.Token)

	// The token must assert the identity the upstream context was seeded for.
	id, err := env.tokens.Validate(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", id.Email)
	prefs, ok := env.mcp.contexts[id.UserID]
	require.True(t, ok, "upstream context should be seeded at signup")
	assert.Equal(t, []string{"Italian", "Thai"}, prefs.CuisinePreferences)
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing email", map[string]any{"password": "x", "preferences": map[string]any{}}},
		{"missing password", map[string]any{"email": "a@b.c", "preferences": map[string]any{}}},
		{"missing preferences", map[string]any{"email": "a@b.c", "password": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice@example.com", "hunter2!")

	resp := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       "alice@example.com",
		"password":    "different",
		"preferences": map[string]any{},
	})

	assert.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
}

func TestSignupUpstreamFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.mcp.createContextErr = assert.AnError

	resp := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       "alice@example.com",
		"password":    "hunter2!",
		"preferences": map[string]any{},
	})
	assert.Equal(t, http.StatusInternalServerError, resp.Code, resp.Body.String())

	// The local account was rolled back, so retrying after the upstream
	// recovers must succeed rather than hit a conflict.
	env.mcp.createContextErr = nil
	env.signup(t, "alice@example.com", "hunter2!")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice@example.com", "hunter2!")

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter2!",
	})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	require.NoError(t, decodeBody(resp, &body))
	assert.Equal(t, "Logged in successfully.", body.Message)

	id, err := env.tokens.Validate(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", id.Email)
}

// Unknown-email and wrong-password responses must be byte-identical so the
// login endpoint cannot be used to probe which emails are registered.
func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice@example.com", "hunter2!")

	wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "nobody@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "a@b.c"})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}
