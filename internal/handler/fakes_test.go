package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/auth"
	"github.com/sakif/tastegate/internal/handler"
	"github.com/sakif/tastegate/internal/mcp"
	"github.com/sakif/tastegate/internal/model"
	"github.com/sakif/tastegate/internal/service"
)

// The handler tests exercise the full HTTP slice: router → middleware →
// handler → service, with fakes only at the edges (account store and MCP).
// This catches wiring mistakes (wrong route, wrong status, wrong JSON
// field) that handler-only unit tests would miss.

const testSecret = "test-secret-at-least-16-chars!!"

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	byEmail map[string]*model.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = "user-" + string(rune('0'+f.nextID))
	f.nextID++
	copied := *user
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return u, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	for email, u := range f.byEmail {
		if u.ID == id {
			delete(f.byEmail, email)
			return nil
		}
	}
	return nil
}

// fakeMCP is an in-memory mcp.API with per-method error injection.
type fakeMCP struct {
	contexts     map[string]model.Preferences
	interactions map[string][]model.Interaction

	createContextErr error
	interactErr      error
	healthErr        error

	lastOpts mcp.RecommendationOptions
}

func newFakeMCP() *fakeMCP {
	return &fakeMCP{
		contexts:     make(map[string]model.Preferences),
		interactions: make(map[string][]model.Interaction),
	}
}

func (f *fakeMCP) CreateContext(ctx context.Context, userID string, prefs model.Preferences) error {
	if f.createContextErr != nil {
		return f.createContextErr
	}
	f.contexts[userID] = prefs
	return nil
}

func (f *fakeMCP) Recommendations(ctx context.Context, userID string, opts mcp.RecommendationOptions) (*model.Recommendations, error) {
	f.lastOpts = opts
	return &model.Recommendations{
		Restaurants:           []model.Restaurant{{ID: 1, Name: "Trattoria", Cuisine: "Italian"}},
		Dishes:                []model.Dish{{ID: 7, RestaurantID: 1, Name: "Cacio e Pepe", Price: 14.5}},
		Message:               "Here are your recommendations",
		RecommendationFactors: map[string]float64{"cuisine_match": 0.8},
	}, nil
}

func (f *fakeMCP) AIRecommendations(ctx context.Context, userID string, opts mcp.RecommendationOptions) (*model.Recommendations, error) {
	f.lastOpts = opts
	return &model.Recommendations{
		Restaurants: []model.Restaurant{{ID: 1, Name: "Trattoria", Cuisine: "Italian"}},
		Dishes:      []model.Dish{{ID: 7, RestaurantID: 1, Name: "Cacio e Pepe", Price: 14.5}},
		EnhancedDishes: []model.EnhancedDish{
			{ID: 7, RestaurantID: 1, Name: "Cacio e Pepe", AIDescription: "A silky Roman classic", Price: 14.5},
		},
		Message:               "AI-enhanced recommendations",
		RecommendationFactors: map[string]float64{"cuisine_match": 0.8},
		AIPowered:             true,
	}, nil
}

func (f *fakeMCP) RecordInteraction(ctx context.Context, userID string, interaction model.Interaction) error {
	if f.interactErr != nil {
		return f.interactErr
	}
	f.interactions[userID] = append(f.interactions[userID], interaction)
	return nil
}

func (f *fakeMCP) AnalyzeFeedback(ctx context.Context, userID string, feedback mcp.TextFeedback) (*mcp.FeedbackAnalysis, error) {
	derived := model.Interaction{
		ItemID:          feedback.ItemID,
		ItemType:        feedback.ItemType,
		InteractionType: "like",
		Timestamp:       feedback.Timestamp,
	}
	f.interactions[userID] = append(f.interactions[userID], derived)
	return &mcp.FeedbackAnalysis{
		Message:            "AI-analyzed feedback recorded",
		SentimentAnalysis:  model.SentimentAnalysis{Sentiment: "POSITIVE", Confidence: 0.92},
		DerivedInteraction: derived,
		ContextUpdated:     true,
	}, nil
}

func (f *fakeMCP) ContextSummary(ctx context.Context, userID string) (*model.ContextSummary, error) {
	prefs, ok := f.contexts[userID]
	if !ok {
		return nil, &mcp.UpstreamError{StatusCode: 404, Body: "User context not found"}
	}
	return &model.ContextSummary{
		UserID:              userID,
		ExplicitPreferences: prefs,
		InferredPreferences: map[string]float64{"cuisine_italian": 0.6},
		RecentInteractions:  f.interactions[userID],
	}, nil
}

func (f *fakeMCP) HealthCheck(ctx context.Context) (*mcp.Health, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &mcp.Health{
		Status:         "ok",
		Message:        "MCP is running!",
		MongoDBStatus:  "Connected",
		PostgresStatus: "Connected",
	}, nil
}

// testEnv bundles the wired router and its fakes so tests can both send
// requests and inspect side effects.
type testEnv struct {
	router *chi.Mux
	users  *fakeUserRepo
	mcp    *fakeMCP
	tokens *auth.TokenService
}

// newTestEnv wires the same route table as the server package, minus the
// global logging middleware.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	users := newFakeUserRepo()
	upstream := newFakeMCP()

	authService := service.NewAuthService(users, tokens, auth.NewPasswordServiceForTest(4), upstream, logger)
	recService := service.NewRecommendationService(upstream, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	recHandler := handler.NewRecommendationHandler(recService, logger)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Get("/health/e2e", recHandler.HandleHealth)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/recommendations", recHandler.HandleRecommendations)
			r.Get("/ai-recommendations", recHandler.HandleAIRecommendations)
			r.Post("/feedback", recHandler.HandleFeedback)
			r.Post("/ai-feedback", recHandler.HandleTextFeedback)
			r.Get("/debug/context", recHandler.HandleContext)
		})
	})

	return &testEnv{router: router, users: users, mcp: upstream, tokens: tokens}
}

// do sends one request through the router and returns the recorder. The
// body is JSON-encoded when non-nil; token, when set, becomes the bearer
// credential.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(rec *httptest.ResponseRecorder, out any) error {
	return json.Unmarshal(rec.Body.Bytes(), out)
}

// signup registers a user through the API and returns the issued token.
func (e *testEnv) signup(t *testing.T, email, password string) string {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       email,
		"password":    password,
		"preferences": map[string]any{"cuisine_preferences": []string{"Italian"}},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup returned %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(resp, &body); err != nil {
		t.Fatalf("decoding signup response: %v", err)
	}
	return body.Token
}
