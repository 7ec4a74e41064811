package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/auth"
	"github.com/sakif/tastegate/internal/mcp"
	"github.com/sakif/tastegate/internal/model"
)

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests dependency-free and easy
// to read — you can see exactly what the fake does.
type fakeUserRepo struct {
	byEmail map[string]*model.User
	nextID  int
	// set to a non-nil error to simulate a storage failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = "user-fake-id-" + string(rune('0'+f.nextID))
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

// fakeMCP is an in-memory implementation of mcp.API. Each method records
// its arguments and returns a canned response or a configured error.
type fakeMCP struct {
	contexts     map[string]model.Preferences
	interactions map[string][]model.Interaction

	recs   *model.Recommendations
	aiRecs *model.Recommendations

	createContextErr     error
	recommendationsErr   error
	aiRecommendationsErr error
	interactErr          error
	analyzeErr           error
	summaryErr           error
	healthErr            error

	lastOpts mcp.RecommendationOptions
}

func newFakeMCP() *fakeMCP {
	return &fakeMCP{
		contexts:     make(map[string]model.Preferences),
		interactions: make(map[string][]model.Interaction),
		recs: &model.Recommendations{
			Restaurants:           []model.Restaurant{{ID: 1, Name: "Trattoria"}},
			Dishes:                []model.Dish{{ID: 7, RestaurantID: 1, Name: "Cacio e Pepe"}},
			Message:               "standard",
			RecommendationFactors: map[string]float64{"cuisine_match": 0.8},
		},
		aiRecs: &model.Recommendations{
			Restaurants: []model.Restaurant{{ID: 1, Name: "Trattoria"}},
			Dishes:      []model.Dish{{ID: 7, RestaurantID: 1, Name: "Cacio e Pepe"}},
			EnhancedDishes: []model.EnhancedDish{
				{ID: 7, RestaurantID: 1, Name: "Cacio e Pepe", AIDescription: "A silky Roman classic"},
			},
			Message:               "ai",
			RecommendationFactors: map[string]float64{"cuisine_match": 0.8},
			AIPowered:             true,
		},
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
	if f.recommendationsErr != nil {
		return nil, f.recommendationsErr
	}
	return f.recs, nil
}

func (f *fakeMCP) AIRecommendations(ctx context.Context, userID string, opts mcp.RecommendationOptions) (*model.Recommendations, error) {
	f.lastOpts = opts
	if f.aiRecommendationsErr != nil {
		return nil, f.aiRecommendationsErr
	}
	return f.aiRecs, nil
}

func (f *fakeMCP) RecordInteraction(ctx context.Context, userID string, interaction model.Interaction) error {
	if f.interactErr != nil {
		return f.interactErr
	}
	f.interactions[userID] = append(f.interactions[userID], interaction)
	return nil
}

func (f *fakeMCP) AnalyzeFeedback(ctx context.Context, userID string, feedback mcp.TextFeedback) (*mcp.FeedbackAnalysis, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	derived := model.Interaction{
		ItemID:          feedback.ItemID,
		ItemType:        feedback.ItemType,
		InteractionType: "like",
		Timestamp:       feedback.Timestamp,
	}
	f.interactions[userID] = append(f.interactions[userID], derived)
	return &mcp.FeedbackAnalysis{
		Message:            "AI-analyzed feedback recorded for user " + userID,
		SentimentAnalysis:  model.SentimentAnalysis{Sentiment: "POSITIVE", Confidence: 0.9},
		DerivedInteraction: derived,
		ContextUpdated:     true,
	}, nil
}

func (f *fakeMCP) ContextSummary(ctx context.Context, userID string) (*model.ContextSummary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo, upstream *fakeMCP) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, ts, ps, upstream, testLogger())
}
