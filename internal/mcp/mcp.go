// Package mcp is the HTTP client for the external MCP (Model Context
// Protocol) recommendation service.
//
// MCP is the system of record for all preference and recommendation state:
// explicit preferences, inferred tastes, interaction history, and the
// recommendations themselves. This package never computes or caches any of
// that — it forwards requests, authenticates with the upstream API key, and
// decodes responses. Any upstream failure is surfaced as a typed
// *UpstreamError carrying the status and body; it is never masked as
// success and no synthetic data is substituted.
package mcp

import (
	"context"

	"github.com/sakif/tastegate/internal/model"
)

// RecommendationOptions tune a recommendation fetch.
type RecommendationOptions struct {
	// ExcludedItems are item IDs the client would like suppressed. This is
	// an optimization hint only — the upstream context update is the
	// authoritative suppression mechanism.
	ExcludedItems []string
	// Refresh asks upstream to bypass any snapshot reuse.
	Refresh bool
}

// TextFeedback is a free-text feedback submission for upstream sentiment
// analysis.
type TextFeedback struct {
	ItemID       string `json:"item_id"`
	ItemType     string `json:"item_type"`
	FeedbackText string `json:"feedback_text"`
	Timestamp    string `json:"timestamp"`
}

// FeedbackAnalysis is the upstream response to a text-feedback submission:
// the sentiment verdict plus the like/dislike interaction upstream derived
// from it.
type FeedbackAnalysis struct {
	Message            string                  `json:"message"`
	SentimentAnalysis  model.SentimentAnalysis `json:"sentiment_analysis"`
	DerivedInteraction model.Interaction       `json:"derived_interaction"`
	ContextUpdated     bool                    `json:"context_updated"`
}

// Health is the upstream health report.
type Health struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	MongoDBStatus  string `json:"mongodb_status"`
	PostgresStatus string `json:"postgres_status"`
}

// API is the full upstream surface the gateway depends on. The service
// layer consumes this interface, not *Client, so tests can substitute an
// in-memory fake.
type API interface {
	// CreateContext creates (or resets) the preference context for a user,
	// seeded with their explicit preferences. Called once at registration.
	CreateContext(ctx context.Context, userID string, prefs model.Preferences) error
	// Recommendations fetches the standard recommendation snapshot.
	Recommendations(ctx context.Context, userID string, opts RecommendationOptions) (*model.Recommendations, error)
	// AIRecommendations fetches the AI-enhanced snapshot (includes
	// enhanced_dishes).
	AIRecommendations(ctx context.Context, userID string, opts RecommendationOptions) (*model.Recommendations, error)
	// RecordInteraction appends a like/dislike event to the user's
	// interaction history and lets upstream update its inferred tastes.
	RecordInteraction(ctx context.Context, userID string, interaction model.Interaction) error
	// AnalyzeFeedback submits free text for sentiment analysis; upstream
	// derives an interaction from the verdict and records it.
	AnalyzeFeedback(ctx context.Context, userID string, feedback TextFeedback) (*FeedbackAnalysis, error)
	// ContextSummary reads the full preference-context snapshot. Read-only.
	ContextSummary(ctx context.Context, userID string) (*model.ContextSummary, error)
	// HealthCheck probes upstream liveness.
	HealthCheck(ctx context.Context) (*Health, error)
}
