// Package service — context-gateway business logic.
//
// RecommendationService is a pure pass-through over the MCP client: one
// method per upstream route, no recommendation or preference state of its
// own. The two things it adds beyond forwarding are input validation and
// server-side timestamping of interactions (the client clock is never
// trusted for interaction-history ordering).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/mcp"
	"github.com/sakif/tastegate/internal/model"
)

// Mode selects which upstream recommendation path to use.
type Mode string

const (
	// ModeStandard is the deterministic recommendation pipeline.
	ModeStandard Mode = "standard"
	// ModeAI is the AI-enhanced pipeline (adds enhanced_dishes).
	ModeAI Mode = "ai-enhanced"
)

// Item types and interaction kinds accepted in feedback.
const (
	ItemTypeRestaurant = "restaurant"
	ItemTypeDish       = "dish"

	InteractionLike    = "like"
	InteractionDislike = "dislike"
)

// RecommendationService forwards recommendation and feedback traffic to MCP.
type RecommendationService struct {
	upstream mcp.API
	logger   *slog.Logger
	// now is swappable in tests so stamped timestamps are deterministic.
	now func() time.Time
}

// NewRecommendationService creates a RecommendationService.
func NewRecommendationService(upstream mcp.API, logger *slog.Logger) *RecommendationService {
	return &RecommendationService{
		upstream: upstream,
		logger:   logger,
		now:      time.Now,
	}
}

// Get fetches a recommendation snapshot for the user in the given mode.
//
// The payload is returned verbatim from upstream. No retry, no cache, no
// degradation: if the AI path fails there is no silent fallback to the
// standard path — the caller decides what a missing enhancement means.
func (s *RecommendationService) Get(ctx context.Context, userID string, mode Mode, opts mcp.RecommendationOptions) (*model.Recommendations, error) {
	var (
		recs *model.Recommendations
		err  error
	)
	switch mode {
	case ModeAI:
		recs, err = s.upstream.AIRecommendations(ctx, userID, opts)
	default:
		recs, err = s.upstream.Recommendations(ctx, userID, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("service/recommend: fetching %s recommendations for %s: %w", mode, userID, err)
	}
	return recs, nil
}

// FeedbackRequest is a like/dislike submission.
type FeedbackRequest struct {
	ItemID          string
	ItemType        string // "restaurant" or "dish"
	InteractionType string // "like" or "dislike"

	// WithRecommendations asks the gateway to fetch a fresh snapshot after
	// recording the interaction and embed it in the result, saving the
	// client a round trip. UseAI selects which pipeline that embedded
	// fetch uses. ExcludedItems is the client's exclusion hint for it.
	WithRecommendations bool
	UseAI               bool
	ExcludedItems       []string
}

// FeedbackResult acknowledges a recorded interaction.
type FeedbackResult struct {
	// FeedbackData is the interaction as forwarded upstream, including the
	// gateway-stamped timestamp.
	FeedbackData model.Interaction
	// ContextUpdated is true once upstream has applied the interaction.
	ContextUpdated bool
	// UpdatedRecommendations is the fresh snapshot, present only when the
	// request asked for one and the follow-up fetch succeeded.
	UpdatedRecommendations *model.Recommendations
}

// SubmitFeedback validates and forwards a like/dislike event.
//
// The timestamp is stamped here, server-side, in UTC — clients cannot skew
// the upstream interaction-history ordering with their own clocks.
//
// The embedded-snapshot fetch is best-effort: the interaction has already
// been applied upstream, so a failed follow-up fetch downgrades the result
// to a plain acknowledgment (the client re-fetches on its own) rather than
// failing a mutation that succeeded.
func (s *RecommendationService) SubmitFeedback(ctx context.Context, userID string, req FeedbackRequest) (*FeedbackResult, error) {
	if err := validateItem(req.ItemID, req.ItemType); err != nil {
		return nil, err
	}
	if req.InteractionType != InteractionLike && req.InteractionType != InteractionDislike {
		return nil, apperror.ValidationFailed("interactionType", "interactionType must be 'like' or 'dislike'")
	}

	interaction := model.Interaction{
		ItemID:          req.ItemID,
		ItemType:        req.ItemType,
		InteractionType: req.InteractionType,
		Timestamp:       s.now().UTC().Format(time.RFC3339),
	}

	if err := s.upstream.RecordInteraction(ctx, userID, interaction); err != nil {
		return nil, fmt.Errorf("service/recommend: recording %s for %s: %w", req.InteractionType, userID, err)
	}

	result := &FeedbackResult{
		FeedbackData:   interaction,
		ContextUpdated: true,
	}

	if req.WithRecommendations {
		mode := ModeStandard
		if req.UseAI {
			mode = ModeAI
		}
		recs, err := s.Get(ctx, userID, mode, mcp.RecommendationOptions{
			ExcludedItems: req.ExcludedItems,
			Refresh:       true,
		})
		if err != nil {
			s.logger.Warn("post-feedback refresh failed",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		} else {
			result.UpdatedRecommendations = recs
		}
	}

	return result, nil
}

// SubmitTextFeedback forwards free-text feedback for upstream sentiment
// analysis. The gateway performs no sentiment inference of its own; the
// verdict and the interaction upstream derives from it are relayed as-is.
func (s *RecommendationService) SubmitTextFeedback(ctx context.Context, userID, itemID, itemType, feedbackText string) (*mcp.FeedbackAnalysis, error) {
	if err := validateItem(itemID, itemType); err != nil {
		return nil, err
	}
	if feedbackText == "" {
		return nil, apperror.ValidationFailed("feedbackText", "feedbackText is required")
	}

	analysis, err := s.upstream.AnalyzeFeedback(ctx, userID, mcp.TextFeedback{
		ItemID:       itemID,
		ItemType:     itemType,
		FeedbackText: feedbackText,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("service/recommend: analyzing feedback for %s: %w", userID, err)
	}

	return analysis, nil
}

// ContextSummary returns the user's full preference-context snapshot.
// Read-only, no side effects.
func (s *RecommendationService) ContextSummary(ctx context.Context, userID string) (*model.ContextSummary, error) {
	summary, err := s.upstream.ContextSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/recommend: fetching context for %s: %w", userID, err)
	}
	return summary, nil
}

// HealthStatus is the composite gateway + upstream health report. The JSON
// field names are part of the public API surface.
type HealthStatus struct {
	APIStatus  string      `json:"api_status"`
	APIMessage string      `json:"api_message"`
	MCPStatus  string      `json:"mcp_status"`
	MCPMessage string      `json:"mcp_message"`
	MCPDetails *mcp.Health `json:"mcp_details"`
}

// Health probes the upstream and reports a composite status. Upstream
// being down is a *status*, not an error: this method never fails, so the
// caller can always distinguish "gateway up, MCP down" from "gateway down"
// (the latter never answers at all).
func (s *RecommendationService) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		APIStatus:  "ok",
		APIMessage: "Application API is running!",
	}

	health, err := s.upstream.HealthCheck(ctx)
	if err != nil {
		s.logger.Warn("mcp health check failed", slog.String("error", err.Error()))
		status.MCPStatus = "error"
		status.MCPMessage = fmt.Sprintf("Failed to connect to MCP: %v", err)
		return status
	}

	status.MCPStatus = health.Status
	status.MCPMessage = health.Message
	status.MCPDetails = health
	return status
}

func validateItem(itemID, itemType string) error {
	if itemID == "" {
		return apperror.ValidationFailed("itemId", "itemId is required")
	}
	if itemType != ItemTypeRestaurant && itemType != ItemTypeDish {
		return apperror.ValidationFailed("itemType", "itemType must be 'restaurant' or 'dish'")
	}
	return nil
}
