// Package handler contains the HTTP layer: request parsing, response
// shaping, and nothing else.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/auth"
	"github.com/sakif/tastegate/internal/mcp"
	"github.com/sakif/tastegate/internal/model"
	"github.com/sakif/tastegate/internal/service"
)

// RecommendationHandler exposes the gateway routes: recommendation
// fetches, feedback submission, the context debug view, and health.
//
// Every route except health sits behind auth.RequireAuth, so the caller's
// identity is always in the request context.
type RecommendationHandler struct {
	recs   *service.RecommendationService
	logger *slog.Logger
}

// NewRecommendationHandler creates a RecommendationHandler.
func NewRecommendationHandler(recs *service.RecommendationService, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, logger: logger}
}

// HandleRecommendations returns the standard recommendation snapshot.
//
// HTTP: GET /api/recommendations?feedback=<csv ids>&refresh=<bool>
//
// The feedback parameter is the client's exclusion hint — item IDs it has
// disliked locally. It is forwarded upstream as-is; the upstream context
// remains the authoritative suppression mechanism.
func (h *RecommendationHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serveRecommendations(w, r, service.ModeStandard)
}

// HandleAIRecommendations returns the AI-enhanced snapshot.
//
// HTTP: GET /api/ai-recommendations?feedback=<csv ids>&refresh=<bool>
func (h *RecommendationHandler) HandleAIRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serveRecommendations(w, r, service.ModeAI)
}

func (h *RecommendationHandler) serveRecommendations(w http.ResponseWriter, r *http.Request, mode service.Mode) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	opts := mcp.RecommendationOptions{
		ExcludedItems: splitCSV(r.URL.Query().Get("feedback")),
		Refresh:       r.URL.Query().Get("refresh") == "true",
	}

	recs, err := h.recs.Get(r.Context(), id.UserID, mode, opts)
	if err != nil {
		h.logger.Error("recommendation fetch failed",
			slog.String("userID", id.UserID),
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

// feedbackRequest is the POST /api/feedback body.
type feedbackRequest struct {
	ItemID          any    `json:"itemId"` // number or string — normalised below
	ItemType        string `json:"itemType"`
	InteractionType string `json:"interactionType"`
}

// feedbackResponse acknowledges a recorded interaction.
type feedbackResponse struct {
	Message                string                 `json:"message"`
	ContextUpdated         bool                   `json:"context_updated"`
	FeedbackData           model.Interaction      `json:"feedback_data"`
	UpdatedRecommendations *model.Recommendations `json:"updated_recommendations,omitempty"`
}

// HandleFeedback records a like/dislike interaction.
//
// HTTP: POST /api/feedback?with_recommendations=true&use_ai=<bool>&feedback=<csv ids>
//
//	200 {message, context_updated, feedback_data[, updated_recommendations]}
//	400 — missing/invalid fields
//	500 — upstream rejected the interaction
//
// When with_recommendations is set, a fresh snapshot (standard or AI per
// use_ai) is embedded in the response so the client can skip the follow-up
// fetch.
func (h *RecommendationHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	q := r.URL.Query()
	result, err := h.recs.SubmitFeedback(r.Context(), id.UserID, service.FeedbackRequest{
		ItemID:              itemIDString(req.ItemID),
		ItemType:            req.ItemType,
		InteractionType:     req.InteractionType,
		WithRecommendations: q.Get("with_recommendations") == "true",
		UseAI:               q.Get("use_ai") == "true",
		ExcludedItems:       splitCSV(q.Get("feedback")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feedbackResponse{
		Message:                "Feedback recorded for user " + id.UserID,
		ContextUpdated:         result.ContextUpdated,
		FeedbackData:           result.FeedbackData,
		UpdatedRecommendations: result.UpdatedRecommendations,
	})
}

// textFeedbackRequest is the POST /api/ai-feedback body.
type textFeedbackRequest struct {
	ItemID       any    `json:"itemId"`
	ItemType     string `json:"itemType"`
	FeedbackText string `json:"feedbackText"`
}

// textFeedbackResponse relays the upstream sentiment verdict.
type textFeedbackResponse struct {
	Message           string                  `json:"message"`
	SentimentAnalysis model.SentimentAnalysis `json:"sentiment_analysis"`
	Interaction       model.Interaction       `json:"interaction"`
	ContextUpdated    bool                    `json:"context_updated"`
}

// HandleTextFeedback submits free text for upstream sentiment analysis.
//
// HTTP: POST /api/ai-feedback
//
//	200 {message, sentiment_analysis, interaction, context_updated}
//	400 — missing fields
//	500 — upstream failed
func (h *RecommendationHandler) HandleTextFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req textFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	analysis, err := h.recs.SubmitTextFeedback(r.Context(), id.UserID, itemIDString(req.ItemID), req.ItemType, req.FeedbackText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, textFeedbackResponse{
		Message:           "AI-analyzed feedback recorded for user " + id.UserID,
		SentimentAnalysis: analysis.SentimentAnalysis,
		Interaction:       analysis.DerivedInteraction,
		ContextUpdated:    analysis.ContextUpdated,
	})
}

// HandleContext returns the full preference-context snapshot for display.
//
// HTTP: GET /api/debug/context
func (h *RecommendationHandler) HandleContext(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	summary, err := h.recs.ContextSummary(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleHealth reports composite gateway + upstream health.
//
// HTTP: GET /api/health/e2e — no auth
//
// Always 200: an unreachable upstream is reported in mcp_status, not as an
// HTTP failure, so monitoring can tell "gateway up, MCP down" apart from
// "gateway down".
func (h *RecommendationHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recs.Health(r.Context()))
}

// splitCSV parses a comma-separated query value, dropping empty entries.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// itemIDString normalises itemId, which clients send as either a JSON
// number (dish/restaurant IDs are numeric upstream) or a string. MCP
// expects a string either way.
func itemIDString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		// JSON numbers decode to float64; IDs are integral
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
