// Package client is the Go consumer of the tastegate API: an HTTP client
// for the gateway routes plus View, a reconciliation layer that keeps one
// coherent recommendation snapshot under concurrent fetches, mode toggles,
// and feedback.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sakif/tastegate/internal/model"
)

const defaultTimeout = 15 * time.Second

// FetchOptions tune a recommendation fetch.
type FetchOptions struct {
	// ExcludedItems are item IDs the caller wants suppressed — a hint only;
	// the server-side context is the authoritative filter.
	ExcludedItems []string
	// Refresh bypasses snapshot reuse upstream.
	Refresh bool
}

// Feedback is one like/dislike submission.
type Feedback struct {
	ItemID          string
	ItemType        string
	InteractionType string

	// WithRecommendations asks the gateway to embed a fresh snapshot in the
	// acknowledgment; UseAI selects which pipeline it uses; ExcludedItems is
	// the exclusion hint for that embedded fetch.
	WithRecommendations bool
	UseAI               bool
	ExcludedItems       []string
}

// FeedbackAck is the gateway's response to a feedback submission.
type FeedbackAck struct {
	Message                string                 `json:"message"`
	ContextUpdated         bool                   `json:"context_updated"`
	FeedbackData           model.Interaction      `json:"feedback_data"`
	UpdatedRecommendations *model.Recommendations `json:"updated_recommendations,omitempty"`
}

// API is the slice of the gateway surface View depends on. *Client
// implements it; tests substitute a fake.
type API interface {
	Recommendations(ctx context.Context, opts FetchOptions) (*model.Recommendations, error)
	AIRecommendations(ctx context.Context, opts FetchOptions) (*model.Recommendations, error)
	SubmitFeedback(ctx context.Context, fb Feedback) (*FeedbackAck, error)
}

// Client talks to a tastegate server. It holds the session token from the
// last successful Signup or Login and sends it on every authenticated call.
//
// Safe for concurrent use; the token is guarded because a re-login can race
// an in-flight fetch.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

var _ API = (*Client)(nil)

// NewClient creates a Client for the gateway at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// authResponse is the body of both signup and login.
type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Signup registers an account and stores the issued session token.
func (c *Client) Signup(ctx context.Context, email, password string, prefs model.Preferences) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email":       email,
		"password":    password,
		"preferences": prefs,
	}, &resp)
	if err != nil {
		return err
	}
	c.setToken(resp.Token)
	return nil
}

// Login authenticates and stores the issued session token.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]any{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.setToken(resp.Token)
	return nil
}

// Recommendations fetches the standard snapshot.
func (c *Client) Recommendations(ctx context.Context, opts FetchOptions) (*model.Recommendations, error) {
	var recs model.Recommendations
	if err := c.do(ctx, http.MethodGet, "/api/recommendations", fetchQuery(opts), nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

// AIRecommendations fetches the AI-enhanced snapshot.
func (c *Client) AIRecommendations(ctx context.Context, opts FetchOptions) (*model.Recommendations, error) {
	var recs model.Recommendations
	if err := c.do(ctx, http.MethodGet, "/api/ai-recommendations", fetchQuery(opts), nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

// SubmitFeedback records a like/dislike.
func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) (*FeedbackAck, error) {
	q := url.Values{}
	if fb.WithRecommendations {
		q.Set("with_recommendations", "true")
		if fb.UseAI {
			q.Set("use_ai", "true")
		}
		if len(fb.ExcludedItems) > 0 {
			q.Set("feedback", strings.Join(fb.ExcludedItems, ","))
		}
	}

	var ack FeedbackAck
	err := c.do(ctx, http.MethodPost, "/api/feedback", q, map[string]any{
		"itemId":          fb.ItemID,
		"itemType":        fb.ItemType,
		"interactionType": fb.InteractionType,
	}, &ack)
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// TextFeedbackResult is the gateway's sentiment verdict on free text.
type TextFeedbackResult struct {
	Message           string                  `json:"message"`
	SentimentAnalysis model.SentimentAnalysis `json:"sentiment_analysis"`
	Interaction       model.Interaction       `json:"interaction"`
	ContextUpdated    bool                    `json:"context_updated"`
}

// SubmitTextFeedback sends free text for sentiment analysis.
func (c *Client) SubmitTextFeedback(ctx context.Context, itemID, itemType, text string) (*TextFeedbackResult, error) {
	var result TextFeedbackResult
	err := c.do(ctx, http.MethodPost, "/api/ai-feedback", nil, map[string]any{
		"itemId":       itemID,
		"itemType":     itemType,
		"feedbackText": text,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ContextSummary fetches the preference-context snapshot.
func (c *Client) ContextSummary(ctx context.Context) (*model.ContextSummary, error) {
	var summary model.ContextSummary
	if err := c.do(ctx, http.MethodGet, "/api/debug/context", nil, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func fetchQuery(opts FetchOptions) url.Values {
	q := url.Values{}
	if len(opts.ExcludedItems) > 0 {
		q.Set("feedback", strings.Join(opts.ExcludedItems, ","))
	}
	if opts.Refresh {
		q.Set("refresh", "true")
	}
	return q
}

// apiError is the gateway's error envelope.
type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("client: %s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("client: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: %s %s: decoding response: %w", method, path, err)
	}
	return nil
}
