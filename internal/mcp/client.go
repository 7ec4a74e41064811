package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/model"
)

// defaultTimeout bounds every upstream call. The upstream contract
// specifies no timeout, so we pick one; expiry surfaces as an
// *UpstreamError like any other network failure.
const defaultTimeout = 10 * time.Second

// apiKeyHeader is the header MCP authenticates requests with.
const apiKeyHeader = "X-MCP-API-Key"

// Config holds the upstream connection settings, supplied by main at
// startup.
type Config struct {
	// BaseURL is the MCP root, e.g. "http://localhost:8001".
	BaseURL string
	// APIKey is sent on every request as X-MCP-API-Key.
	APIKey string
	// Timeout bounds each request. Zero means defaultTimeout.
	Timeout time.Duration
}

// Client talks to the MCP service over HTTP/JSON.
//
// The client is stateless and safe for concurrent use — each call is an
// independent request/response exchange. It never retries: the caller
// decides whether a failed call is worth repeating.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// compile-time check that *Client implements API
var _ API = (*Client)(nil)

// New creates a Client for the given upstream.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("mcp: base URL must not be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// UpstreamError describes a failed MCP call. StatusCode is zero when the
// request never produced a response (connection refused, timeout). Body
// holds the upstream response body when one was received, for diagnosis.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("mcp: request failed: %v", e.Err)
	}
	return fmt.Sprintf("mcp: upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap makes errors.Is(err, apperror.ErrUpstream) true for every
// UpstreamError, so handlers can map the whole class to one HTTP status.
func (e *UpstreamError) Unwrap() error {
	return apperror.ErrUpstream
}

func (c *Client) CreateContext(ctx context.Context, userID string, prefs model.Preferences) error {
	// MCP accepts either the bare preferences object or one wrapped in
	// initial_prefs; we always send the wrapped form.
	body := map[string]model.Preferences{"initial_prefs": prefs}
	return c.do(ctx, http.MethodPost, "/mcp/v1/context/user/"+url.PathEscape(userID), nil, body, nil)
}

func (c *Client) Recommendations(ctx context.Context, userID string, opts RecommendationOptions) (*model.Recommendations, error) {
	var recs model.Recommendations
	path := "/mcp/v1/recommendations/user/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, recommendationQuery(opts), nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

func (c *Client) AIRecommendations(ctx context.Context, userID string, opts RecommendationOptions) (*model.Recommendations, error) {
	var recs model.Recommendations
	path := "/mcp/v1/ai-recommendations/user/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, recommendationQuery(opts), nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

func (c *Client) RecordInteraction(ctx context.Context, userID string, interaction model.Interaction) error {
	path := "/mcp/v1/context/user/" + url.PathEscape(userID) + "/interact"
	return c.do(ctx, http.MethodPost, path, nil, interaction, nil)
}

func (c *Client) AnalyzeFeedback(ctx context.Context, userID string, feedback TextFeedback) (*FeedbackAnalysis, error) {
	var analysis FeedbackAnalysis
	path := "/mcp/v1/context/user/" + url.PathEscape(userID) + "/ai-feedback"
	if err := c.do(ctx, http.MethodPost, path, nil, feedback, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (c *Client) ContextSummary(ctx context.Context, userID string) (*model.ContextSummary, error) {
	var summary model.ContextSummary
	path := "/mcp/v1/context/user/" + url.PathEscape(userID) + "/summary"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.do(ctx, http.MethodGet, "/mcp/health", nil, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// recommendationQuery maps options to the upstream query parameters.
func recommendationQuery(opts RecommendationOptions) url.Values {
	q := url.Values{}
	if len(opts.ExcludedItems) > 0 {
		q.Set("excluded_items", strings.Join(opts.ExcludedItems, ","))
	}
	if opts.Refresh {
		q.Set("refresh", "true")
	}
	return q
}

// do performs one upstream exchange: marshal the body (if any), send with
// the API key header, check for 2xx, and decode into out (if non-nil).
//
// Every failure path returns *UpstreamError so callers get a single error
// class to match on, with the upstream status and body preserved when
// available.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mcp: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("mcp: building request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("mcp request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("mcp request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read a bounded amount of the body for diagnosis — enough for any
		// sane error payload, without trusting upstream to be small.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding response: %w", err),
			Body:       "malformed JSON response",
		}
	}

	return nil
}
