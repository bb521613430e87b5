package langfuse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cupidlabs/cupid-backend/internal/httpx"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/utils"
)

// ErrRateLimited is returned once every retry against a 429 response has
// been exhausted. Callers treat it as a clean abort, not a failure.
var ErrRateLimited = errors.New("langfuse: rate limited")

const (
	maxRetries  = 5
	baseBackoff = 2 * time.Second
	maxBackoff  = 60 * time.Second
)

// Config carries the Langfuse API settings.
type Config struct {
	BaseURL   string
	PublicKey string
	SecretKey string
}

// ConfigFromEnv reads LANGFUSE_BASE_URL, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY.
func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BaseURL:   utils.GetEnv("LANGFUSE_BASE_URL", "https://cloud.langfuse.com", log),
		PublicKey: utils.GetEnv("LANGFUSE_PUBLIC_KEY", "", log),
		SecretKey: utils.GetEnv("LANGFUSE_SECRET_KEY", "", log),
	}
}

// Page is one page of a paginated listing. Items stay raw; the sync layer
// picks the fields it persists.
type Page struct {
	Data []map[string]any `json:"data"`
	Meta PageMeta         `json:"meta"`
}

type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// TraceQuery filters a traces listing.
type TraceQuery struct {
	Limit         int
	Page          int
	SessionID     string
	FromTimestamp string
	OrderBy       string
}

// Client is an authenticated Langfuse public API client with exponential
// backoff on rate limiting.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.PublicKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("missing langfuse credentials")
	}
	credentials := cfg.PublicKey + ":" + cfg.SecretKey
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api/public",
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}, nil
}

func (c *Client) request(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("langfuse: %s: %w", endpoint, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			backoff := baseBackoff << attempt
			wait := httpx.RetryAfterDuration(resp, backoff, maxBackoff)
			c.log.Warn("langfuse rate limited, backing off",
				"endpoint", endpoint, "attempt", attempt+1, "wait", wait.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("langfuse: %s: read body: %w", endpoint, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("langfuse: %s: status %d: %s", endpoint, resp.StatusCode, truncate(string(body), 200))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("langfuse: %s: decode: %w", endpoint, err)
		}
		return nil
	}

	return fmt.Errorf("%w after %d retries", ErrRateLimited, maxRetries)
}

// GetSessions fetches one page of sessions.
func (c *Client) GetSessions(ctx context.Context, limit, page int) (*Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	var out Page
	if err := c.request(ctx, "/sessions", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTraces fetches one page of traces matching the query.
func (c *Client) GetTraces(ctx context.Context, q TraceQuery) (*Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("page", strconv.Itoa(q.Page))
	if q.SessionID != "" {
		params.Set("sessionId", q.SessionID)
	}
	if q.FromTimestamp != "" {
		params.Set("fromTimestamp", q.FromTimestamp)
	}
	if q.OrderBy != "" {
		params.Set("orderBy", q.OrderBy)
	}
	var out Page
	if err := c.request(ctx, "/traces", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetObservations fetches one page of observations, optionally scoped to a
// trace.
func (c *Client) GetObservations(ctx context.Context, limit, page int, traceID string) (*Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	if traceID != "" {
		params.Set("traceId", traceID)
	}
	var out Page
	if err := c.request(ctx, "/observations", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckConnection reports whether the credentials and base URL work.
func (c *Client) CheckConnection(ctx context.Context) bool {
	params := url.Values{}
	params.Set("limit", "1")
	var out Page
	return c.request(ctx, "/sessions", params, &out) == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
