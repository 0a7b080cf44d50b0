package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "cinedex-go-sdk"
)

// Client talks to a cinedex API instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     interface {
		Debug(msg string, args ...any)
	}
}

// New creates a client for the given base URL (scheme and host, no
// trailing path).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	cfg := clientConfig{
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		userAgent:  cfg.userAgent,
	}
	if cfg.logger != nil {
		c.logger = cfg.logger
	}
	return c, nil
}

// Overview fetches the platform KPI panel.
func (c *Client) Overview(ctx context.Context) (OverviewSummary, error) {
	var out OverviewSummary
	err := c.get(ctx, "/api/v1/overview", nil, &out)
	return out, err
}

// GenrePerformance fetches the per-genre rating profile.
func (c *Client) GenrePerformance(ctx context.Context) ([]GenrePerformance, error) {
	var out struct {
		Genres []GenrePerformance `json:"genres"`
	}
	err := c.get(ctx, "/api/v1/genres/performance", nil, &out)
	return out.Genres, err
}

// TemporalTrends fetches production volume and rating trend per decade.
// A zero fromYear uses the server default lower bound.
func (c *Client) TemporalTrends(ctx context.Context, fromYear int) (TemporalTrends, error) {
	q := url.Values{}
	if fromYear > 0 {
		q.Set("from_year", strconv.Itoa(fromYear))
	}
	var out TemporalTrends
	err := c.get(ctx, "/api/v1/trends", q, &out)
	return out, err
}

// TheaterLocations fetches the geographic panel.
func (c *Client) TheaterLocations(ctx context.Context) (TheaterMap, error) {
	var out TheaterMap
	err := c.get(ctx, "/api/v1/theaters", nil, &out)
	return out, err
}

// EngagementMetrics fetches the user engagement panel.
func (c *Client) EngagementMetrics(ctx context.Context) (EngagementSummary, error) {
	var out EngagementSummary
	err := c.get(ctx, "/api/v1/engagement", nil, &out)
	return out, err
}

// MovieAnalytics fetches the movie analytics panel. Zero limit and
// minVotes use the server defaults.
func (c *Client) MovieAnalytics(ctx context.Context, limit, minVotes int) (MovieAnalytics, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if minVotes > 0 {
		q.Set("min_votes", strconv.Itoa(minVotes))
	}
	var out MovieAnalytics
	err := c.get(ctx, "/api/v1/movies/analytics", q, &out)
	return out, err
}

// SearchMovies runs the catalog search.
func (c *Client) SearchMovies(ctx context.Context, req SearchRequest) ([]MovieSummary, error) {
	q := url.Values{}
	if req.Title != "" {
		q.Set("title", req.Title)
	}
	if req.Genre != "" {
		q.Set("genre", req.Genre)
	}
	if req.YearFrom > 0 {
		q.Set("year_from", strconv.Itoa(req.YearFrom))
	}
	if req.YearTo > 0 {
		q.Set("year_to", strconv.Itoa(req.YearTo))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	var out struct {
		Movies []MovieSummary `json:"movies"`
	}
	err := c.get(ctx, "/api/v1/movies/search", q, &out)
	return out.Movies, err
}

// Genres lists every distinct genre, sorted.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	var out struct {
		Genres []string `json:"genres"`
	}
	err := c.get(ctx, "/api/v1/genres", nil, &out)
	return out.Genres, err
}

// Queries lists the registered catalog query names.
func (c *Client) Queries(ctx context.Context) ([]string, error) {
	var out struct {
		Queries []string `json:"queries"`
	}
	err := c.get(ctx, "/api/v1/queries", nil, &out)
	return out.Queries, err
}

// Refresh rotates the server's freshness token so subsequent reads bypass
// cached results.
func (c *Client) Refresh(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/refresh", nil, nil)
}

// Health reports service and store health. A degraded service answers
// 503 with a regular health body, which is still a successful check.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.get(ctx, "/health", nil, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
			if jsonErr := json.Unmarshal([]byte(apiErr.Message), &out); jsonErr == nil && out.Status != "" {
				return out, nil
			}
		}
		return Health{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		if jsonErr := json.Unmarshal(body, &env); jsonErr == nil && env.Code != "" {
			return env.toError(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
