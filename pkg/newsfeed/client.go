// Package newsfeed is a client for the third-party insurance news and
// carrier earnings API used by the dashboard widgets.
package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/salscrudato/product-console/internal/resilience"
)

const (
	defaultBaseURL  = "https://api.insurfeed.io/v1"
	defaultPageSize = 25
)

// Client reads paginated news and earnings feeds.
type Client interface {
	ListArticles(ctx context.Context, params ListParams) (*ArticlePage, error)
	ListEarnings(ctx context.Context, params ListParams) (*EarningsPage, error)
}

// ListParams control pagination and filtering.
type ListParams struct {
	Topic    string
	Page     int
	PageSize int
}

// Article is a raw news item from the feed.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// ArticlePage is one page of articles.
type ArticlePage struct {
	Articles   []Article `json:"articles"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// Earnings is a raw quarterly earnings record from the feed.
type Earnings struct {
	ID         string    `json:"id"`
	Company    string    `json:"company"`
	Ticker     string    `json:"ticker"`
	Period     string    `json:"period"`
	EPS        string    `json:"eps"`
	Revenue    string    `json:"revenue"`
	ReportedAt time.Time `json:"reported_at"`
}

// EarningsPage is one page of earnings records.
type EarningsPage struct {
	Reports    []Earnings `json:"reports"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outbound request rate (requests per second).
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a feed API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ListArticles(ctx context.Context, params ListParams) (*ArticlePage, error) {
	var page ArticlePage
	if err := c.get(ctx, "/news", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *httpClient) ListEarnings(ctx context.Context, params ListParams) (*EarningsPage, error) {
	var page EarningsPage
	if err := c.get(ctx, "/earnings", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *httpClient) get(ctx context.Context, path string, params ListParams, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "newsfeed: rate limiter")
		}
	}

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	url := fmt.Sprintf("%s%s?page=%d&page_size=%d", c.baseURL, path, max(params.Page, 1), pageSize)
	if params.Topic != "" {
		url += "&topic=" + params.Topic
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "newsfeed: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "newsfeed: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "newsfeed: read response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		return &resilience.RateLimitError{
			Service:    "newsfeed",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &resilience.AuthError{Service: "newsfeed", StatusCode: resp.StatusCode}
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return resilience.NewTransientError(
			eris.Errorf("newsfeed: status %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	default:
		return eris.Errorf("newsfeed: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "newsfeed: decode response")
	}
	return nil
}

// parseRetryAfter converts a Retry-After header (delta-seconds form) into a
// duration. Unparseable values yield zero.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
