package newsfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salscrudato/product-console/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestListArticles_OK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"articles": [{"id": "a1", "title": "Cat bond market tightens", "source": "wire", "published_at": "2026-08-30T12:00:00Z"}],
			"page": 1,
			"total_pages": 3
		}`))
	})

	page, err := client.ListArticles(context.Background(), ListParams{Topic: "property"})
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)
	assert.Equal(t, "Cat bond market tightens", page.Articles[0].Title)
	assert.Equal(t, 3, page.TotalPages)
}

func TestListArticles_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ListArticles(context.Background(), ListParams{})
	require.Error(t, err)

	var rl *resilience.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 2*time.Minute, rl.RetryAfter)
}

func TestListArticles_AuthFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListArticles(context.Background(), ListParams{})
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
	assert.False(t, resilience.IsTransient(err))
}

func TestListArticles_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListArticles(context.Background(), ListParams{})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestListEarnings_OK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/earnings", r.URL.Path)
		w.Write([]byte(`{
			"reports": [{"id": "e1", "company": "Acme Mutual", "ticker": "ACME", "period": "2026-Q2", "eps": "1.42", "revenue": "980000000", "reported_at": "2026-08-01T00:00:00Z"}],
			"page": 1,
			"total_pages": 1
		}`))
	})

	page, err := client.ListEarnings(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Reports, 1)
	assert.Equal(t, "ACME", page.Reports[0].Ticker)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2026 07:28:00 GMT"))
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
}
