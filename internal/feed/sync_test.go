package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/salscrudato/product-console/internal/config"
	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/internal/resilience"
	"github.com/salscrudato/product-console/pkg/anthropic"
	"github.com/salscrudato/product-console/pkg/newsfeed"
)

// cacheStore implements the store methods the syncer touches with an
// in-memory feed cache. Everything else is unused.
type cacheStore struct {
	caches    map[model.FeedKind]*model.FeedCache
	extended  map[model.FeedKind]time.Duration
	summaries []model.NewsSummary
}

func newCacheStore() *cacheStore {
	return &cacheStore{
		caches:   make(map[model.FeedKind]*model.FeedCache),
		extended: make(map[model.FeedKind]time.Duration),
	}
}

func (s *cacheStore) GetFeedCache(_ context.Context, kind model.FeedKind) (*model.FeedCache, error) {
	return s.caches[kind], nil
}

func (s *cacheStore) SetFeedCache(_ context.Context, kind model.FeedKind, payload []byte, ttl time.Duration) error {
	now := time.Now()
	s.caches[kind] = &model.FeedCache{Kind: kind, Payload: payload, FetchedAt: now, ExpiresAt: now.Add(ttl)}
	return nil
}

func (s *cacheStore) ExtendFeedCache(_ context.Context, kind model.FeedKind, extra time.Duration) error {
	s.extended[kind] += extra
	return nil
}

func (s *cacheStore) UpsertNewsSummary(_ context.Context, sum model.NewsSummary) error {
	s.summaries = append(s.summaries, sum)
	return nil
}

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) ListArticles(ctx context.Context, params newsfeed.ListParams) (*newsfeed.ArticlePage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsfeed.ArticlePage), args.Error(1)
}

func (m *mockFeed) ListEarnings(ctx context.Context, params newsfeed.ListParams) (*newsfeed.EarningsPage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsfeed.EarningsPage), args.Error(1)
}

type mockAI struct {
	mock.Mock
}

func (m *mockAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func (m *mockAI) CreateBatch(ctx context.Context, req anthropic.BatchRequest) (*anthropic.BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.BatchResponse), args.Error(1)
}

func (m *mockAI) GetBatch(ctx context.Context, batchID string) (*anthropic.BatchResponse, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.BatchResponse), args.Error(1)
}

func (m *mockAI) GetBatchResults(ctx context.Context, batchID string) (anthropic.BatchResultIterator, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(anthropic.BatchResultIterator), args.Error(1)
}

func testSyncer(st *cacheStore, feed newsfeed.Client, ai anthropic.Client) *Syncer {
	return NewSyncer(st, feed, ai,
		config.FeedConfig{PageSize: 20, CacheTTLMinutes: 45},
		config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", SmallBatchThreshold: 8})
}

func TestNewsServesFreshCache(t *testing.T) {
	st := newCacheStore()
	articles := []model.NewsArticle{{ID: "a1", Title: "Rate filing approved"}}
	payload, _ := json.Marshal(articles)
	st.caches[model.FeedKindNews] = &model.FeedCache{Kind: model.FeedKindNews, Payload: payload}

	feed := &mockFeed{}
	s := testSyncer(st, feed, &mockAI{})

	got, err := s.News(context.Background())
	require.NoError(t, err)
	assert.Equal(t, articles, got)
	feed.AssertNotCalled(t, "ListArticles")
}

func TestNewsFetchesCachesAndDigests(t *testing.T) {
	st := newCacheStore()

	feed := &mockFeed{}
	feed.On("ListArticles", mock.Anything, mock.Anything).
		Return(&newsfeed.ArticlePage{
			Articles: []newsfeed.Article{
				{ID: "a1", Title: "Hurricane season outlook", Source: "wire", Body: "body one"},
				{ID: "a2", Title: "Umbrella limits rising", Source: "wire", Body: "body two"},
			},
			Page:       1,
			TotalPages: 1,
		}, nil)

	ai := &mockAI{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&anthropic.MessageResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: "digest text"}},
		}, nil)

	s := testSyncer(st, feed, ai)
	got, err := s.News(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 2)
	assert.NotNil(t, st.caches[model.FeedKindNews])
	require.Len(t, st.summaries, 2)
	assert.Equal(t, "a1", st.summaries[0].ArticleID)
	assert.Equal(t, "digest text", st.summaries[0].Summary)
	ai.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestNewsRateLimitExtendsAndServesStale(t *testing.T) {
	st := newCacheStore()
	stale := []model.NewsArticle{{ID: "old", Title: "Stale but usable"}}
	payload, _ := json.Marshal(stale)
	// Simulate an entry that only becomes readable once extended: the stub
	// returns it unconditionally, so the assertion below focuses on the
	// extension being requested with the Retry-After value.
	cached := &model.FeedCache{Kind: model.FeedKindNews, Payload: payload}

	feed := &mockFeed{}
	feed.On("ListArticles", mock.Anything, mock.Anything).
		Return(nil, &resilience.RateLimitError{Service: "newsfeed", RetryAfter: 2 * time.Minute})

	s := testSyncer(st, feed, &mockAI{})

	// First pass: no cache entry at all, so the rate limit surfaces.
	_, err := s.News(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2*time.Minute, st.extended[model.FeedKindNews])

	// Second pass with a stale entry present: extension makes it readable.
	st.caches[model.FeedKindNews] = cached
	got, err := s.News(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stale, got)
}

func TestEarningsParsesDecimals(t *testing.T) {
	st := newCacheStore()

	feed := &mockFeed{}
	feed.On("ListEarnings", mock.Anything, mock.Anything).
		Return(&newsfeed.EarningsPage{
			Reports: []newsfeed.Earnings{
				{ID: "e1", Company: "Acme Mutual", Ticker: "ACME", Period: "2026-Q2", EPS: "1.42", Revenue: "1250000000"},
			},
			Page:       1,
			TotalPages: 1,
		}, nil)

	s := testSyncer(st, feed, &mockAI{})
	got, err := s.Earnings(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "1.42", got[0].EPS.String())
	assert.Equal(t, "1250000000", got[0].Revenue.String())
	assert.NotNil(t, st.caches[model.FeedKindEarnings])
}
