// Package feed pulls news and earnings from the upstream feed API, caches
// them in the store, and digests fresh articles through the model.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/salscrudato/product-console/internal/config"
	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/internal/resilience"
	"github.com/salscrudato/product-console/pkg/anthropic"
	"github.com/salscrudato/product-console/pkg/newsfeed"
)

const (
	maxFeedPages         = 3
	maxDigestConcurrency = 4
)

const digestSystemPrompt = `Summarize the insurance industry news article in at most two sentences, focused on what matters to a P&C product manager: line of business, regulatory or pricing impact, and affected states. Respond with the summary text only.`

// Store is the slice of the persistence layer the syncer needs.
type Store interface {
	GetFeedCache(ctx context.Context, kind model.FeedKind) (*model.FeedCache, error)
	SetFeedCache(ctx context.Context, kind model.FeedKind, payload []byte, ttl time.Duration) error
	ExtendFeedCache(ctx context.Context, kind model.FeedKind, extra time.Duration) error
	UpsertNewsSummary(ctx context.Context, sum model.NewsSummary) error
}

// Syncer keeps the local news and earnings caches fresh. Fetches go through
// a circuit breaker; rate limits extend the cache instead of failing.
type Syncer struct {
	store   Store
	feed    newsfeed.Client
	ai      anthropic.Client
	feedCfg config.FeedConfig
	aiCfg   config.AnthropicConfig
	breaker *resilience.CircuitBreaker
}

// NewSyncer wires a Syncer from configuration.
func NewSyncer(st Store, feed newsfeed.Client, ai anthropic.Client, feedCfg config.FeedConfig, aiCfg config.AnthropicConfig) *Syncer {
	return &Syncer{
		store:   st,
		feed:    feed,
		ai:      ai,
		feedCfg: feedCfg,
		aiCfg:   aiCfg,
		breaker: resilience.NewCircuitBreaker("newsfeed", resilience.DefaultCircuitBreakerConfig()),
	}
}

func (s *Syncer) cacheTTL() time.Duration {
	minutes := s.feedCfg.CacheTTLMinutes
	if minutes <= 0 {
		minutes = 45
	}
	return time.Duration(minutes) * time.Minute
}

// News returns the current news articles, from cache when fresh. A cache
// miss fetches from the feed, refills the cache, and digests the articles
// into stored summaries.
func (s *Syncer) News(ctx context.Context) ([]model.NewsArticle, error) {
	if cached, err := s.store.GetFeedCache(ctx, model.FeedKindNews); err != nil {
		return nil, err
	} else if cached != nil {
		var articles []model.NewsArticle
		if err := json.Unmarshal(cached.Payload, &articles); err == nil {
			return articles, nil
		}
		zap.L().Warn("feed: news cache payload corrupt, refetching")
	}

	articles, err := s.fetchNews(ctx)
	if err != nil {
		if stale := s.extendOnRateLimit(ctx, model.FeedKindNews, err); stale != nil {
			var cached []model.NewsArticle
			if jsonErr := json.Unmarshal(stale.Payload, &cached); jsonErr == nil {
				zap.L().Info("feed: serving extended news cache after rate limit")
				return cached, nil
			}
		}
		return nil, err
	}

	payload, err := json.Marshal(articles)
	if err != nil {
		return nil, eris.Wrap(err, "feed: marshal news payload")
	}
	if err := s.store.SetFeedCache(ctx, model.FeedKindNews, payload, s.cacheTTL()); err != nil {
		return nil, err
	}

	if err := s.digest(ctx, articles); err != nil {
		// Digest failures do not invalidate the fetched articles.
		zap.L().Warn("feed: digest failed", zap.Error(err))
	}
	return articles, nil
}

// Earnings returns current earnings reports, cached the same way as news.
func (s *Syncer) Earnings(ctx context.Context) ([]model.EarningsReport, error) {
	if cached, err := s.store.GetFeedCache(ctx, model.FeedKindEarnings); err != nil {
		return nil, err
	} else if cached != nil {
		var reports []model.EarningsReport
		if err := json.Unmarshal(cached.Payload, &reports); err == nil {
			return reports, nil
		}
		zap.L().Warn("feed: earnings cache payload corrupt, refetching")
	}

	reports, err := s.fetchEarnings(ctx)
	if err != nil {
		if stale := s.extendOnRateLimit(ctx, model.FeedKindEarnings, err); stale != nil {
			var cached []model.EarningsReport
			if jsonErr := json.Unmarshal(stale.Payload, &cached); jsonErr == nil {
				zap.L().Info("feed: serving extended earnings cache after rate limit")
				return cached, nil
			}
		}
		return nil, err
	}

	payload, err := json.Marshal(reports)
	if err != nil {
		return nil, eris.Wrap(err, "feed: marshal earnings payload")
	}
	if err := s.store.SetFeedCache(ctx, model.FeedKindEarnings, payload, s.cacheTTL()); err != nil {
		return nil, err
	}
	return reports, nil
}

// extendOnRateLimit pushes the cache expiry forward when the upstream rate
// limits us, then returns whatever entry is now readable. Non-rate-limit
// errors return nil.
func (s *Syncer) extendOnRateLimit(ctx context.Context, kind model.FeedKind, err error) *model.FeedCache {
	var rl *resilience.RateLimitError
	if !eris.As(err, &rl) {
		return nil
	}
	extra := rl.RetryAfter
	if extra <= 0 {
		extra = s.cacheTTL() / 2
	}
	if extendErr := s.store.ExtendFeedCache(ctx, kind, extra); extendErr != nil {
		zap.L().Warn("feed: extend cache failed", zap.Error(extendErr))
		return nil
	}
	cached, getErr := s.store.GetFeedCache(ctx, kind)
	if getErr != nil {
		return nil
	}
	return cached
}

func (s *Syncer) fetchNews(ctx context.Context) ([]model.NewsArticle, error) {
	var articles []model.NewsArticle
	for page := 1; page <= maxFeedPages; page++ {
		var resp *newsfeed.ArticlePage
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			var innerErr error
			resp, innerErr = s.feed.ListArticles(ctx, newsfeed.ListParams{
				Topic:    "insurance",
				Page:     page,
				PageSize: s.feedCfg.PageSize,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		for _, a := range resp.Articles {
			articles = append(articles, model.NewsArticle{
				ID:          a.ID,
				Title:       a.Title,
				Source:      a.Source,
				URL:         a.URL,
				Body:        a.Body,
				PublishedAt: a.PublishedAt,
			})
		}
		if page >= resp.TotalPages {
			break
		}
	}
	return articles, nil
}

func (s *Syncer) fetchEarnings(ctx context.Context) ([]model.EarningsReport, error) {
	var reports []model.EarningsReport
	for page := 1; page <= maxFeedPages; page++ {
		var resp *newsfeed.EarningsPage
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			var innerErr error
			resp, innerErr = s.feed.ListEarnings(ctx, newsfeed.ListParams{
				Page:     page,
				PageSize: s.feedCfg.PageSize,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Reports {
			report := model.EarningsReport{
				ID:         e.ID,
				Company:    e.Company,
				Ticker:     e.Ticker,
				Period:     e.Period,
				ReportedAt: e.ReportedAt,
			}
			if eps, err := decimal.NewFromString(e.EPS); err == nil {
				report.EPS = eps
			}
			if rev, err := decimal.NewFromString(e.Revenue); err == nil {
				report.Revenue = rev
			}
			reports = append(reports, report)
		}
		if page >= resp.TotalPages {
			break
		}
	}
	return reports, nil
}

// digest summarizes each article through the model and upserts the result.
// Small workloads go through direct calls; larger ones use the batch API,
// which costs half as much but completes asynchronously.
func (s *Syncer) digest(ctx context.Context, articles []model.NewsArticle) error {
	if len(articles) == 0 {
		return nil
	}

	systemBlocks := anthropic.BuildCachedSystemBlocks(digestSystemPrompt)
	items := make([]anthropic.BatchRequestItem, len(articles))
	for i, a := range articles {
		body := a.Body
		if len(body) > 4000 {
			body = body[:4000]
		}
		items[i] = anthropic.BatchRequestItem{
			CustomID: fmt.Sprintf("digest-%d", i),
			Params: anthropic.MessageRequest{
				Model:     s.digestModel(),
				MaxTokens: 256,
				System:    systemBlocks,
				Messages: []anthropic.Message{
					{Role: "user", Content: fmt.Sprintf("Title: %s\nSource: %s\n\n%s", a.Title, a.Source, body)},
				},
			},
		}
	}

	threshold := s.aiCfg.SmallBatchThreshold
	if threshold <= 0 {
		threshold = 8
	}

	var summaries map[int]string
	var err error
	if s.aiCfg.NoBatch || len(items) <= threshold {
		summaries, err = s.digestDirect(ctx, items)
	} else {
		summaries, err = s.digestBatch(ctx, items)
	}
	if err != nil {
		return err
	}

	for i, a := range articles {
		text, ok := summaries[i]
		if !ok || text == "" {
			continue
		}
		sum := model.NewsSummary{
			ArticleID:   a.ID,
			Title:       a.Title,
			Summary:     text,
			Source:      a.Source,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		}
		if err := s.store.UpsertNewsSummary(ctx, sum); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) digestModel() string {
	if s.aiCfg.DigestModel != "" {
		return s.aiCfg.DigestModel
	}
	return s.aiCfg.Model
}

func (s *Syncer) digestDirect(ctx context.Context, items []anthropic.BatchRequestItem) (map[int]string, error) {
	summaries := make(map[int]string, len(items))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxDigestConcurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			resp, err := s.ai.CreateMessage(gCtx, item.Params)
			if err != nil {
				zap.L().Warn("feed: digest call failed",
					zap.String("custom_id", item.CustomID),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			summaries[i] = resp.Text()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Syncer) digestBatch(ctx context.Context, items []anthropic.BatchRequestItem) (map[int]string, error) {
	batch, err := s.ai.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return nil, eris.Wrap(err, "feed: create digest batch")
	}

	batch, err = anthropic.PollBatch(ctx, s.ai, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "feed: poll digest batch")
	}

	iter, err := s.ai.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "feed: get digest batch results")
	}
	results, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return nil, eris.Wrap(err, "feed: collect digest batch results")
	}

	summaries := make(map[int]string, len(results))
	for i := range items {
		if resp, ok := results[fmt.Sprintf("digest-%d", i)]; ok && resp != nil {
			summaries[i] = resp.Text()
		}
	}
	return summaries, nil
}
