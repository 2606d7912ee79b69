package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/salscrudato/product-console/internal/assistant"
	"github.com/salscrudato/product-console/internal/feed"
	"github.com/salscrudato/product-console/internal/store"
	"github.com/salscrudato/product-console/pkg/anthropic"
	"github.com/salscrudato/product-console/pkg/newsfeed"
)

// consoleEnv holds the initialized store, assistant pipeline, and feed
// syncer shared by the serve/ask/news commands.
type consoleEnv struct {
	Store     store.Store
	Assistant *assistant.Pipeline
	Feeds     *feed.Syncer
}

// Close releases resources held by the environment.
func (ce *consoleEnv) Close() {
	if ce.Store != nil {
		_ = ce.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "product-console.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, runs migrations, and wires the assistant
// pipeline and feed syncer. Callers should defer env.Close().
func initEnv(ctx context.Context) (*consoleEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (PRODUCT_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	aiClient := anthropic.NewClient(cfg.Anthropic.Key)

	feedOpts := []newsfeed.Option{newsfeed.WithRateLimit(cfg.Feed.RatePerSec)}
	if cfg.Feed.BaseURL != "" {
		feedOpts = append(feedOpts, newsfeed.WithBaseURL(cfg.Feed.BaseURL))
	}
	feedClient := newsfeed.NewClient(cfg.Feed.Key, feedOpts...)

	return &consoleEnv{
		Store:     st,
		Assistant: assistant.New(cfg, st, aiClient),
		Feeds:     feed.NewSyncer(st, feedClient, aiClient, cfg.Feed, cfg.Anthropic),
	}, nil
}
