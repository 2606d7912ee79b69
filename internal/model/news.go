package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewsArticle is an externally sourced industry news item.
type NewsArticle struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	Body        string    `json:"body,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewsSummary is an LLM-condensed version of a NewsArticle, kept in the
// newsSummaries collection for the dashboard feed.
type NewsSummary struct {
	ID          string    `json:"id"`
	ArticleID   string    `json:"articleId"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EarningsReport is an externally sourced quarterly earnings record for a
// carrier tracked on the dashboard.
type EarningsReport struct {
	ID         string          `json:"id"`
	Company    string          `json:"company"`
	Ticker     string          `json:"ticker"`
	Period     string          `json:"period"` // e.g. "2026-Q2"
	EPS        decimal.Decimal `json:"eps"`
	Revenue    decimal.Decimal `json:"revenue"`
	ReportedAt time.Time       `json:"reportedAt"`
}

// FeedKind distinguishes cached third-party feeds.
type FeedKind string

const (
	FeedKindNews     FeedKind = "news"
	FeedKindEarnings FeedKind = "earnings"
)

// FeedCache is a cached third-party feed payload with its expiry. A rate
// limit during refresh extends ExpiresAt on the existing row instead of
// surfacing an error.
type FeedCache struct {
	Kind      FeedKind  `json:"kind"`
	Payload   []byte    `json:"payload"`
	FetchedAt time.Time `json:"fetchedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
