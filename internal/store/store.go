// Package store persists the console's collections. Two backends exist:
// PostgreSQL for deployments and SQLite for local development.
package store

import (
	"context"
	"time"

	"github.com/salscrudato/product-console/internal/model"
)

// RuleFilter narrows rule listings. An empty ProductID matches all rules.
type RuleFilter struct {
	ProductID string
	Limit     int
}

// Store is the persistence interface for the product console.
type Store interface {
	// Products
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// Coverages. ListAllCoverages is the collection-group read: every
	// coverage across every product in one query.
	CreateCoverage(ctx context.Context, c model.Coverage) (*model.Coverage, error)
	GetCoverage(ctx context.Context, id string) (*model.Coverage, error)
	ListCoverages(ctx context.Context, productID string) ([]model.Coverage, error)
	ListAllCoverages(ctx context.Context) ([]model.Coverage, error)
	UpdateCoverage(ctx context.Context, c model.Coverage) error
	DeleteCoverage(ctx context.Context, id string) error
	BulkInsertCoverages(ctx context.Context, covs []model.Coverage) (int64, error)

	// Forms and their product/coverage links
	CreateForm(ctx context.Context, f model.Form) (*model.Form, error)
	ListForms(ctx context.Context) ([]model.Form, error)
	DeleteForm(ctx context.Context, id string) error
	LinkForm(ctx context.Context, link model.FormLink) (*model.FormLink, error)
	ListFormLinks(ctx context.Context, formID string) ([]model.FormLink, error)
	ListAllFormLinks(ctx context.Context) ([]model.FormLink, error)

	// Rules
	CreateRule(ctx context.Context, r model.Rule) (*model.Rule, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]model.Rule, error)
	DeleteRule(ctx context.Context, id string) error

	// Pricing steps, ordered by step_order
	CreatePricingStep(ctx context.Context, s model.PricingStep) (*model.PricingStep, error)
	ListPricingSteps(ctx context.Context, productID string) ([]model.PricingStep, error)
	DeletePricingStep(ctx context.Context, id string) error

	// Tasks
	CreateTask(ctx context.Context, t model.Task) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error

	// News summaries
	UpsertNewsSummary(ctx context.Context, s model.NewsSummary) error
	ListNewsSummaries(ctx context.Context, limit int) ([]model.NewsSummary, error)

	// Feed cache. GetFeedCache returns nil without error when no
	// unexpired entry exists.
	GetFeedCache(ctx context.Context, kind model.FeedKind) (*model.FeedCache, error)
	SetFeedCache(ctx context.Context, kind model.FeedKind, payload []byte, ttl time.Duration) error
	ExtendFeedCache(ctx context.Context, kind model.FeedKind, extra time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
