package assistant

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/internal/store"
	"github.com/salscrudato/product-console/pkg/anthropic"
)

// stubStore serves fixed collections. Writes are not supported; the
// pipeline only reads.
type stubStore struct {
	cols Collections
	err  error
}

func (s *stubStore) check(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func (s *stubStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.cols.Products, s.check(ctx)
}
func (s *stubStore) ListAllCoverages(ctx context.Context) ([]model.Coverage, error) {
	return s.cols.Coverages, s.check(ctx)
}
func (s *stubStore) ListForms(ctx context.Context) ([]model.Form, error) {
	return s.cols.Forms, s.check(ctx)
}
func (s *stubStore) ListAllFormLinks(ctx context.Context) ([]model.FormLink, error) {
	return s.cols.FormLinks, s.check(ctx)
}
func (s *stubStore) ListRules(ctx context.Context, _ store.RuleFilter) ([]model.Rule, error) {
	return s.cols.Rules, s.check(ctx)
}
func (s *stubStore) ListPricingSteps(ctx context.Context, productID string) ([]model.PricingStep, error) {
	var steps []model.PricingStep
	for _, st := range s.cols.PricingSteps {
		if st.ProductID == productID {
			steps = append(steps, st)
		}
	}
	return steps, s.check(ctx)
}
func (s *stubStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.cols.Tasks, s.check(ctx)
}
func (s *stubStore) ListNewsSummaries(ctx context.Context, _ int) ([]model.NewsSummary, error) {
	return s.cols.NewsSummaries, s.check(ctx)
}

func (s *stubStore) CreateProduct(context.Context, model.Product) (*model.Product, error) {
	panic("not implemented")
}
func (s *stubStore) GetProduct(context.Context, string) (*model.Product, error) {
	panic("not implemented")
}
func (s *stubStore) UpdateProduct(context.Context, model.Product) error { panic("not implemented") }
func (s *stubStore) DeleteProduct(context.Context, string) error        { panic("not implemented") }
func (s *stubStore) CreateCoverage(context.Context, model.Coverage) (*model.Coverage, error) {
	panic("not implemented")
}
func (s *stubStore) GetCoverage(context.Context, string) (*model.Coverage, error) {
	panic("not implemented")
}
func (s *stubStore) ListCoverages(context.Context, string) ([]model.Coverage, error) {
	panic("not implemented")
}
func (s *stubStore) UpdateCoverage(context.Context, model.Coverage) error { panic("not implemented") }
func (s *stubStore) DeleteCoverage(context.Context, string) error         { panic("not implemented") }
func (s *stubStore) BulkInsertCoverages(context.Context, []model.Coverage) (int64, error) {
	panic("not implemented")
}
func (s *stubStore) CreateForm(context.Context, model.Form) (*model.Form, error) {
	panic("not implemented")
}
func (s *stubStore) DeleteForm(context.Context, string) error { panic("not implemented") }
func (s *stubStore) LinkForm(context.Context, model.FormLink) (*model.FormLink, error) {
	panic("not implemented")
}
func (s *stubStore) ListFormLinks(context.Context, string) ([]model.FormLink, error) {
	panic("not implemented")
}
func (s *stubStore) CreateRule(context.Context, model.Rule) (*model.Rule, error) {
	panic("not implemented")
}
func (s *stubStore) DeleteRule(context.Context, string) error { panic("not implemented") }
func (s *stubStore) CreatePricingStep(context.Context, model.PricingStep) (*model.PricingStep, error) {
	panic("not implemented")
}
func (s *stubStore) DeletePricingStep(context.Context, string) error { panic("not implemented") }
func (s *stubStore) CreateTask(context.Context, model.Task) (*model.Task, error) {
	panic("not implemented")
}
func (s *stubStore) UpdateTask(context.Context, model.Task) error { panic("not implemented") }
func (s *stubStore) UpsertNewsSummary(context.Context, model.NewsSummary) error {
	panic("not implemented")
}
func (s *stubStore) GetFeedCache(context.Context, model.FeedKind) (*model.FeedCache, error) {
	panic("not implemented")
}
func (s *stubStore) SetFeedCache(context.Context, model.FeedKind, []byte, time.Duration) error {
	panic("not implemented")
}
func (s *stubStore) ExtendFeedCache(context.Context, model.FeedKind, time.Duration) error {
	panic("not implemented")
}
func (s *stubStore) Migrate(context.Context) error { panic("not implemented") }
func (s *stubStore) Close() error                  { return nil }

// mockAI is a testify mock over the provider client.
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

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func fixtureCollections() Collections {
	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	return Collections{
		Products: []model.Product{
			{ID: "p1", Name: "BOP Select", ProductCode: "BOP-01", Status: model.ProductStatusActive, AvailableStates: []string{"OH", "PA"}},
			{ID: "p2", Name: "Commercial Auto", ProductCode: "CA-01", Status: model.ProductStatusDraft},
		},
		Coverages: []model.Coverage{
			{ID: "c1", ProductID: "p1", CoverageCode: "BLDG", CoverageName: "Building"},
			{ID: "c2", ProductID: "p1", CoverageCode: "BPP", CoverageName: "Business Personal Property", ParentCoverageID: "c1"},
			{ID: "c3", ProductID: "p2", CoverageCode: "LIAB", CoverageName: "Auto Liability"},
		},
		Forms: []model.Form{
			{ID: "f1", Name: "Building Coverage Form", FormNumber: "CP 00 10", Category: "coverage"},
		},
		FormLinks: []model.FormLink{
			{ID: "l1", FormID: "f1", ProductID: "p1", CoverageID: "c1"},
		},
		Rules: []model.Rule{
			{ID: "r1", ProductID: "p1", Text: "Wind/hail deductible applies in coastal counties."},
		},
		Tasks: []model.Task{
			{ID: "t1", Title: "File rate revision", Status: model.TaskStatusOpen, Priority: model.TaskPriorityHigh, DueDate: &due},
		},
	}
}
