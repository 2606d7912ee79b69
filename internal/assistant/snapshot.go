package assistant

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/internal/store"
)

// Collections holds every record set the assistant draws context from.
// They are plain slices so the snapshot builder stays a pure transform
// over whatever the caller fetched.
type Collections struct {
	Products      []model.Product
	Coverages     []model.Coverage
	Forms         []model.Form
	FormLinks     []model.FormLink
	Rules         []model.Rule
	PricingSteps  []model.PricingStep
	Tasks         []model.Task
	NewsSummaries []model.NewsSummary
}

// LoadCollections fetches every collection the snapshot needs. Reads fan out
// concurrently; the coverage read is a cross-product collection scan.
func LoadCollections(ctx context.Context, st store.Store) (*Collections, error) {
	var cols Collections
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		cols.Products, err = st.ListProducts(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		cols.Coverages, err = st.ListAllCoverages(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		cols.Forms, err = st.ListForms(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		cols.FormLinks, err = st.ListAllFormLinks(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		cols.Rules, err = st.ListRules(gCtx, store.RuleFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		cols.Tasks, err = st.ListTasks(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		cols.NewsSummaries, err = st.ListNewsSummaries(gCtx, 25)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Pricing steps are scoped per product, so fetch them after the
	// product list is known.
	for _, p := range cols.Products {
		steps, err := st.ListPricingSteps(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		cols.PricingSteps = append(cols.PricingSteps, steps...)
	}

	return &cols, nil
}

// CoverageRecord is a coverage denormalized with its owning product's name
// and, when present, its parent coverage's name.
type CoverageRecord struct {
	ID           string            `json:"id"`
	ProductID    string            `json:"productId"`
	ProductName  string            `json:"productName"`
	CoverageCode string            `json:"coverageCode"`
	CoverageName string            `json:"coverageName"`
	ParentName   string            `json:"parentName,omitempty"`
	Limits       []decimal.Decimal `json:"limits,omitempty"`
	Deductibles  []decimal.Decimal `json:"deductibles,omitempty"`
	States       []string          `json:"states,omitempty"`
}

// FormRecord is a form denormalized with the names of every product it
// attaches to.
type FormRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	FormNumber   string   `json:"formNumber"`
	Category     string   `json:"category,omitempty"`
	ProductNames []string `json:"productNames,omitempty"`
}

// PricingStepRecord is a pricing step denormalized with its product name.
type PricingStepRecord struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	StepOrder   int    `json:"stepOrder"`
	Name        string `json:"name"`
	Operand     string `json:"operand,omitempty"`
	Value       string `json:"value"`
	Table       string `json:"table,omitempty"`
}

// RuleRecord is a rule denormalized with its product name, when scoped.
type RuleRecord struct {
	ID          string `json:"id"`
	ProductName string `json:"productName,omitempty"`
	Text        string `json:"text"`
}

// TaskRecord is a task with its overdue status resolved against the
// snapshot clock.
type TaskRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Assignee string `json:"assignee,omitempty"`
	DueDate  string `json:"dueDate,omitempty"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Phase    string `json:"phase,omitempty"`
	Overdue  bool   `json:"overdue,omitempty"`
}

// NewsRecord is a trimmed news summary.
type NewsRecord struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"publishedAt"`
}

// Snapshot is the denormalized view of all collections at a point in time.
// It never aliases the source slices.
type Snapshot struct {
	TakenAt      time.Time           `json:"takenAt"`
	Products     []model.Product     `json:"products"`
	Coverages    []CoverageRecord    `json:"coverages"`
	Forms        []FormRecord        `json:"forms"`
	Rules        []RuleRecord        `json:"rules"`
	PricingSteps []PricingStepRecord `json:"pricingSteps"`
	Tasks        []TaskRecord        `json:"tasks"`
	News         []NewsRecord        `json:"news"`
}

// BuildSnapshot denormalizes the collections into flat records with resolved
// foreign-key names. Lookups go through maps rather than linear scans so
// rebuild cost stays O(n) per collection.
func BuildSnapshot(cols *Collections, now time.Time) *Snapshot {
	productNames := make(map[string]string, len(cols.Products))
	for _, p := range cols.Products {
		productNames[p.ID] = p.Name
	}
	coverageNames := make(map[string]string, len(cols.Coverages))
	for _, c := range cols.Coverages {
		coverageNames[c.ID] = c.CoverageName
	}

	snap := &Snapshot{
		TakenAt:  now,
		Products: append([]model.Product(nil), cols.Products...),
	}

	for _, c := range cols.Coverages {
		snap.Coverages = append(snap.Coverages, CoverageRecord{
			ID:           c.ID,
			ProductID:    c.ProductID,
			ProductName:  productNames[c.ProductID],
			CoverageCode: c.CoverageCode,
			CoverageName: c.CoverageName,
			ParentName:   coverageNames[c.ParentCoverageID],
			Limits:       c.Limits,
			Deductibles:  c.Deductibles,
			States:       c.States,
		})
	}

	// Group form links by form so each form lists its product names once.
	linkedProducts := make(map[string]map[string]struct{})
	for _, l := range cols.FormLinks {
		if linkedProducts[l.FormID] == nil {
			linkedProducts[l.FormID] = make(map[string]struct{})
		}
		linkedProducts[l.FormID][l.ProductID] = struct{}{}
	}
	for _, f := range cols.Forms {
		var names []string
		for pid := range linkedProducts[f.ID] {
			if name, ok := productNames[pid]; ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		snap.Forms = append(snap.Forms, FormRecord{
			ID:           f.ID,
			Name:         f.Name,
			FormNumber:   f.FormNumber,
			Category:     f.Category,
			ProductNames: names,
		})
	}

	for _, r := range cols.Rules {
		snap.Rules = append(snap.Rules, RuleRecord{
			ID:          r.ID,
			ProductName: productNames[r.ProductID],
			Text:        r.Text,
		})
	}

	for _, s := range cols.PricingSteps {
		snap.PricingSteps = append(snap.PricingSteps, PricingStepRecord{
			ID:          s.ID,
			ProductID:   s.ProductID,
			ProductName: productNames[s.ProductID],
			StepOrder:   s.StepOrder,
			Name:        s.Name,
			Operand:     s.Operand,
			Value:       s.Value.String(),
			Table:       s.Table,
		})
	}

	for _, t := range cols.Tasks {
		rec := TaskRecord{
			ID:       t.ID,
			Title:    t.Title,
			Assignee: t.Assignee,
			Status:   string(t.Status),
			Priority: string(t.Priority),
			Phase:    string(t.Phase),
			Overdue:  t.Overdue(now),
		}
		if t.DueDate != nil {
			rec.DueDate = t.DueDate.UTC().Format("2006-01-02")
		}
		snap.Tasks = append(snap.Tasks, rec)
	}

	for _, n := range cols.NewsSummaries {
		snap.News = append(snap.News, NewsRecord{
			Title:       n.Title,
			Summary:     n.Summary,
			Source:      n.Source,
			PublishedAt: n.PublishedAt.UTC().Format("2006-01-02"),
		})
	}

	return snap
}
