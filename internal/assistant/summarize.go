package assistant

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salscrudato/product-console/internal/model"
)

// charsPerToken is the serialization-to-token heuristic used to convert the
// configured token budget into a hard character ceiling. Four characters per
// token is conservative for JSON-heavy English text.
const charsPerToken = 4

// Stats is the scalar tier of the context summary. It survives every level
// of size reduction.
type Stats struct {
	Products       int `json:"products"`
	ActiveProducts int `json:"activeProducts"`
	Coverages      int `json:"coverages"`
	Forms          int `json:"forms"`
	Rules          int `json:"rules"`
	PricingSteps   int `json:"pricingSteps"`
	Tasks          int `json:"tasks"`
	TasksOverdue   int `json:"tasksOverdue"`
	NewsSummaries  int `json:"newsSummaries"`
}

// FullCoverage is the reduced field set used when the summary carries a
// complete coverage listing.
type FullCoverage struct {
	ProductName  string `json:"productName"`
	CoverageCode string `json:"coverageCode"`
	CoverageName string `json:"coverageName"`
	ParentName   string `json:"parentName,omitempty"`
}

// FullProduct is the reduced field set for the complete product listing.
type FullProduct struct {
	Name   string `json:"name"`
	Code   string `json:"productCode"`
	Status string `json:"status"`
	States int    `json:"stateCount"`
}

// Summary is the bounded context object embedded in the system prompt.
// Tiers are dropped from the bottom up when the serialized form would
// exceed the budget: full listings first, then samples shrink, leaving
// stats as the floor.
type Summary struct {
	GeneratedAt string `json:"generatedAt"`
	Stats       Stats  `json:"stats"`

	ProductSamples     []model.Product     `json:"productSamples,omitempty"`
	CoverageSamples    []CoverageRecord    `json:"coverageSamples,omitempty"`
	FormSamples        []FormRecord        `json:"formSamples,omitempty"`
	RuleSamples        []RuleRecord        `json:"ruleSamples,omitempty"`
	PricingStepSamples []PricingStepRecord `json:"pricingStepSamples,omitempty"`
	TaskSamples        []TaskRecord        `json:"taskSamples,omitempty"`
	NewsSamples        []NewsRecord        `json:"newsSamples,omitempty"`

	AllProducts  []FullProduct  `json:"allProducts,omitempty"`
	AllCoverages []FullCoverage `json:"allCoverages,omitempty"`

	Truncated bool `json:"truncated,omitempty"`
}

// Summarizer reduces a snapshot to a Summary whose serialized size never
// exceeds TokenBudget * charsPerToken bytes.
type Summarizer struct {
	TokenBudget int
	SampleSize  int
}

// NewSummarizer applies defaults for non-positive values.
func NewSummarizer(tokenBudget, sampleSize int) *Summarizer {
	if tokenBudget <= 0 {
		tokenBudget = 6000
	}
	if sampleSize <= 0 {
		sampleSize = 5
	}
	return &Summarizer{TokenBudget: tokenBudget, SampleSize: sampleSize}
}

// Summarize builds the summary and returns it with its serialized form,
// always valid JSON. The bytes fit the budget for any budget that can hold
// the stats tier; below that the summary is elided to its timestamp.
func (s *Summarizer) Summarize(snap *Snapshot) (*Summary, []byte, error) {
	ceiling := s.TokenBudget * charsPerToken

	sum := s.build(snap, s.SampleSize, true)
	data, err := json.Marshal(sum)
	if err != nil {
		return nil, nil, eris.Wrap(err, "summarize: marshal")
	}
	if len(data) <= ceiling {
		return sum, data, nil
	}

	// Too big with the full listings: drop them and retry with
	// progressively smaller samples.
	for size := s.SampleSize; size >= 0; size /= 2 {
		sum = s.build(snap, size, false)
		sum.Truncated = true
		data, err = json.Marshal(sum)
		if err != nil {
			return nil, nil, eris.Wrap(err, "summarize: marshal")
		}
		if len(data) <= ceiling {
			zap.L().Debug("summarize: reduced context to fit budget",
				zap.Int("sample_size", size),
				zap.Int("bytes", len(data)),
				zap.Int("ceiling", ceiling),
			)
			return sum, data, nil
		}
		if size == 0 {
			break
		}
	}

	// Stats alone exceed the ceiling only if the budget is pathologically
	// small. Elide them too rather than emit broken JSON.
	minimal := &Summary{GeneratedAt: sum.GeneratedAt, Truncated: true}
	data, err = json.Marshal(minimal)
	if err != nil {
		return nil, nil, eris.Wrap(err, "summarize: marshal")
	}
	zap.L().Warn("summarize: budget below stats tier, context reduced to timestamp",
		zap.Int("ceiling", ceiling),
	)
	return minimal, data, nil
}

func (s *Summarizer) build(snap *Snapshot, sampleSize int, includeFull bool) *Summary {
	sum := &Summary{
		GeneratedAt: snap.TakenAt.UTC().Format("2006-01-02"),
		Stats:       buildStats(snap),
	}

	if sampleSize > 0 {
		sum.ProductSamples = head(snap.Products, sampleSize)
		sum.CoverageSamples = head(snap.Coverages, sampleSize)
		sum.FormSamples = head(snap.Forms, sampleSize)
		sum.RuleSamples = head(snap.Rules, sampleSize)
		sum.PricingStepSamples = head(snap.PricingSteps, sampleSize)
		sum.TaskSamples = head(snap.Tasks, sampleSize)
		sum.NewsSamples = head(snap.News, sampleSize)
	}

	if includeFull {
		for _, p := range snap.Products {
			sum.AllProducts = append(sum.AllProducts, FullProduct{
				Name:   p.Name,
				Code:   p.ProductCode,
				Status: string(p.Status),
				States: len(p.AvailableStates),
			})
		}
		for _, c := range snap.Coverages {
			sum.AllCoverages = append(sum.AllCoverages, FullCoverage{
				ProductName:  c.ProductName,
				CoverageCode: c.CoverageCode,
				CoverageName: c.CoverageName,
				ParentName:   c.ParentName,
			})
		}
	}

	return sum
}

func buildStats(snap *Snapshot) Stats {
	st := Stats{
		Products:      len(snap.Products),
		Coverages:     len(snap.Coverages),
		Forms:         len(snap.Forms),
		Rules:         len(snap.Rules),
		PricingSteps:  len(snap.PricingSteps),
		Tasks:         len(snap.Tasks),
		NewsSummaries: len(snap.News),
	}
	for _, p := range snap.Products {
		if p.Status == model.ProductStatusActive {
			st.ActiveProducts++
		}
	}
	for _, t := range snap.Tasks {
		if t.Overdue {
			st.TasksOverdue++
		}
	}
	return st
}

func head[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
