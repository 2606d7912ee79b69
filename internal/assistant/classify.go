package assistant

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/salscrudato/product-console/internal/model"
)

const (
	matchConfidence    = 0.95
	fallbackConfidence = 0.5
)

// Classification labels a free-text question with a coarse intent.
type Classification struct {
	Intent     model.Intent `json:"intent"`
	Confidence float64      `json:"confidence"`
}

// intentKeywords maps each intent to the phrases that select it. Matching
// walks model.AllIntents() in order and the first intent with any matching
// phrase wins, so earlier intents shadow later ones (e.g. "coverage limits"
// hits coverage_analysis before data_query ever sees it).
var intentKeywords = map[model.Intent][]string{
	model.IntentProductAnalysis: {
		"product line", "product portfolio", "product mix", "which products",
		"compare products", "product status", "effective date", "new product",
		"launch", "product",
	},
	model.IntentCoverageAnalysis: {
		"coverage", "sub-coverage", "subcoverage", "limit", "deductible",
		"peril", "endorsement", "exclusion", "insured against",
	},
	model.IntentPricingAnalysis: {
		"pricing", "price", "rate", "rating", "premium", "factor",
		"loss cost", "actuarial", "surcharge", "discount",
	},
	model.IntentComplianceCheck: {
		"compliance", "compliant", "regulation", "regulatory", "filing",
		"filed", "doi", "statute", "state requirement", "admitted",
	},
	model.IntentTaskManagement: {
		"task", "todo", "to-do", "deadline", "due date", "overdue",
		"assignee", "assigned", "workload", "milestone",
	},
	model.IntentStrategicInsight: {
		"strategy", "strategic", "market position", "competitive",
		"opportunity", "growth", "trend", "outlook", "recommend",
	},
	model.IntentClaimsAnalysis: {
		"claim", "claims", "loss ratio", "severity", "frequency",
		"reserve", "subrogation", "adjuster",
	},
	model.IntentFormAnalysis: {
		"form", "forms", "iso form", "form number", "attachment",
		"policy language", "wording",
	},
	model.IntentDataQuery: {
		"how many", "count", "list all", "show me", "which states",
		"what is the", "lookup", "look up", "most common", "average",
	},
}

// Classifier assigns one intent per question. Match order and the fallback
// to IntentGeneral are fixed; callers depend on them.
type Classifier struct{}

// NewClassifier returns a ready classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify normalizes the question and returns the first intent whose
// keyword set matches. Unmatched questions get IntentGeneral with a lower
// confidence.
func (c *Classifier) Classify(query string) Classification {
	q := normalizeQuery(query)

	for _, intent := range model.AllIntents() {
		if intent == model.IntentGeneral {
			break
		}
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(q, kw) {
				return Classification{Intent: intent, Confidence: matchConfidence}
			}
		}
	}
	return Classification{Intent: model.IntentGeneral, Confidence: fallbackConfidence}
}

// stripMarks removes diacritics so "résumé" style input matches plain
// keyword sets.
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

func normalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if out, _, err := transform.String(stripMarks, q); err == nil {
		q = out
	}
	return q
}
