package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salscrudato/product-console/internal/model"
)

func TestClassifyKnownIntents(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		query string
		want  model.Intent
	}{
		{"Compare products in our portfolio by effective date", model.IntentProductAnalysis},
		{"What deductible options does the building coverage have?", model.IntentCoverageAnalysis},
		{"Walk me through the premium calculation for BOP", model.IntentPricingAnalysis},
		{"Are we compliant with the Ohio filing requirements?", model.IntentComplianceCheck},
		{"Which tasks are overdue this week?", model.IntentTaskManagement},
		{"What growth opportunity do you see in our line-up?", model.IntentStrategicInsight},
		{"How does our loss ratio break down by claim severity?", model.IntentClaimsAnalysis},
		{"Which iso form attaches to commercial auto?", model.IntentFormAnalysis},
		{"How many records are in the dictionary?", model.IntentDataQuery},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got := c.Classify(tt.query)
			assert.Equal(t, tt.want, got.Intent)
			assert.InDelta(t, 0.95, got.Confidence, 0.001)
		})
	}
}

func TestClassifyFallsBackToGeneral(t *testing.T) {
	c := NewClassifier()

	for _, q := range []string{
		"hello there",
		"what's the weather like",
		"",
		"   ",
	} {
		got := c.Classify(q)
		assert.Equal(t, model.IntentGeneral, got.Intent, "query %q", q)
		assert.InDelta(t, 0.5, got.Confidence, 0.001)
	}
}

func TestClassifyAlwaysReturnsEnumeratedIntent(t *testing.T) {
	c := NewClassifier()
	valid := make(map[model.Intent]bool)
	for _, i := range model.AllIntents() {
		valid[i] = true
	}

	queries := []string{
		"coverage limits for building",
		"price the premium",
		"random nonsense xyzzy",
		"PRODUCT LAUNCH TIMELINE",
		"Résumé of pricing factors",
		"claims and forms and tasks all at once",
	}
	for _, q := range queries {
		got := c.Classify(q)
		assert.True(t, valid[got.Intent], "query %q returned %q", q, got.Intent)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewClassifier()

	// Mentions both coverages and pricing; coverage_analysis precedes
	// pricing_analysis in match order.
	got := c.Classify("How do coverage limits affect the premium rate?")
	assert.Equal(t, model.IntentCoverageAnalysis, got.Intent)
}

func TestClassifyNormalizesDiacritics(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("Détail of the covérage tree")
	assert.Equal(t, model.IntentCoverageAnalysis, got.Intent)
}
