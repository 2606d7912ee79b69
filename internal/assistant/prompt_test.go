package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salscrudato/product-console/internal/model"
)

func TestBuildIsDeterministic(t *testing.T) {
	b := NewPromptBuilder(8)
	contextJSON := []byte(`{"stats":{"products":2}}`)
	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "first question", Timestamp: time.Now()},
		{Role: model.RoleAssistant, Content: "first answer", Timestamp: time.Now()},
	}

	first := b.Build("what changed?", model.IntentProductAnalysis, contextJSON, history)
	second := b.Build("what changed?", model.IntentProductAnalysis, contextJSON, history)
	assert.Equal(t, first, second)
}

func TestBuildContainsAllSections(t *testing.T) {
	b := NewPromptBuilder(8)
	prompt := b.Build("count coverages", model.IntentDataQuery, []byte(`{"stats":{}}`), nil)

	assert.Contains(t, prompt, persona)
	assert.Contains(t, prompt, intentInstructions[model.IntentDataQuery])
	assert.Contains(t, prompt, `{"stats":{}}`)
	assert.Contains(t, prompt, formattingInstructions)
	assert.True(t, strings.HasSuffix(prompt, "count coverages"))
	assert.NotContains(t, prompt, "## Recent conversation")
}

func TestBuildWindowsHistory(t *testing.T) {
	b := NewPromptBuilder(2)
	var history []model.ChatMessage
	for _, content := range []string{"one", "two", "three", "four"} {
		history = append(history, model.ChatMessage{Role: model.RoleUser, Content: content})
	}

	prompt := b.Build("q", model.IntentGeneral, []byte(`{}`), history)
	assert.NotContains(t, prompt, "user: one\n")
	assert.NotContains(t, prompt, "user: two\n")
	assert.Contains(t, prompt, "user: three\n")
	assert.Contains(t, prompt, "user: four\n")
}

func TestBuildUnknownIntentFallsBackToGeneral(t *testing.T) {
	b := NewPromptBuilder(8)
	prompt := b.Build("q", model.Intent("made_up"), []byte(`{}`), nil)
	require.Contains(t, prompt, intentInstructions[model.IntentGeneral])
}

func TestEveryIntentHasInstructions(t *testing.T) {
	for _, intent := range model.AllIntents() {
		assert.NotEmpty(t, intentInstructions[intent], "intent %s", intent)
	}
}
