package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/salscrudato/product-console/internal/config"
	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/pkg/anthropic"
)

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: testAnthropicConfig(),
		Assistant: config.AssistantConfig{
			TokenBudget:       6000,
			SampleSize:        5,
			MaxResponseChars:  8000,
			HistoryWindow:     8,
			SessionTTLMinutes: 30,
		},
	}
}

func TestAskCoverageQuestionIncludesAllCoverages(t *testing.T) {
	cols := fixtureCollections()
	var captured anthropic.MessageRequest

	ai := &mockAI{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(anthropic.MessageRequest)
		}).
		Return(textResponse("**Building** appears most often."), nil)

	p := New(testConfig(), &stubStore{cols: cols}, ai)
	msg, err := p.Ask(context.Background(), "s1", "What coverages are most common?")
	require.NoError(t, err)

	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Contains(t, msg.HTML, "<strong>Building</strong>")
	require.NotNil(t, msg.Meta)
	assert.Contains(t, []model.Intent{model.IntentCoverageAnalysis, model.IntentDataQuery}, msg.Meta.Intent)
	assert.False(t, msg.Meta.Failed)

	// The system prompt's JSON context must list every coverage record.
	require.Len(t, captured.System, 1)
	for _, c := range cols.Coverages {
		assert.Contains(t, captured.System[0].Text, c.CoverageName)
	}

	assert.Equal(t, StateIdle, p.State())
	assert.Len(t, p.Sessions().History("s1"), 2)
}

func TestAskRateLimitErrorYieldsCannedMessage(t *testing.T) {
	ai := &mockAI{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("provider responded with status 429"))

	cols := fixtureCollections()
	p := New(testConfig(), &stubStore{cols: cols}, ai)

	msg, err := p.Ask(context.Background(), "s1", "compare products")
	require.NoError(t, err)

	assert.Equal(t, FailureRateLimited.UserMessage(), msg.Content)
	require.NotNil(t, msg.Meta)
	assert.True(t, msg.Meta.Failed)
	assert.Equal(t, StateIdle, p.State())

	// The failed exchange is still part of the conversation.
	history := p.Sessions().History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
}

func TestAskCancelledContextLeavesSessionUntouched(t *testing.T) {
	ai := &mockAI{}
	cols := fixtureCollections()
	p := New(testConfig(), &stubStore{cols: cols}, ai)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Ask(ctx, "s1", "anything")
	require.Error(t, err)
	assert.Empty(t, p.Sessions().History("s1"))
	assert.Equal(t, StateIdle, p.State())
	ai.AssertNotCalled(t, "CreateMessage")
}

func TestAskStoreFailureYieldsGenericMessage(t *testing.T) {
	ai := &mockAI{}
	p := New(testConfig(), &stubStore{err: eris.New("connection refused")}, ai)

	msg, err := p.Ask(context.Background(), "s1", "anything")
	require.NoError(t, err)
	assert.Equal(t, FailureGeneric.UserMessage(), msg.Content)
	assert.True(t, msg.Meta.Failed)
}

func TestAskCarriesHistoryAcrossTurns(t *testing.T) {
	ai := &mockAI{}
	calls := 0
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			req := args.Get(1).(anthropic.MessageRequest)
			calls++
			if calls == 2 {
				// Second turn carries the first exchange plus the new question.
				assert.Len(t, req.Messages, 3)
			}
		}).
		Return(textResponse("answer"), nil)

	cols := fixtureCollections()
	p := New(testConfig(), &stubStore{cols: cols}, ai)

	_, err := p.Ask(context.Background(), "s1", "first question")
	require.NoError(t, err)
	_, err = p.Ask(context.Background(), "s1", "second question")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSessionsWindowAndExpiry(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions(4, 10*time.Minute, func() time.Time { return clock })

	for i := 0; i < 6; i++ {
		s.Append("s1", model.ChatMessage{Role: model.RoleUser, Content: "m"})
	}
	assert.Len(t, s.History("s1"), 4)

	clock = clock.Add(11 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Empty(t, s.History("s1"))
}
