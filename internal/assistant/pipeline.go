package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salscrudato/product-console/internal/config"
	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/internal/store"
	"github.com/salscrudato/product-console/pkg/anthropic"
)

// State is the pipeline's position in a single submission.
type State string

const (
	StateIdle             State = "idle"
	StateBuildingContext  State = "building-context"
	StateAwaitingResponse State = "awaiting-response"
	StateRendering        State = "rendering"
)

// Pipeline runs one submission end to end: aggregate, summarize, classify,
// build the prompt, dispatch, format. Every dispatcher failure is converted
// into an assistant-authored error message; the pipeline always returns to
// idle.
type Pipeline struct {
	store      store.Store
	sessions   *Sessions
	summarizer *Summarizer
	classifier *Classifier
	prompts    *PromptBuilder
	dispatcher *Dispatcher
	formatter  *Formatter
	now        func() time.Time

	mu    sync.Mutex
	state State
}

// New wires a Pipeline from configuration.
func New(cfg *config.Config, st store.Store, aiClient anthropic.Client) *Pipeline {
	a := cfg.Assistant
	return &Pipeline{
		store:      st,
		sessions:   NewSessions(a.HistoryWindow, time.Duration(a.SessionTTLMinutes)*time.Minute, time.Now),
		summarizer: NewSummarizer(a.TokenBudget, a.SampleSize),
		classifier: NewClassifier(),
		prompts:    NewPromptBuilder(a.HistoryWindow),
		dispatcher: NewDispatcher(aiClient, cfg.Anthropic, cfg.Pricing),
		formatter:  NewFormatter(a.MaxResponseChars),
		now:        time.Now,
		state:      StateIdle,
	}
}

// Sessions exposes the session store for transport handlers.
func (p *Pipeline) Sessions() *Sessions {
	return p.sessions
}

// NewSessionID mints a fresh session identifier.
func (p *Pipeline) NewSessionID() string {
	return p.sessions.NewID()
}

// History returns the retained window of a session's transcript.
func (p *Pipeline) History(sessionID string) []model.ChatMessage {
	return p.sessions.History(sessionID)
}

// State reports the pipeline's current position. Submissions are serialized
// by callers (the UI disables input while one is outstanding); the state is
// advisory, not a lock.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Ask answers one question within a session. Failures surface as the
// returned assistant message with Meta.Failed set, never as a panic or a
// stuck state; the error return is reserved for context cancellation, where
// the session must remain untouched.
func (p *Pipeline) Ask(ctx context.Context, sessionID, query string) (*model.ChatMessage, error) {
	log := zap.L().With(zap.String("session", sessionID))
	defer p.setState(StateIdle)

	p.setState(StateBuildingContext)
	cols, err := LoadCollections(ctx, p.store)
	if err != nil {
		if ctxDone(ctx, err) {
			return nil, err
		}
		log.Error("assistant: context aggregation failed", zap.Error(err))
		return p.fail(sessionID, query, FailureGeneric, Classification{}), nil
	}

	snap := BuildSnapshot(cols, p.now())
	_, contextJSON, err := p.summarizer.Summarize(snap)
	if err != nil {
		log.Error("assistant: summarize failed", zap.Error(err))
		return p.fail(sessionID, query, FailureGeneric, Classification{}), nil
	}

	cls := p.classifier.Classify(query)
	history := p.sessions.History(sessionID)
	prompt := p.prompts.Build(query, cls.Intent, contextJSON, history)

	p.setState(StateAwaitingResponse)
	reply, err := p.dispatcher.Send(ctx, prompt, query, history)
	if err != nil {
		if ctxDone(ctx, err) {
			return nil, err
		}
		kind := ClassifyFailure(err)
		log.Warn("assistant: dispatch failed",
			zap.String("failure_kind", string(kind)),
			zap.String("intent", string(cls.Intent)),
			zap.Error(err),
		)
		return p.fail(sessionID, query, kind, cls), nil
	}

	p.setState(StateRendering)
	htmlOut, truncated, err := p.formatter.Format(reply.Text)
	if err != nil {
		log.Error("assistant: render failed", zap.Error(err))
		return p.fail(sessionID, query, FailureGeneric, cls), nil
	}

	now := p.now()
	assistantMsg := model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   reply.Text,
		HTML:      htmlOut,
		Timestamp: now,
		Meta: &model.MessageMeta{
			Intent:     cls.Intent,
			Confidence: cls.Confidence,
			Usage:      reply.Usage,
			LatencyMS:  reply.LatencyMS,
			CostUSD:    reply.CostUSD,
			Truncated:  truncated,
		},
	}
	p.sessions.Append(sessionID,
		model.ChatMessage{Role: model.RoleUser, Content: query, Timestamp: now},
		assistantMsg,
	)

	return &assistantMsg, nil
}

// fail records the failed exchange and returns the canned error message as
// an assistant turn.
func (p *Pipeline) fail(sessionID, query string, kind FailureKind, cls Classification) *model.ChatMessage {
	now := p.now()
	msg := model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   kind.UserMessage(),
		Timestamp: now,
		Meta: &model.MessageMeta{
			Intent:     cls.Intent,
			Confidence: cls.Confidence,
			Failed:     true,
		},
	}
	p.sessions.Append(sessionID,
		model.ChatMessage{Role: model.RoleUser, Content: query, Timestamp: now},
		msg,
	)
	return &msg
}

// ctxDone reports whether err reflects the caller's context ending.
func ctxDone(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}
