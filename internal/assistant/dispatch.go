package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salscrudato/product-console/internal/config"
	"github.com/salscrudato/product-console/internal/cost"
	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/internal/resilience"
	"github.com/salscrudato/product-console/pkg/anthropic"
)

// FailureKind buckets dispatcher failures into the categories the UI
// surfaces distinctly.
type FailureKind string

const (
	FailureRateLimited   FailureKind = "rate_limited"
	FailureAuth          FailureKind = "auth"
	FailureTimeout       FailureKind = "timeout"
	FailureEmptyResponse FailureKind = "empty_response"
	FailureGeneric       FailureKind = "generic"
)

// userMessages maps each failure kind to the canned text inserted into the
// conversation. These strings are stable; tests and the UI depend on them.
var userMessages = map[FailureKind]string{
	FailureRateLimited:   "The assistant is experiencing high demand right now. Please try again in a moment.",
	FailureAuth:          "The assistant is not configured correctly. Please check the API credentials and try again.",
	FailureTimeout:       "That request took too long. Try simplifying your question.",
	FailureEmptyResponse: "Sorry, something went wrong while generating a response. Please try again.",
	FailureGeneric:       "Sorry, something went wrong while generating a response. Please try again.",
}

// UserMessage returns the canned text for a failure kind.
func (k FailureKind) UserMessage() string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[FailureGeneric]
}

var errEmptyResponse = eris.New("dispatch: model returned no content")

// ClassifyFailure maps a dispatcher error to its failure kind. Message
// sniffing for "429" catches rate limits reported by intermediate proxies
// that do not preserve the typed error.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureGeneric
	case resilience.IsAuth(err):
		return FailureAuth
	case resilience.IsRateLimited(err) || strings.Contains(err.Error(), "429"):
		return FailureRateLimited
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return FailureTimeout
	case errors.Is(err, errEmptyResponse):
		return FailureEmptyResponse
	default:
		return FailureGeneric
	}
}

// Reply is a successful dispatcher result.
type Reply struct {
	Text      string
	Usage     model.TokenUsage
	LatencyMS int64
	CostUSD   float64
}

// Dispatcher sends assembled prompts to the model endpoint with a fixed
// timeout and retry policy. Auth failures are never retried.
type Dispatcher struct {
	client   anthropic.Client
	cfg      config.AnthropicConfig
	costCalc *cost.Calculator
}

// NewDispatcher creates a Dispatcher. rates may be nil, in which case the
// default rate card applies.
func NewDispatcher(client anthropic.Client, cfg config.AnthropicConfig, rates map[string]cost.ModelRate) *Dispatcher {
	if rates == nil {
		rates = cost.DefaultRates()
	}
	return &Dispatcher{
		client:   client,
		cfg:      cfg,
		costCalc: cost.NewCalculator(rates),
	}
}

// Send dispatches one question with its system prompt and prior turns.
// History must already be windowed by the caller.
func (d *Dispatcher) Send(ctx context.Context, systemPrompt, query string, history []model.ChatMessage) (*Reply, error) {
	messages := make([]anthropic.Message, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, anthropic.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	messages = append(messages, anthropic.Message{Role: "user", Content: query})

	req := anthropic.MessageRequest{
		Model:     d.cfg.Model,
		MaxTokens: int64(d.cfg.MaxTokens),
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:  messages,
	}

	timeout := time.Duration(d.cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	retryCfg := resilience.DefaultRetryConfig()
	if d.cfg.MaxAttempts > 0 {
		retryCfg.MaxAttempts = d.cfg.MaxAttempts
	}
	retryCfg.ShouldRetry = func(err error) bool {
		return !resilience.IsAuth(err) && resilience.IsTransient(err)
	}
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	start := time.Now()
	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return d.client.CreateMessage(callCtx, req)
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: create message")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyResponse
	}

	usage := model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}
	costUSD := d.costCalc.Chat(d.cfg.Model, usage, false)

	zap.L().Debug("dispatch: reply received",
		zap.Int64("latency_ms", latency),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Float64("cost_usd", costUSD),
	)

	return &Reply{
		Text:      text,
		Usage:     usage,
		LatencyMS: latency,
		CostUSD:   costUSD,
	}, nil
}
