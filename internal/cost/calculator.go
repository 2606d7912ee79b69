// Package cost computes estimated spend for assistant API usage.
package cost

import (
	"go.uber.org/zap"

	"github.com/salscrudato/product-console/internal/model"
)

// ModelRate holds per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// DefaultRates returns pricing for the models the console uses out of the box.
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"claude-haiku-4-5-20251001": {
			Input: 0.80, Output: 4.00,
			BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
		"claude-sonnet-4-5-20250929": {
			Input: 3.00, Output: 15.00,
			BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
	}
}

// Calculator estimates USD cost from token usage.
type Calculator struct {
	rates map[string]ModelRate
}

// NewCalculator creates a Calculator. Unknown models cost 0.
func NewCalculator(rates map[string]ModelRate) *Calculator {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Calculator{rates: rates}
}

// Chat computes the cost of a single chat completion.
func (c *Calculator) Chat(modelID string, usage model.TokenUsage, isBatch bool) float64 {
	rate, ok := c.rates[modelID]
	if !ok {
		return 0
	}

	mul := 1.0
	if isBatch && rate.BatchDiscount > 0 {
		mul = rate.BatchDiscount
	}

	inCost := (float64(usage.InputTokens) / 1e6) * rate.Input * mul
	outCost := (float64(usage.OutputTokens) / 1e6) * rate.Output * mul
	cwCost := (float64(usage.CacheCreationTokens) / 1e6) * rate.Input * rate.CacheWriteMul * mul
	crCost := (float64(usage.CacheReadTokens) / 1e6) * rate.Input * rate.CacheReadMul * mul
	return inCost + outCost + cwCost + crCost
}

// LogChat logs token usage and estimated cost for one assistant call.
func (c *Calculator) LogChat(modelID, phase string, usage model.TokenUsage, isBatch bool) {
	zap.L().Info("cost attribution",
		zap.String("model", modelID),
		zap.String("phase", phase),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Int("cache_write_tokens", usage.CacheCreationTokens),
		zap.Int("cache_read_tokens", usage.CacheReadTokens),
		zap.Bool("batch", isBatch),
		zap.Float64("estimated_cost_usd", c.Chat(modelID, usage, isBatch)),
	)
}
