package model

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the coarse classification assigned to a user's question. The
// enumeration and its match order are load-bearing: downstream prompt
// instructions are keyed by intent, and callers rely on first-match-wins
// with IntentGeneral as the fallback.
type Intent string

const (
	IntentProductAnalysis  Intent = "product_analysis"
	IntentCoverageAnalysis Intent = "coverage_analysis"
	IntentPricingAnalysis  Intent = "pricing_analysis"
	IntentComplianceCheck  Intent = "compliance_check"
	IntentTaskManagement   Intent = "task_management"
	IntentStrategicInsight Intent = "strategic_insight"
	IntentClaimsAnalysis   Intent = "claims_analysis"
	IntentFormAnalysis     Intent = "form_analysis"
	IntentDataQuery        Intent = "data_query"
	IntentGeneral          Intent = "general"
)

// AllIntents returns every intent in classifier match order. IntentGeneral
// is last and is only ever assigned as a fallback.
func AllIntents() []Intent {
	return []Intent{
		IntentProductAnalysis,
		IntentCoverageAnalysis,
		IntentPricingAnalysis,
		IntentComplianceCheck,
		IntentTaskManagement,
		IntentStrategicInsight,
		IntentClaimsAnalysis,
		IntentFormAnalysis,
		IntentDataQuery,
		IntentGeneral,
	}
}

// TokenUsage accumulates token counts across assistant calls.
type TokenUsage struct {
	InputTokens         int `json:"inputTokens"`
	OutputTokens        int `json:"outputTokens"`
	CacheCreationTokens int `json:"cacheCreationTokens,omitempty"`
	CacheReadTokens     int `json:"cacheReadTokens,omitempty"`
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// MessageMeta carries diagnostics attached to an assistant reply. It is
// informational only; rendering does not depend on it.
type MessageMeta struct {
	Intent     Intent     `json:"intent,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Usage      TokenUsage `json:"usage"`
	LatencyMS  int64      `json:"latencyMs,omitempty"`
	CostUSD    float64    `json:"costUsd,omitempty"`
	Truncated  bool       `json:"truncated,omitempty"`
	Failed     bool       `json:"failed,omitempty"`
}

// ChatMessage is a single message in an assistant conversation. Messages are
// ephemeral: they live in the session store for the life of a session and
// are never persisted.
type ChatMessage struct {
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	HTML      string       `json:"html,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Meta      *MessageMeta `json:"meta,omitempty"`
}
