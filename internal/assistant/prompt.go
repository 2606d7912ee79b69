package assistant

import (
	"strings"

	"github.com/salscrudato/product-console/internal/model"
)

const persona = `You are an insurance product management analyst embedded in a P&C carrier's product console. You have a JSON snapshot of the carrier's current products, coverages, forms, rules, pricing steps, tasks, and recent industry news. Ground every answer in that snapshot; when the data does not support an answer, say so rather than guessing.`

const formattingInstructions = `Format your reply as GitHub-flavored markdown. Use headings for distinct topics, tables for record comparisons, and bullet lists for enumerations. Keep the answer focused; do not restate the full context.`

// intentInstructions holds the canned instruction paragraph for each intent.
// Every intent in the enumeration has an entry; general gets the broadest.
var intentInstructions = map[model.Intent]string{
	model.IntentProductAnalysis:  `Focus on the product portfolio: line-up composition, status distribution, effective dates, and state availability. Compare products when the question names more than one.`,
	model.IntentCoverageAnalysis: `Focus on coverages: the coverage tree per product, sub-coverage relationships, limit and deductible structures, and state applicability. Call out coverages that appear across multiple products.`,
	model.IntentPricingAnalysis:  `Focus on pricing: the ordered calculation steps per product, operands and factors, and referenced rating tables. Note where step ordering changes the outcome.`,
	model.IntentComplianceCheck:  `Focus on regulatory posture: filing status, state availability versus filed states, and rules that read like regulatory requirements. Flag products available in states with no matching filing signal.`,
	model.IntentTaskManagement:   `Focus on the task list: overdue items, assignee workload, and phase distribution. Order recommendations by urgency.`,
	model.IntentStrategicInsight: `Take a portfolio-level view: gaps in the line-up, concentration risk by state or line, and signals from recent industry news. Offer at most three concrete recommendations.`,
	model.IntentClaimsAnalysis:   `Focus on claims exposure implied by the coverage and limit structure. The snapshot carries no claims records, so reason from coverage design and say so explicitly.`,
	model.IntentFormAnalysis:     `Focus on forms: numbering, categories, and which products each form attaches to. Point out products with no attached forms.`,
	model.IntentDataQuery:        `Answer the question directly from the snapshot with exact counts and record names. Prefer a table when more than three records are involved. Do not editorialize.`,
	model.IntentGeneral:          `Answer helpfully using whatever parts of the snapshot are relevant. If the question is unrelated to the product data, answer briefly and note that the console data was not needed.`,
}

// PromptBuilder assembles the system prompt for a single submission. It is
// pure: identical inputs produce byte-identical output.
type PromptBuilder struct {
	HistoryWindow int
}

// NewPromptBuilder applies the default history window for non-positive values.
func NewPromptBuilder(historyWindow int) *PromptBuilder {
	if historyWindow <= 0 {
		historyWindow = 8
	}
	return &PromptBuilder{HistoryWindow: historyWindow}
}

// Build produces the full system prompt from the question, its classified
// intent, the serialized context summary, and recent conversation history.
func (b *PromptBuilder) Build(query string, intent model.Intent, contextJSON []byte, history []model.ChatMessage) string {
	instructions, ok := intentInstructions[intent]
	if !ok {
		instructions = intentInstructions[model.IntentGeneral]
	}

	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\n## Task\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n## Current data snapshot\n```json\n")
	sb.Write(contextJSON)
	sb.WriteString("\n```\n")

	if recent := tail(history, b.HistoryWindow); len(recent) > 0 {
		sb.WriteString("\n## Recent conversation\n")
		for _, msg := range recent {
			sb.WriteString(string(msg.Role))
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n## Formatting\n")
	sb.WriteString(formattingInstructions)
	sb.WriteString("\n\n## Question\n")
	sb.WriteString(query)

	return sb.String()
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
