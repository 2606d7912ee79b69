package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingStep is a single step in a product's ordered rating calculation.
// StepOrder determines execution order; the console displays the steps but
// does not evaluate them.
type PricingStep struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	StepOrder int             `json:"stepOrder"`
	Name      string          `json:"name"`
	Operand   string          `json:"operand,omitempty"` // "+", "-", "*", "/", "="
	Value     decimal.Decimal `json:"value"`
	Table     string          `json:"table,omitempty"` // rating table reference
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Rule is free-text business rule, optionally scoped to a product.
type Rule struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
