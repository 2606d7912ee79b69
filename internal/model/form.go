package model

import "time"

// Form is a policy form filed with regulators, attachable to products and
// coverages through join records.
type Form struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FormNumber string    `json:"formNumber"`
	Category   string    `json:"category,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FormLink attaches a form to a product and, optionally, a specific coverage.
type FormLink struct {
	ID         string `json:"id"`
	FormID     string `json:"formId"`
	ProductID  string `json:"productId"`
	CoverageID string `json:"coverageId,omitempty"`
}
