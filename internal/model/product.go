// Package model defines the core domain types for the product console.
package model

import "time"

// ProductStatus is the lifecycle state of an insurance product.
type ProductStatus string

const (
	ProductStatusDraft   ProductStatus = "draft"
	ProductStatusActive  ProductStatus = "active"
	ProductStatusFiled   ProductStatus = "filed"
	ProductStatusRetired ProductStatus = "retired"
)

// Product is an insurance product as managed through the console.
type Product struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	ProductCode     string        `json:"productCode"`
	FormNumber      string        `json:"formNumber,omitempty"`
	EffectiveDate   time.Time     `json:"effectiveDate"`
	AvailableStates []string      `json:"availableStates,omitempty"`
	Status          ProductStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// AllProductStatuses returns the valid product statuses.
func AllProductStatuses() []ProductStatus {
	return []ProductStatus{
		ProductStatusDraft,
		ProductStatusActive,
		ProductStatusFiled,
		ProductStatusRetired,
	}
}
