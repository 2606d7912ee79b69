package model

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Coverage is a coverage grant scoped to a product. Coverages form a tree:
// a coverage with a non-empty ParentCoverageID is a sub-coverage of another
// coverage within the same product.
type Coverage struct {
	ID               string            `json:"id"`
	ProductID        string            `json:"productId"`
	CoverageCode     string            `json:"coverageCode"`
	CoverageName     string            `json:"coverageName"`
	ParentCoverageID string            `json:"parentCoverageId,omitempty"`
	Limits           []decimal.Decimal `json:"limits,omitempty"`
	Deductibles      []decimal.Decimal `json:"deductibles,omitempty"`
	States           []string          `json:"states,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// maxCoverageDepth caps parent-chain walks so a corrupted tree cannot
// spin forever.
const maxCoverageDepth = 64

// ErrValidation marks write-time validation failures so transport layers
// can map them to a client error instead of a 500.
var ErrValidation = eris.New("validation failed")

// IsValidationError reports whether err stems from ErrValidation.
func IsValidationError(err error) bool {
	return eris.Is(err, ErrValidation)
}

// ValidateParent checks that setting cov.ParentCoverageID is legal against
// the given sibling set: the parent must exist, must belong to the same
// product, and the link must not make cov its own ancestor. Cycles are
// rejected at write time rather than documented as accepted risk.
func ValidateParent(cov Coverage, siblings []Coverage) error {
	if cov.ParentCoverageID == "" {
		return nil
	}
	if cov.ParentCoverageID == cov.ID {
		return eris.Wrapf(ErrValidation, "coverage %s cannot be its own parent", cov.ID)
	}

	byID := make(map[string]Coverage, len(siblings))
	for _, s := range siblings {
		byID[s.ID] = s
	}

	parent, ok := byID[cov.ParentCoverageID]
	if !ok {
		return eris.Wrapf(ErrValidation, "parent coverage %s not found", cov.ParentCoverageID)
	}
	if parent.ProductID != cov.ProductID {
		return eris.Wrapf(ErrValidation, "parent coverage %s belongs to product %s, not %s",
			parent.ID, parent.ProductID, cov.ProductID)
	}

	// Walk up from the proposed parent; reaching cov means a cycle.
	cur := parent
	for depth := 0; depth < maxCoverageDepth; depth++ {
		if cur.ParentCoverageID == "" {
			return nil
		}
		if cur.ParentCoverageID == cov.ID {
			return eris.Wrapf(ErrValidation, "coverage %s would become its own ancestor", cov.ID)
		}
		next, ok := byID[cur.ParentCoverageID]
		if !ok {
			return nil
		}
		cur = next
	}
	return eris.Wrapf(ErrValidation, "coverage %s parent chain exceeds depth %d", cov.ID, maxCoverageDepth)
}
