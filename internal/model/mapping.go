package model

import "github.com/shopspring/decimal"

// MappingMethod indicates how a mapping entry was produced.
type MappingMethod string

// Mapping method constants.
const (
	MethodExact           MappingMethod = "exact"
	MethodFuzzy           MappingMethod = "fuzzy"
	MethodCategoryBoosted MappingMethod = "category-boosted"
	MethodSemantic        MappingMethod = "external-semantic"
	MethodManual          MappingMethod = "manual"
	MethodUnmapped        MappingMethod = "unmapped"
)

// ConfidenceTier buckets a 0-100 confidence score.
type ConfidenceTier string

// Confidence tier constants.
const (
	TierHigh   ConfidenceTier = "High"
	TierMedium ConfidenceTier = "Medium"
	TierLow    ConfidenceTier = "Low"
)

// Tier cutoffs: High >= 90, Medium 70-89, Low < 70.
const (
	HighConfidenceFloor   = 90
	MediumConfidenceFloor = 70
)

// TierFor returns the confidence tier for a 0-100 score.
func TierFor(confidence int) ConfidenceTier {
	switch {
	case confidence >= HighConfidenceFloor:
		return TierHigh
	case confidence >= MediumConfidenceFloor:
		return TierMedium
	default:
		return TierLow
	}
}

// MappingEntry is one label's resolved (or unresolved) correspondence to an
// account. Account is nil for unmapped entries; Value is meaningful only
// when Account is set.
type MappingEntry struct {
	Account    *Account
	Reasoning  string
	Method     MappingMethod
	Label      Label
	Value      decimal.Decimal
	Confidence int
}

// Tier returns the entry's confidence tier.
func (e MappingEntry) Tier() ConfidenceTier {
	return TierFor(e.Confidence)
}

// Mapped reports whether the entry has a matched account.
func (e MappingEntry) Mapped() bool {
	return e.Account != nil
}

// FinalRow is one row of the accepted mapping handed to the rendering
// stage. A nil AccountRaw/Value signals "leave blank / omit line".
type FinalRow struct {
	AccountRaw *string
	Value      *decimal.Decimal
	LabelRaw   string
	Category   Category
	Tier       ConfidenceTier
}
