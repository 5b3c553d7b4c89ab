package model

import "github.com/shopspring/decimal"

// AccountReuse records an account referenced by two or more mapping entries.
// Every reuse is reported; deciding whether a shared subtotal is legitimate
// is left to the reviewer.
type AccountReuse struct {
	AccountRaw string
	Labels     []string
	Count      int
}

// LowConfidenceEntry identifies a mapped entry below the High tier.
type LowConfidenceEntry struct {
	LabelRaw   string
	AccountRaw string
	Tier       ConfidenceTier
	Confidence int
}

// BalanceCheck is the advisory balance-sheet identity check over the
// accepted values: assets against liabilities plus equity.
type BalanceCheck struct {
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	Equity      decimal.Decimal
	Difference  decimal.Decimal
	Balanced    bool
}

// ValidationReport is a read-only snapshot derived from a mapping session.
// It is recomputed on demand and never mutated in place.
type ValidationReport struct {
	TierCounts     map[ConfidenceTier]int
	Balance        *BalanceCheck
	ReusedAccounts []AccountReuse
	UnmappedLabels []string
	LowConfidence  []LowConfidenceEntry
	TotalEntries   int
}

// Clean reports whether the session has full coverage with nothing flagged.
func (r ValidationReport) Clean() bool {
	return len(r.UnmappedLabels) == 0 && len(r.ReusedAccounts) == 0 && len(r.LowConfidence) == 0
}
