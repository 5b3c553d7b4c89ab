package validate

import (
	"github.com/Veraticus/tally-ho/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultBalanceTolerance absorbs rounding drift in source figures.
var DefaultBalanceTolerance = decimal.NewFromFloat(0.01)

// CheckBalance sums mapped values by label category and tests the balance
// sheet identity: assets against liabilities plus equity. It returns nil
// when no balance sheet entry is mapped, since the identity is meaningless
// for a pure income statement.
func CheckBalance(entries []model.MappingEntry, tolerance decimal.Decimal) *model.BalanceCheck {
	var assets, liabilities, equity decimal.Decimal
	seen := false

	for i := range entries {
		entry := &entries[i]
		if !entry.Mapped() {
			continue
		}
		switch entry.Label.Category {
		case model.CategoryAsset:
			assets = assets.Add(entry.Value)
			seen = true
		case model.CategoryLiability:
			liabilities = liabilities.Add(entry.Value)
			seen = true
		case model.CategoryEquity:
			equity = equity.Add(entry.Value)
			seen = true
		case model.CategoryRevenue, model.CategoryExpense, model.CategoryUnknown:
			// Income statement figures do not enter the identity.
		}
	}

	if !seen {
		return nil
	}

	difference := assets.Sub(liabilities.Add(equity))
	return &model.BalanceCheck{
		Assets:      assets,
		Liabilities: liabilities,
		Equity:      equity,
		Difference:  difference,
		Balanced:    difference.Abs().LessThanOrEqual(tolerance),
	}
}
