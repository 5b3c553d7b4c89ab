package categorizer

import "github.com/Veraticus/tally-ho/internal/model"

// keywordSet is an ordered keyword table row.
type keywordSet struct {
	Category model.Category
	Keywords []string
}

// defaultKeywords returns the built-in keyword table. Priority order is
// Revenue, Expense, Asset, Liability, Equity; a name hitting keywords in
// two categories resolves to the earlier one.
func defaultKeywords() []keywordSet {
	return []keywordSet{
		{
			Category: model.CategoryRevenue,
			Keywords: []string{
				"revenue", "revenues", "sales", "income", "fee", "fees", "turnover",
			},
		},
		{
			Category: model.CategoryExpense,
			Keywords: []string{
				"expense", "expenses", "cost", "costs", "depreciation",
				"amortization", "amortisation", "interest", "tax", "taxes", "taxation",
			},
		},
		{
			Category: model.CategoryAsset,
			Keywords: []string{
				"asset", "assets", "cash", "receivable", "receivables", "debtors",
				"inventory", "inventories", "prepayments", "property", "equipment",
			},
		},
		{
			Category: model.CategoryLiability,
			Keywords: []string{
				"liability", "liabilities", "payable", "payables", "creditors",
				"loan", "loans", "borrowing", "borrowings", "debt", "overdraft",
			},
		},
		{
			Category: model.CategoryEquity,
			Keywords: []string{
				"equity", "capital", "retained", "reserve", "reserves", "share", "shares",
			},
		},
	}
}
