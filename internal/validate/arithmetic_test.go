package validate

import (
	"testing"

	"github.com/Veraticus/tally-ho/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBalanceBalanced(t *testing.T) {
	entries := []model.MappingEntry{
		mappedEntry("Total Assets", "Total Assets", 95, model.CategoryAsset, 100),
		mappedEntry("Borrowings", "Bank Loans", 90, model.CategoryLiability, 60),
		mappedEntry("Share Capital", "Share Capital", 100, model.CategoryEquity, 40),
	}

	check := CheckBalance(entries, DefaultBalanceTolerance)

	require.NotNil(t, check)
	assert.True(t, check.Balanced)
	assert.True(t, check.Difference.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(check.Assets))
	assert.True(t, decimal.NewFromInt(60).Equal(check.Liabilities))
	assert.True(t, decimal.NewFromInt(40).Equal(check.Equity))
}

func TestCheckBalanceUnbalanced(t *testing.T) {
	entries := []model.MappingEntry{
		mappedEntry("Total Assets", "Total Assets", 95, model.CategoryAsset, 100),
		mappedEntry("Borrowings", "Bank Loans", 90, model.CategoryLiability, 50),
		mappedEntry("Share Capital", "Share Capital", 100, model.CategoryEquity, 40),
	}

	check := CheckBalance(entries, DefaultBalanceTolerance)

	require.NotNil(t, check)
	assert.False(t, check.Balanced)
	assert.True(t, decimal.NewFromInt(10).Equal(check.Difference))
}

func TestCheckBalanceWithinTolerance(t *testing.T) {
	entries := []model.MappingEntry{
		mappedEntry("Total Assets", "Total Assets", 95, model.CategoryAsset, 100),
		mappedEntry("Borrowings", "Bank Loans", 90, model.CategoryLiability, 100),
	}
	// Nudge assets by less than the tolerance.
	entries[0].Value = entries[0].Value.Add(decimal.NewFromFloat(0.005))

	check := CheckBalance(entries, DefaultBalanceTolerance)

	require.NotNil(t, check)
	assert.True(t, check.Balanced)
}

func TestCheckBalanceIncomeStatementOnly(t *testing.T) {
	entries := []model.MappingEntry{
		mappedEntry("Total Revenue", "Revenue from Sales", 95, model.CategoryRevenue, 1000),
		mappedEntry("Operating Expenses", "Operating Expenses", 90, model.CategoryExpense, 400),
		unmappedEntry("Foo Bar Baz"),
	}

	assert.Nil(t, CheckBalance(entries, DefaultBalanceTolerance))
}

func TestCheckBalanceSkipsUnmapped(t *testing.T) {
	entries := []model.MappingEntry{
		mappedEntry("Total Assets", "Total Assets", 95, model.CategoryAsset, 100),
		unmappedEntry("Mystery Liability"),
		mappedEntry("Share Capital", "Share Capital", 100, model.CategoryEquity, 100),
	}

	check := CheckBalance(entries, DefaultBalanceTolerance)

	require.NotNil(t, check)
	assert.True(t, check.Balanced)
}
