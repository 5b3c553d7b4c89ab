// Package testutil provides shared fixtures for tests that need realistic
// labels, accounts, and session records.
package testutil

import (
	"time"

	"github.com/Veraticus/tally-ho/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amount builds a decimal from a display string and panics on bad input.
// Test fixtures only.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// StatementLabels is a small but representative template: income statement
// lines plus balance sheet totals, including a duplicate row.
func StatementLabels() []string {
	return []string{
		"Total Revenue",
		"Cost of Sales",
		"Net Income",
		"Total Assets",
		"Total Liabilities",
		"Total Equity",
		"Total Assets",
	}
}

// TrialBalance mirrors the shape of a real current-period extract, with
// coded names and a parenthesis negative already resolved to a sign.
func TrialBalance() []model.AccountInput {
	return []model.AccountInput{
		{Name: "40050 - Trade Sales", Value: Amount("500000")},
		{Name: "Cost of Goods Sold", Value: Amount("-320000")},
		{Name: "Profit After Tax", Value: Amount("85000")},
		{Name: "Total Assets", Value: Amount("910000")},
		{Name: "Total Liabilities", Value: Amount("410000")},
		{Name: "Total Equity", Value: Amount("500000")},
	}
}

// Account builds a pool account with its derived fields filled in by hand,
// for tests that bypass the engine's preparation step.
func Account(raw, normalized string, category model.Category, value string) model.Account {
	return model.Account{
		Raw:        raw,
		Normalized: normalized,
		Category:   category,
		Value:      Amount(value),
	}
}

// MappedEntry builds an entry resolved onto the given account.
func MappedEntry(label model.Label, account model.Account, confidence int, method model.MappingMethod) model.MappingEntry {
	return model.MappingEntry{
		Label:      label,
		Account:    &account,
		Value:      account.Value,
		Confidence: confidence,
		Method:     method,
	}
}

// UnmappedEntry builds an entry with no account.
func UnmappedEntry(label model.Label) model.MappingEntry {
	return model.MappingEntry{
		Label:  label,
		Method: model.MethodUnmapped,
	}
}

// SessionRecord assembles a persistable record around the given entries,
// using the standard trial balance as the account pool.
func SessionRecord(entries []model.MappingEntry, accounts []model.Account) *model.SessionRecord {
	return &model.SessionRecord{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Accounts:  accounts,
		Entries:   entries,
	}
}
