// Package ingest reads statement templates and trial balances from disk.
package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/model"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// accountRow is the on-disk shape of one trial balance line.
type accountRow struct {
	Name  string `csv:"name"`
	Value string `csv:"value"`
}

// ReadAccounts loads a two-column trial balance CSV with a name,value
// header. Values accept thousands separators, currency symbols, and the
// parenthesis convention for negatives. Duplicate names are kept; each row
// is its own account.
func ReadAccounts(path string) ([]model.AccountInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var rows []*accountRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, common.ErrNoAccounts)
	}

	accounts := make([]model.AccountInput, 0, len(rows))
	for i, row := range rows {
		name := stripBOM(strings.TrimSpace(row.Name))
		if name == "" {
			return nil, common.NewMalformedInputError(fmt.Sprintf("accounts row %d has an empty name", i+1))
		}
		value, err := ParseAmount(row.Value)
		if err != nil {
			return nil, common.NewMalformedInputError(fmt.Sprintf("account %q has a non-numeric value %q", name, row.Value))
		}
		accounts = append(accounts, model.AccountInput{Name: name, Value: value})
	}
	return accounts, nil
}

// ParseAmount converts a display amount to a decimal. Parenthesized
// amounts are negative; commas, apostrophes, spaces, and common currency
// symbols are stripped before parsing.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount := strings.TrimSpace(raw)
	if amount == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(amount, "(") && strings.HasSuffix(amount, ")") {
		negative = true
		amount = strings.TrimSpace(amount[1 : len(amount)-1])
	}

	for _, junk := range []string{",", "'", " ", "$", "£", "€"} {
		amount = strings.ReplaceAll(amount, junk, "")
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", raw, err)
	}
	if negative {
		value = value.Neg()
	}
	return value, nil
}

// stripBOM drops the UTF-8 byte order mark spreadsheet exports often lead
// with.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
