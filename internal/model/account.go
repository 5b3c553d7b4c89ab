package model

import "github.com/shopspring/decimal"

// Account is a named current-period figure. Accounts form a flat pool; two
// raw names that normalize identically remain distinct accounts.
type Account struct {
	Raw        string
	Normalized string
	Category   Category
	Value      decimal.Decimal
}

// AccountInput is a raw account row before normalization and category
// inference.
type AccountInput struct {
	Name  string
	Value decimal.Decimal
}
