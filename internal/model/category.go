// Package model defines the core domain models used throughout the application.
package model

// Category is the coarse financial classification used to bias matching.
type Category string

// Category constants, in tie-break priority order.
const (
	CategoryRevenue   Category = "revenue"
	CategoryExpense   Category = "expense"
	CategoryAsset     Category = "asset"
	CategoryLiability Category = "liability"
	CategoryEquity    Category = "equity"
	CategoryUnknown   Category = "unknown"
)

// Known returns true for every category except Unknown.
func (c Category) Known() bool {
	return c != CategoryUnknown && c != ""
}
