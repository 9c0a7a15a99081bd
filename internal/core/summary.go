package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Amount     decimal.Decimal
}

// MonthTotals is a compact cash summary for one calendar month.
type MonthTotals struct {
	Year         int
	Month        int // 1-12
	Income       decimal.Decimal
	AccountSpend decimal.Decimal
	CardSpend    decimal.Decimal
	TotalSpend   decimal.Decimal
	CashBalance  decimal.Decimal
}
