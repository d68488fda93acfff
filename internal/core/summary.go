package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthTotal is the total of one month.
type MonthTotal struct {
	Month MonthKey        `json:"month"`
	Total decimal.Decimal `json:"total"`
}
