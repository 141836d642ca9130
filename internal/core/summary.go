package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CategoryShare is a category total with its percentage of overall spending.
type CategoryShare struct {
	Name       string
	Amount     decimal.Decimal
	Percentage decimal.Decimal
}

// MonthTotal is the spending of one calendar month.
type MonthTotal struct {
	Year  int
	Month int // 1-12
	Total decimal.Decimal
}

// Summary is everything the home and insights views show for one user.
type Summary struct {
	UserID             string
	Income             decimal.Decimal
	TotalExpenses      decimal.Decimal
	Savings            decimal.Decimal
	SpendingPercentage decimal.Decimal
	BudgetExceeded     bool
	ByCategory         []CategoryShare
	TopCategory        *CategoryAmount
	Monthly            []MonthTotal
	// Trend is the change of the latest month against the one before, in percent.
	Trend  decimal.Decimal
	Recent []Expense
}

// Report is the reports view: expenses narrowed to one category (or All).
type Report struct {
	Category   string
	Categories []string
	Expenses   []Expense
	Total      decimal.Decimal
}
