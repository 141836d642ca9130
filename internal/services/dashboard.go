package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tasca/internal/aggregate"
	"tasca/internal/cache"
	"tasca/internal/core"
)

// DefaultRecentLimit is how many expenses a summary lists as recent.
const DefaultRecentLimit = 5

// Dashboard builds the home, insights and reports views of a user.
type Dashboard struct {
	summaries   cache.Cache[string, core.Summary]
	recentLimit int
}

// NewDashboard creates a dashboard. A nil cache disables memoisation.
func NewDashboard(summaries cache.Cache[string, core.Summary], recentLimit int) *Dashboard {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Dashboard{summaries: summaries, recentLimit: recentLimit}
}

// summaryKey changes whenever the summary input does: expenses are only
// ever appended and the salary is part of the key.
func summaryKey(u core.User) string {
	return fmt.Sprintf("%s:%d:%s", u.ID, len(u.Expenses), u.MonthlySalary.String())
}

// Summary returns the totals and insights for u. The result's slices are
// shared with the cache and must not be modified.
func (d *Dashboard) Summary(u core.User) core.Summary {
	key := summaryKey(u)
	if d.summaries != nil {
		if s, ok := d.summaries.Get(key); ok {
			return s
		}
	}

	income := aggregate.TotalIncome(u)
	total := aggregate.TotalExpenses(u.Expenses)
	breakdown := aggregate.CategoryBreakdown(u.Expenses)
	monthly := aggregate.MonthlyTotals(u.Expenses)

	s := core.Summary{
		UserID:             u.ID,
		Income:             income,
		TotalExpenses:      total,
		Savings:            aggregate.SavingsDelta(income, total),
		SpendingPercentage: aggregate.SpendingPercentage(total, income),
		BudgetExceeded:     aggregate.BudgetExceeded(total, income),
		ByCategory:         aggregate.CategoryShares(breakdown, total),
		Monthly:            monthly,
		Trend:              decimal.Zero,
		Recent:             aggregate.Recent(u.Expenses, d.recentLimit),
	}
	if top, ok := aggregate.TopCategory(breakdown); ok {
		s.TopCategory = &top
	}
	if n := len(monthly); n >= 2 {
		s.Trend = aggregate.TrendPercentage(monthly[n-2].Total, monthly[n-1].Total)
	}

	if d.summaries != nil {
		d.summaries.Set(key, s)
	}
	return s
}

// Report narrows u's expenses to category, or keeps them all for
// aggregate.AllCategories.
func (d *Dashboard) Report(u core.User, category string) core.Report {
	if category == "" {
		category = aggregate.AllCategories
	}
	expenses := aggregate.FilterByCategory(u.Expenses, category)
	return core.Report{
		Category:   category,
		Categories: aggregate.Categories(u.Expenses),
		Expenses:   expenses,
		Total:      aggregate.TotalExpenses(expenses),
	}
}
