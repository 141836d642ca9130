// Package aggregate derives display values from a user's expense list.
//
// Every function is pure: inputs are never mutated and nothing is cached here.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"tasca/internal/core"
)

// AllCategories selects every expense in FilterByCategory.
const AllCategories = "All"

var hundred = decimal.NewFromInt(100)

func TotalExpenses(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

func TotalIncome(u core.User) decimal.Decimal {
	return u.MonthlySalary
}

// CategoryBreakdown sums amounts per category label. Labels match exactly
// (case-sensitive) and groups are returned in order of first occurrence.
func CategoryBreakdown(expenses []core.Expense) []core.CategoryAmount {
	index := make(map[string]int)
	out := make([]core.CategoryAmount, 0)
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			index[e.Category] = len(out)
			out = append(out, core.CategoryAmount{Name: e.Category, Amount: e.Amount})
			continue
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// Categories lists the distinct labels in order of first occurrence.
func Categories(expenses []core.Expense) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range expenses {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}

// FilterByCategory returns expenses unchanged for AllCategories, otherwise
// the exact matches in their original order.
func FilterByCategory(expenses []core.Expense, category string) []core.Expense {
	if category == AllCategories {
		return expenses
	}
	out := make([]core.Expense, 0)
	for _, e := range expenses {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// SpendingPercentage is total / income * 100, or 0 when income is 0.
func SpendingPercentage(total, income decimal.Decimal) decimal.Decimal {
	if income.IsZero() {
		return decimal.Zero
	}
	return total.Div(income).Mul(hundred)
}

// SavingsDelta is what is left of income; negative means a deficit.
func SavingsDelta(income, total decimal.Decimal) decimal.Decimal {
	return income.Sub(total)
}

func BudgetExceeded(total, income decimal.Decimal) bool {
	return total.GreaterThan(income)
}

// CategoryShares attaches to each group its percentage of total.
func CategoryShares(breakdown []core.CategoryAmount, total decimal.Decimal) []core.CategoryShare {
	out := make([]core.CategoryShare, 0, len(breakdown))
	for _, c := range breakdown {
		share := core.CategoryShare{Name: c.Name, Amount: c.Amount, Percentage: decimal.Zero}
		if !total.IsZero() {
			share.Percentage = c.Amount.Div(total).Mul(hundred)
		}
		out = append(out, share)
	}
	return out
}

// TopCategory returns the group with the largest amount. Ties go to the
// group seen first.
func TopCategory(breakdown []core.CategoryAmount) (core.CategoryAmount, bool) {
	if len(breakdown) == 0 {
		return core.CategoryAmount{}, false
	}
	top := breakdown[0]
	for _, c := range breakdown[1:] {
		if c.Amount.GreaterThan(top.Amount) {
			top = c
		}
	}
	return top, true
}

// MonthlyTotals sums expenses per calendar month (UTC), oldest first.
func MonthlyTotals(expenses []core.Expense) []core.MonthTotal {
	type key struct{ year, month int }
	totals := make(map[key]decimal.Decimal)
	for _, e := range expenses {
		ts := e.Timestamp.UTC()
		k := key{ts.Year(), int(ts.Month())}
		totals[k] = totals[k].Add(e.Amount)
	}

	out := make([]core.MonthTotal, 0, len(totals))
	for k, total := range totals {
		out = append(out, core.MonthTotal{Year: k.year, Month: k.month, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// TrendPercentage is the relative change from previous to current in
// percent, or 0 when there is no previous spending to compare with.
func TrendPercentage(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(hundred)
}

// Recent returns up to n expenses, newest first. Expenses with equal
// timestamps keep their insertion order reversed, so the later one wins.
func Recent(expenses []core.Expense, n int) []core.Expense {
	if n <= 0 {
		return []core.Expense{}
	}
	out := make([]core.Expense, len(expenses))
	for i, e := range expenses {
		out[len(expenses)-1-i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
