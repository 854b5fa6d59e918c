package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
)

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

// CategoryBreakdown groups the month's expenses by category and sums their
// magnitudes. Categories without expenses are omitted. The result is ordered
// by amount descending, then by name.
func CategoryBreakdown(txs []core.Transaction, year, month int) []CategoryAmount {
	totals := expenseByCategory(txs, year, month)
	out := make([]CategoryAmount, 0, len(totals))
	for name, amt := range totals {
		out = append(out, CategoryAmount{Category: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CategoryGrid reports the month's expense magnitude for each of the given
// categories, in the given order, with zero for categories without
// spending.
func CategoryGrid(txs []core.Transaction, year, month int, categories []string) []CategoryAmount {
	totals := expenseByCategory(txs, year, month)
	out := make([]CategoryAmount, 0, len(categories))
	for _, name := range categories {
		out = append(out, CategoryAmount{Category: name, Amount: totals[name]})
	}
	return out
}

func expenseByCategory(txs []core.Transaction, year, month int) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, t := range txs {
		if !t.IsExpense() || !inMonth(t, year, month) {
			continue
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount.Abs())
	}
	return totals
}

// CategoryProgress pairs a budgeted category with what was actually spent.
type CategoryProgress struct {
	Category  string     `json:"category"`
	Icon      string     `json:"icon,omitempty"`
	Budgeted  core.Money `json:"budgeted"`
	Spent     core.Money `json:"spent"`
	Remaining core.Money `json:"remaining"`
	Percent   float64    `json:"percent"`
	Over      bool       `json:"over"`
}

// BudgetProgress walks the budget's categories in order and pairs each with
// the expense total for that category in the budget's month. Spending in
// categories the budget does not list is ignored.
func BudgetProgress(budget core.MonthlyBudget, txs []core.Transaction) []CategoryProgress {
	totals := expenseByCategory(txs, budget.Year, budget.Month)
	out := make([]CategoryProgress, 0, len(budget.Categories))
	for _, cb := range budget.Categories {
		spent := totals[cb.Category]
		out = append(out, CategoryProgress{
			Category:  cb.Category,
			Icon:      cb.Icon,
			Budgeted:  cb.Amount,
			Spent:     spent,
			Remaining: cb.Amount.Add(spent.Neg()),
			Percent:   percentOf(spent, cb.Amount),
			Over:      spent.Cents > cb.Amount.Cents,
		})
	}
	return out
}

// BudgetStatus summarizes a whole month's budget.
type BudgetStatus struct {
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	Total      core.Money         `json:"total"`
	Spent      core.Money         `json:"spent"`
	Remaining  core.Money         `json:"remaining"`
	Percent    float64            `json:"percent"`
	Categories []CategoryProgress `json:"categories"`
}

// Status compares the budget total against all expenses of its month.
func Status(budget core.MonthlyBudget, txs []core.Transaction) BudgetStatus {
	spent := ExpenseSum(FilterByMonth(txs, budget.Year, budget.Month))
	return BudgetStatus{
		Year:       budget.Year,
		Month:      budget.Month,
		Total:      budget.Total,
		Spent:      spent,
		Remaining:  budget.Total.Add(spent.Neg()),
		Percent:    percentOf(spent, budget.Total),
		Categories: BudgetProgress(budget, txs),
	}
}

// percentOf is part/whole*100 rounded to one decimal. A zero whole yields
// 100 when anything was spent and 0 otherwise.
func percentOf(part, whole core.Money) float64 {
	if whole.Cents <= 0 {
		if part.Cents > 0 {
			return 100
		}
		return 0
	}
	p := decimal.NewFromInt(part.Cents).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole.Cents)).
		Round(1)
	return p.InexactFloat64()
}
