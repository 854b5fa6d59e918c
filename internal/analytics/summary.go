package analytics

import (
	"budgetbook/internal/core"
)

// DefaultTrendMonths is the length of the trailing series when the caller
// does not pick one.
const DefaultTrendMonths = 6

// Input is everything Summarize looks at.
type Input struct {
	Transactions []core.Transaction
	Year         int
	Month        int
	Budget       *core.MonthlyBudget
	Today        core.Date
	TrendMonths  int
}

// Summary is the dashboard snapshot for one month.
type Summary struct {
	Year             int              `json:"year"`
	Month            int              `json:"month"`
	Income           core.Money       `json:"income"`
	Expense          core.Money       `json:"expense"`
	Net              core.Money       `json:"net"`
	IncomeChange     Change           `json:"incomeChange"`
	ExpenseChange    Change           `json:"expenseChange"`
	NetChange        Change           `json:"netChange"`
	Categories       []CategoryAmount `json:"categories"`
	Series           []MonthPoint     `json:"series"`
	AverageIncome    core.Money       `json:"averageIncome"`
	SpentToday       core.Money       `json:"spentToday"`
	TransactionCount int              `json:"transactionCount"`
	Budget           *BudgetStatus    `json:"budget,omitempty"`
}

// Summarize computes the month's aggregates, the comparison with the month
// before, the trailing series and, when a budget is given, its progress.
func Summarize(in Input) Summary {
	n := in.TrendMonths
	if n <= 0 {
		n = DefaultTrendMonths
	}
	if n < 2 {
		n = 2
	}
	series := MonthlySeries(in.Transactions, in.Year, in.Month, n)
	cur, prev := series[len(series)-1], series[len(series)-2]

	s := Summary{
		Year:             in.Year,
		Month:            in.Month,
		Income:           cur.Income,
		Expense:          cur.Expense,
		Net:              cur.Net,
		IncomeChange:     CompareMoney(cur.Income, prev.Income),
		ExpenseChange:    CompareMoney(cur.Expense, prev.Expense),
		NetChange:        CompareMoney(cur.Net, prev.Net),
		Categories:       CategoryBreakdown(in.Transactions, in.Year, in.Month),
		Series:           series,
		AverageIncome:    AverageMonthlyIncome(in.Transactions, in.Year, in.Month, n),
		SpentToday:       SpentToday(in.Transactions, in.Today),
		TransactionCount: len(FilterByMonth(in.Transactions, in.Year, in.Month)),
	}
	if in.Budget != nil && in.Budget.Year == in.Year && in.Budget.Month == in.Month {
		st := Status(*in.Budget, in.Transactions)
		s.Budget = &st
	}
	return s
}
