package services

import (
	"context"
	"fmt"
	"time"

	"budgetbook/internal/analytics"
	"budgetbook/internal/cache"
	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// AnalyticsService feeds ledger contents to the analytics engine and
// memoizes summaries until the ledger changes.
type AnalyticsService struct {
	store       *ledger.Store
	budgets     *BudgetService
	summaries   *cache.LRUCache[analytics.Summary]
	trendMonths int
	today       func() core.Date
}

func NewAnalyticsService(store *ledger.Store, budgets *BudgetService, summaries *cache.LRUCache[analytics.Summary], trendMonths int) *AnalyticsService {
	return &AnalyticsService{
		store:       store,
		budgets:     budgets,
		summaries:   summaries,
		trendMonths: trendMonths,
		today:       func() core.Date { return core.DateOf(time.Now()) },
	}
}

// WithToday replaces the clock used for "today".
func (s *AnalyticsService) WithToday(today func() core.Date) *AnalyticsService {
	s.today = today
	return s
}

func (s *AnalyticsService) Today() core.Date { return s.today() }

// Summary returns the dashboard summary for (year, month).
func (s *AnalyticsService) Summary(ctx context.Context, year, month int) (analytics.Summary, error) {
	if month < 1 || month > 12 {
		return analytics.Summary{}, core.ErrInvalidMonth
	}
	today := s.today()
	key := fmt.Sprintf("%d:%s:%s", s.store.Version(), core.MonthKey(year, month), today)

	compute := func() analytics.Summary {
		in := analytics.Input{
			Transactions: s.store.Transactions().List(ctx),
			Year:         year,
			Month:        month,
			Today:        today,
			TrendMonths:  s.trendMonths,
		}
		if b, ok := s.budgets.Get(ctx, year, month); ok {
			in.Budget = &b
		}
		return analytics.Summarize(in)
	}
	if s.summaries == nil {
		return compute(), nil
	}
	return s.summaries.GetOrCompute(key, compute), nil
}

// Grouped returns one month's transactions grouped by day.
func (s *AnalyticsService) Grouped(ctx context.Context, year, month int) []analytics.DateGroup {
	txs := analytics.FilterByMonth(s.store.Transactions().List(ctx), year, month)
	return analytics.GroupByDate(txs, s.today())
}

// Grid returns the month's expense per category for every known category,
// including those with nothing spent.
func (s *AnalyticsService) Grid(ctx context.Context, year, month int, categories []string) []analytics.CategoryAmount {
	return analytics.CategoryGrid(s.store.Transactions().List(ctx), year, month, categories)
}
