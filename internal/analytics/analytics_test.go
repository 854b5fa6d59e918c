package analytics

import (
	"testing"
	"time"

	"budgetbook/internal/core"
)

func tx(date string, cents int64, category string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{
		Meta:        core.Meta{ID: date + category},
		Description: category,
		Category:    category,
		Amount:      core.Money{Cents: cents},
		Date:        d,
	}
}

func TestSumIdentity(t *testing.T) {
	lists := [][]core.Transaction{
		nil,
		{tx("2025-01-01", 0, "Zero")},
		{tx("2025-01-01", 1000, "Pay"), tx("2025-01-02", -250, "Food"), tx("2025-01-03", -1, "Fee")},
		{tx("2025-01-01", -500, "Food"), tx("bad", -700, "Food")},
	}
	for i, l := range lists {
		inc, exp, sum := IncomeSum(l), ExpenseSum(l), Sum(l)
		if inc.Cents-exp.Cents != sum.Cents {
			t.Errorf("list %d: income %d - expense %d != sum %d", i, inc.Cents, exp.Cents, sum.Cents)
		}
		if inc.Cents < 0 || exp.Cents < 0 {
			t.Errorf("list %d: sums must be non-negative", i)
		}
	}
	if got := IncomeSum([]core.Transaction{tx("2025-01-01", 0, "Zero")}); got.Cents != 0 {
		t.Errorf("zero amount counted as income: %d", got.Cents)
	}
}

func TestFilterByMonth(t *testing.T) {
	all := []core.Transaction{
		tx("2025-01-31", -100, "A"),
		tx("2025-02-01", -200, "B"),
		tx("2024-01-15", -300, "C"),
		tx("2025-01-01", 400, "D"),
		tx("not-a-date", -500, "E"),
	}
	got := FilterByMonth(all, 2025, 1)
	if len(got) != 2 || got[0].Category != "A" || got[1].Category != "D" {
		t.Fatalf("FilterByMonth = %+v", got)
	}
	if got := FilterByMonth(nil, 2025, 1); len(got) != 0 {
		t.Fatalf("empty input should give empty output")
	}
	if got := FilterByMonth(all, 1, 1); len(got) != 0 {
		t.Fatalf("zero dates must not match year 1: %+v", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-01-05", -5000, "Food"),
		tx("2025-01-06", -3000, "Food"),
		tx("2025-01-07", 10000, "Salary"),
	}
	got := CategoryBreakdown(txs, 2025, 1)
	if len(got) != 1 || got[0].Category != "Food" || got[0].Amount.Cents != 8000 {
		t.Fatalf("CategoryBreakdown = %+v", got)
	}

	got = CategoryBreakdown(append(txs, tx("2025-01-08", -9000, "Rent"), tx("2025-02-01", -1, "Food")), 2025, 1)
	if len(got) != 2 || got[0].Category != "Rent" || got[1].Amount.Cents != 8000 {
		t.Fatalf("ordering = %+v", got)
	}
}

func TestCategoryGridZeroFills(t *testing.T) {
	txs := []core.Transaction{tx("2025-01-05", -5000, "Food")}
	got := CategoryGrid(txs, 2025, 1, []string{"Rent", "Food"})
	if len(got) != 2 || got[0].Amount.Cents != 0 || got[1].Amount.Cents != 5000 {
		t.Fatalf("CategoryGrid = %+v", got)
	}
}

func TestMonthOverMonthChange(t *testing.T) {
	cases := []struct {
		name      string
		cur, prev float64
		text      string
		dir       Direction
	}{
		{"both zero", 0, 0, "0%", Neutral},
		{"from zero", 50, 0, "+100%", Up},
		{"ten up", 110, 100, "+10%", Up},
		{"ten down", 90, 100, "-10%", Down},
		{"tiny change", 100.4, 100, "0%", Neutral},
		{"one decimal", 112.36, 100, "+12.4%", Up},
		{"negative previous improving", -50, -100, "+50%", Up},
		{"negative previous worsening", -150, -100, "-50%", Down},
		{"to zero", 0, 100, "-100%", Down},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MonthOverMonthChange(tc.cur, tc.prev)
			if got.Text != tc.text || got.Direction != tc.dir {
				t.Fatalf("MonthOverMonthChange(%v, %v) = %+v, want %s %s", tc.cur, tc.prev, got, tc.text, tc.dir)
			}
		})
	}
}

func TestMonthlySeriesRollsAcrossYears(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-11-10", 1000, "Pay"),
		tx("2024-12-10", -300, "Food"),
		tx("2025-02-10", -200, "Food"),
	}
	got := MonthlySeries(txs, 2025, 2, 4)
	keys := []string{"2024-11", "2024-12", "2025-01", "2025-02"}
	if len(got) != len(keys) {
		t.Fatalf("len = %d", len(got))
	}
	for i, k := range keys {
		if got[i].Key != k {
			t.Errorf("point %d key = %s, want %s", i, got[i].Key, k)
		}
	}
	if got[0].Income.Cents != 1000 || got[1].Expense.Cents != 300 || got[3].Net.Cents != -200 {
		t.Errorf("series values = %+v", got)
	}
	if got[1].Label != "Dec" || got[1].Year != 2024 || got[1].Month != 12 {
		t.Errorf("label/year/month = %+v", got[1])
	}
	if MonthlySeries(txs, 2025, 2, 0) != nil {
		t.Errorf("n=0 should be empty")
	}
}

func TestAverageMonthlyIncome(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-02-01", 20000, "Pay"),
		tx("2025-03-01", 40000, "Pay"),
		tx("2025-03-02", -5000, "Food"),
	}
	if got := AverageMonthlyIncome(txs, 2025, 3, 3); got.Cents != 30000 {
		t.Fatalf("average = %d, want 30000", got.Cents)
	}
	if got := AverageMonthlyIncome(nil, 2025, 3, 3); got.Cents != 0 {
		t.Fatalf("average of nothing = %d", got.Cents)
	}
}

func TestBudgetProgress(t *testing.T) {
	budget := core.MonthlyBudget{
		Year: 2025, Month: 1, Total: core.Money{Cents: 100000},
		Categories: []core.CategoryBudget{
			{Category: "Rent", Amount: core.Money{Cents: 60000}},
			{Category: "Food", Amount: core.Money{Cents: 20000}},
			{Category: "Fun", Amount: core.Money{Cents: 5000}},
		},
	}
	txs := []core.Transaction{
		tx("2025-01-03", -25000, "Food"),
		tx("2025-01-04", -60000, "Rent"),
		tx("2025-01-05", -999, "Travel"),
		tx("2024-12-31", -5000, "Fun"),
	}
	got := BudgetProgress(budget, txs)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	want := []struct {
		cat   string
		spent int64
		over  bool
	}{{"Rent", 60000, false}, {"Food", 25000, true}, {"Fun", 0, false}}
	for i, w := range want {
		if got[i].Category != w.cat || got[i].Spent.Cents != w.spent || got[i].Over != w.over {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], w)
		}
	}
	if got[1].Percent != 125 || got[1].Remaining.Cents != -5000 {
		t.Errorf("food percent/remaining = %v/%d", got[1].Percent, got[1].Remaining.Cents)
	}
}

func TestSpentToday(t *testing.T) {
	today := core.NewDate(2025, 5, 10)
	txs := []core.Transaction{
		tx("2025-05-10", -300, "Food"),
		tx("2025-05-10", 5000, "Pay"),
		tx("2025-05-09", -700, "Food"),
	}
	if got := SpentToday(txs, today); got.Cents != 300 {
		t.Fatalf("SpentToday = %d", got.Cents)
	}
}

func TestGroupByDate(t *testing.T) {
	today := core.NewDate(2025, 5, 10)
	base := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	older := tx("2025-05-10", -100, "Old")
	older.UpdatedAt = base
	newer := tx("2025-05-10", -200, "New")
	newer.UpdatedAt = base.Add(time.Hour)
	txs := []core.Transaction{
		tx("2025-05-01", -1, "May1"),
		older,
		tx("2025-05-09", -1, "Yesterday"),
		tx("2025-05-05", -1, "May5"),
		newer,
		tx("2025-05-12", -1, "Future"),
		tx("junk", -1, "Junk"),
	}
	groups := GroupByDate(txs, today)
	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}
	want := []string{"Today", "Yesterday", "Mon, May 12, 2025", "Mon, May 5, 2025", "Thu, May 1, 2025", "Unknown date"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v", labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
	if groups[0].Transactions[0].Category != "New" || groups[0].Total.Cents != -300 {
		t.Errorf("today group = %+v", groups[0])
	}
}

func TestGroupByDateTiesByID(t *testing.T) {
	stamp := time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)
	b := tx("2025-05-05", -1, "B")
	a := tx("2025-05-05", -2, "A")
	b.UpdatedAt, a.UpdatedAt = stamp, stamp

	groups := GroupByDate([]core.Transaction{b, a}, core.NewDate(2025, 5, 10))
	if len(groups) != 1 || len(groups[0].Transactions) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if got := groups[0].Transactions; got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("order = %s, %s", got[0].ID, got[1].ID)
	}
}

func TestDueReminders(t *testing.T) {
	today := core.NewDate(2025, 4, 28)
	rs := []core.CreditCardReminder{
		{Meta: core.Meta{ID: "late"}, DueDay: 30, ReminderDaysBefore: 5, Active: true},
		{Meta: core.Meta{ID: "now"}, DueDay: 28, ReminderDaysBefore: 0, Active: true},
		{Meta: core.Meta{ID: "off"}, DueDay: 28, ReminderDaysBefore: 0, Active: false},
		{Meta: core.Meta{ID: "far"}, DueDay: 15, ReminderDaysBefore: 3, Active: true},
	}
	got := DueReminders(rs, today)
	if len(got) != 2 || got[0].ID != "now" || got[1].ID != "late" {
		t.Fatalf("DueReminders = %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	budget := core.MonthlyBudget{Year: 2025, Month: 3, Total: core.Money{Cents: 10000},
		Categories: []core.CategoryBudget{{Category: "Food", Amount: core.Money{Cents: 5000}}}}
	txs := []core.Transaction{
		tx("2025-02-01", 10000, "Pay"),
		tx("2025-03-01", 11000, "Pay"),
		tx("2025-03-02", -4000, "Food"),
	}
	s := Summarize(Input{Transactions: txs, Year: 2025, Month: 3, Budget: &budget, Today: core.NewDate(2025, 3, 2), TrendMonths: 3})
	if s.Income.Cents != 11000 || s.Expense.Cents != 4000 || s.Net.Cents != 7000 {
		t.Fatalf("totals = %+v", s)
	}
	if s.IncomeChange.Text != "+10%" || s.ExpenseChange.Text != "+100%" {
		t.Errorf("changes = %+v %+v", s.IncomeChange, s.ExpenseChange)
	}
	if len(s.Series) != 3 || s.SpentToday.Cents != 4000 || s.TransactionCount != 2 {
		t.Errorf("series/today/count = %d/%d/%d", len(s.Series), s.SpentToday.Cents, s.TransactionCount)
	}
	if s.Budget == nil || s.Budget.Spent.Cents != 4000 || s.Budget.Categories[0].Percent != 80 {
		t.Errorf("budget = %+v", s.Budget)
	}

	empty := Summarize(Input{Year: 2025, Month: 1})
	if empty.Income.Cents != 0 || len(empty.Categories) != 0 || empty.IncomeChange.Direction != Neutral {
		t.Errorf("empty summary = %+v", empty)
	}
}
