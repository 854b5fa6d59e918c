package analytics

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
)

// MonthPoint is one month of a trailing series.
type MonthPoint struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

// MonthlySeries returns n consecutive months ending at (year, month), oldest
// first, rolling back across year boundaries.
func MonthlySeries(txs []core.Transaction, year, month, n int) []MonthPoint {
	if n <= 0 {
		return nil
	}
	type bucket struct{ income, expense core.Money }
	buckets := make(map[string]*bucket)
	for _, t := range txs {
		y, m, _, ok := t.Date.Parts()
		if !ok {
			continue
		}
		key := core.MonthKey(y, m)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		switch {
		case t.IsIncome():
			b.income = b.income.Add(t.Amount)
		case t.IsExpense():
			b.expense = b.expense.Add(t.Amount.Abs())
		}
	}

	start := time.Date(year, time.Month(month)-time.Month(n-1), 1, 0, 0, 0, 0, time.UTC)
	out := make([]MonthPoint, 0, n)
	for i := 0; i < n; i++ {
		t := start.AddDate(0, i, 0)
		p := MonthPoint{
			Key:   core.MonthKey(t.Year(), int(t.Month())),
			Label: t.Format("Jan"),
			Year:  t.Year(),
			Month: int(t.Month()),
		}
		if b := buckets[p.Key]; b != nil {
			p.Income = b.income
			p.Expense = b.expense
		}
		p.Net = p.Income.Add(p.Expense.Neg())
		out = append(out, p)
	}
	return out
}

// AverageMonthlyIncome averages the income of the n months ending at
// (year, month), counting only months with strictly positive income. It is
// zero when no month qualifies.
func AverageMonthlyIncome(txs []core.Transaction, year, month, n int) core.Money {
	var (
		total decimal.Decimal
		count int64
	)
	for _, p := range MonthlySeries(txs, year, month, n) {
		if p.Income.Cents > 0 {
			total = total.Add(p.Income.Decimal())
			count++
		}
	}
	if count == 0 {
		return core.Money{}
	}
	return core.MoneyFromDecimal(total.Div(decimal.NewFromInt(count)))
}

// Direction classifies a month-over-month change for display.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Neutral Direction = "neutral"
)

// Change is a month-over-month comparison ready for display.
type Change struct {
	Text      string    `json:"text"`
	Direction Direction `json:"direction"`
	Percent   float64   `json:"percent"`
}

var neutralChange = Change{Text: "0%", Direction: Neutral}

// neutralBand is the largest absolute percentage still shown as no change.
const neutralBand = 0.5

// MonthOverMonthChange classifies the move from previous to current.
//
// The percentage is relative to the magnitude of previous, so a negative
// balance that shrinks towards zero reads as an increase. Changes within
// half a percent are neutral. The text carries one decimal at most, with a
// trailing ".0" dropped, and an explicit sign.
func MonthOverMonthChange(current, previous float64) Change {
	if !finite(current) || !finite(previous) {
		return neutralChange
	}
	if previous == 0 {
		if current == 0 {
			return neutralChange
		}
		return Change{Text: "+100%", Direction: Up, Percent: 100}
	}
	pct := (current - previous) / math.Abs(previous) * 100
	if !finite(pct) || math.Abs(pct) <= neutralBand {
		return neutralChange
	}
	rounded := decimal.NewFromFloat(math.Abs(pct)).Round(1)
	text := strings.TrimSuffix(rounded.StringFixed(1), ".0") + "%"
	if pct > 0 {
		return Change{Text: "+" + text, Direction: Up, Percent: rounded.InexactFloat64()}
	}
	return Change{Text: "-" + text, Direction: Down, Percent: -rounded.InexactFloat64()}
}

// CompareMoney is MonthOverMonthChange over two money amounts.
func CompareMoney(current, previous core.Money) Change {
	return MonthOverMonthChange(current.Float(), previous.Float())
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
