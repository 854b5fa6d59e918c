// Package analytics derives dashboard figures from ledger transactions.
//
// Every function here is pure and total: it reads only its arguments, never
// touches storage or the clock, and returns zero or empty results for empty
// input or transactions with unusable dates.
package analytics

import (
	"budgetbook/internal/core"
)

// FilterByMonth returns the transactions dated in (year, month), preserving
// input order. Transactions with a malformed date never match.
func FilterByMonth(txs []core.Transaction, year, month int) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if inMonth(t, year, month) {
			out = append(out, t)
		}
	}
	return out
}

func inMonth(t core.Transaction, year, month int) bool {
	y, m, _, ok := t.Date.Parts()
	return ok && y == year && m == month
}

// IncomeSum adds up the positive amounts.
func IncomeSum(txs []core.Transaction) core.Money {
	var sum core.Money
	for _, t := range txs {
		if t.IsIncome() {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

// ExpenseSum is the magnitude of the sum of the negative amounts.
func ExpenseSum(txs []core.Transaction) core.Money {
	var sum core.Money
	for _, t := range txs {
		if t.IsExpense() {
			sum = sum.Add(t.Amount)
		}
	}
	return sum.Abs()
}

// Sum is the signed total, equal to IncomeSum minus ExpenseSum.
func Sum(txs []core.Transaction) core.Money {
	var sum core.Money
	for _, t := range txs {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// SpentToday is the expense magnitude of transactions dated today.
func SpentToday(txs []core.Transaction, today core.Date) core.Money {
	var sum core.Money
	for _, t := range txs {
		if t.IsExpense() && !today.IsZero() && t.Date.Equal(today.Time) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum.Abs()
}
