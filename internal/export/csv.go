// Package export renders the ledger as a two-section table: transactions,
// a blank separator row, then budgets. The same rows feed the CSV writer
// and the Google Sheets publisher.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
)

var ErrInvalidFormat = errors.New("invalid export format")

var (
	TransactionHeader = []string{"Date", "Description", "Category", "Amount", "Type", "Payment Method", "Created At"}
	BudgetHeader      = []string{"Year", "Month", "Total", "Category", "Budget"}
)

const (
	labelIncome  = "Income"
	labelExpense = "Expense"
)

// Rows builds the full table. Each budget contributes a total row followed
// by one row per category.
func Rows(txs []core.Transaction, budgets []core.MonthlyBudget) [][]string {
	rows := make([][]string, 0, len(txs)+len(budgets)+3)
	rows = append(rows, slices.Clone(TransactionHeader))
	for _, tx := range txs {
		rows = append(rows, transactionRow(tx))
	}
	rows = append(rows, []string{})
	rows = append(rows, slices.Clone(BudgetHeader))
	for _, b := range budgets {
		year, month := strconv.Itoa(b.Year), strconv.Itoa(b.Month)
		rows = append(rows, []string{year, month, b.Total.String(), "", ""})
		for _, c := range b.Categories {
			rows = append(rows, []string{year, month, "", c.Category, c.Amount.String()})
		}
	}
	return rows
}

func transactionRow(tx core.Transaction) []string {
	label := labelExpense
	if tx.IsIncome() {
		label = labelIncome
	}
	created := ""
	if !tx.CreatedAt.IsZero() {
		created = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		tx.Date.String(),
		tx.Description,
		tx.Category,
		tx.Amount.String(),
		label,
		tx.PaymentMethod,
		created,
	}
}

// WriteCSV writes the table to w.
func WriteCSV(w io.Writer, txs []core.Transaction, budgets []core.MonthlyBudget) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(txs, budgets)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ParseTransactions reads the transaction section of an export. Reading
// stops at the budget header.
func ParseTransactions(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrInvalidFormat, err)
	}
	if !slices.Equal(header, TransactionHeader) {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrInvalidFormat, header)
	}

	var txs []core.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if slices.Equal(rec, BudgetHeader) {
			break
		}
		tx, err := parseTransactionRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseTransactionRow(rec []string) (core.Transaction, error) {
	if len(rec) != len(TransactionHeader) {
		return core.Transaction{}, fmt.Errorf("%w: %d fields", ErrInvalidFormat, len(rec))
	}
	var date core.Date
	if rec[0] != "" {
		d, err := core.ParseDate(rec[0])
		if err != nil {
			return core.Transaction{}, err
		}
		date = d
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rec[3]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount %q", core.ErrInvalidAmount, rec[3])
	}
	tx := core.Transaction{
		Date:          date,
		Description:   rec[1],
		Category:      rec[2],
		Amount:        core.MoneyFromDecimal(amount),
		PaymentMethod: rec[5],
	}
	if rec[6] != "" {
		created, err := time.Parse(time.RFC3339, rec[6])
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: created at %q", ErrInvalidFormat, rec[6])
		}
		tx.CreatedAt = created
		tx.UpdatedAt = created
	}
	return tx, nil
}
