package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"budgetbook/internal/core"
)

func sampleTransactions() []core.Transaction {
	created := time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)
	a := core.Transaction{
		Description:   `Dinner, "La Trattoria"`,
		Category:      "Food",
		Amount:        core.Money{Cents: -4550},
		Date:          core.NewDate(2025, 3, 1),
		PaymentMethod: "Credit Card",
	}
	a.ID, a.CreatedAt = "t1", created
	b := core.Transaction{
		Description: "Salary\nMarch",
		Category:    "Income",
		Amount:      core.Money{Cents: 250000},
		Date:        core.NewDate(2025, 3, 3),
	}
	b.ID = "t2"
	return []core.Transaction{a, b}
}

func TestWriteCSVLayout(t *testing.T) {
	budgets := []core.MonthlyBudget{{
		Year: 2025, Month: 3, Total: core.Money{Cents: 150000},
		Categories: []core.CategoryBudget{{Category: "Food", Amount: core.Money{Cents: 40000}}},
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTransactions(), budgets); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"Date,Description,Category,Amount,Type,Payment Method,Created At",
		`2025-03-01,"Dinner, ""La Trattoria""",Food,-45.50,Expense,Credit Card,2025-03-02T09:30:00Z`,
		"2025-03-03,\"Salary\nMarch\",Income,2500.00,Income,,",
		"",
		"Year,Month,Total,Category,Budget",
		"2025,3,1500.00,,",
		"2025,3,,Food,400.00",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("csv mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := sampleTransactions()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, in, []core.MonthlyBudget{{Year: 2025, Month: 1}}); err != nil {
		t.Fatal(err)
	}

	out, err := ParseTransactions(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("parsed %d transactions, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Date.String() != in[i].Date.String() ||
			out[i].Description != in[i].Description ||
			out[i].Category != in[i].Category ||
			out[i].Amount != in[i].Amount ||
			out[i].PaymentMethod != in[i].PaymentMethod {
			t.Errorf("row %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
	if !out[0].CreatedAt.Equal(in[0].CreatedAt) {
		t.Errorf("created at = %v", out[0].CreatedAt)
	}
}

func TestParseTransactionsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrInvalidFormat},
		{"wrong header", "a,b,c\n", ErrInvalidFormat},
		{"bad amount", "Date,Description,Category,Amount,Type,Payment Method,Created At\n2025-01-01,x,y,abc,Expense,,\n", core.ErrInvalidAmount},
		{"bad date", "Date,Description,Category,Amount,Type,Payment Method,Created At\n2025-02-30,x,y,1.00,Income,,\n", core.ErrInvalidDate},
		{"short row", "Date,Description,Category,Amount,Type,Payment Method,Created At\n2025-01-01,x\n", ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTransactions(strings.NewReader(tt.in)); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
