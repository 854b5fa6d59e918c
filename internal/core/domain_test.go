package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-13-01", false},
		{"2025-1-1", false},
		{"", false},
		{"yesterday", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && (err != nil || d.String() != tc.in) {
			t.Fatalf("%q expected ok, got %v (%s)", tc.in, err, d)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateJSONIsLenient(t *testing.T) {
	var rows []struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`[{"date":"2025-03-04"},{"date":"garbage"},{"date":null}]`), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rows[0].Date.Equal(NewDate(2025, 3, 4).Time) {
		t.Errorf("first date = %v", rows[0].Date)
	}
	if !rows[1].Date.IsZero() || !rows[2].Date.IsZero() {
		t.Errorf("malformed dates should decode to zero")
	}
	if _, _, _, ok := rows[1].Date.Parts(); ok {
		t.Errorf("zero date should report !ok")
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := map[[2]int]int{
		{2024, 2}:  29,
		{2025, 2}:  28,
		{2025, 4}:  30,
		{2025, 12}: 31,
	}
	for in, want := range cases {
		if got := DaysInMonth(in[0], in[1]); got != want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", in[0], in[1], got, want)
		}
	}
}

func TestEntrySigns(t *testing.T) {
	if got := (Income{Amount: Money{Cents: 500}}).Signed(); got.Cents != 500 {
		t.Errorf("income signed = %d", got.Cents)
	}
	if got := (Expense{Amount: Money{Cents: 500}}).Signed(); got.Cents != -500 {
		t.Errorf("expense signed = %d", got.Cents)
	}
	if _, ok := EntryOf(Transaction{Amount: Money{Cents: -300}}).(Expense); !ok {
		t.Errorf("negative amount should be an expense")
	}
	if _, ok := EntryOf(Transaction{Amount: Money{Cents: 300}}).(Income); !ok {
		t.Errorf("positive amount should be income")
	}
}

func TestLegacyIsPositiveIgnored(t *testing.T) {
	var tx Transaction
	raw := `{"id":"a","description":"Refund","category":"Food","amount":-12,"date":"2025-01-02","isPositive":true}`
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		t.Fatal(err)
	}
	if !tx.IsExpense() || tx.IsIncome() {
		t.Errorf("sign must decide direction, got amount %d", tx.Amount.Cents)
	}
}

func TestTransactionDraftValidate(t *testing.T) {
	good := TransactionDraft{
		Entry:       Expense{Amount: Money{Cents: 100}},
		Description: "ok",
		Category:    "Food",
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TransactionDraft)
		want   error
	}{
		{"missing entry", func(d *TransactionDraft) { d.Entry = nil }, ErrMissingEntry},
		{"zero amount", func(d *TransactionDraft) { d.Entry = Income{} }, ErrInvalidAmount},
		{"empty description", func(d *TransactionDraft) { d.Description = "  " }, ErrEmptyDescription},
		{"long description", func(d *TransactionDraft) { d.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
		{"empty category", func(d *TransactionDraft) { d.Category = "" }, ErrEmptyCategory},
		{"zero date", func(d *TransactionDraft) { d.Date = Date{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := good
			tc.mutate(&d)
			if err := d.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	tx := good.Transaction()
	if tx.Amount.Cents != -100 || tx.Category != "Food" {
		t.Errorf("Transaction() = %+v", tx)
	}
}

func TestReminderIsDue(t *testing.T) {
	cases := []struct {
		name  string
		r     CreditCardReminder
		today Date
		want  bool
	}{
		{"clamped due day inside window", CreditCardReminder{DueDay: 31, ReminderDaysBefore: 3, Active: true}, NewDate(2025, 4, 29), true},
		{"one day before with zero lead", CreditCardReminder{DueDay: 15, ReminderDaysBefore: 0, Active: true}, NewDate(2025, 4, 14), false},
		{"on the due day", CreditCardReminder{DueDay: 15, ReminderDaysBefore: 0, Active: true}, NewDate(2025, 4, 15), true},
		{"wraps across month end", CreditCardReminder{DueDay: 2, ReminderDaysBefore: 3, Active: true}, NewDate(2025, 4, 30), true},
		{"outside window", CreditCardReminder{DueDay: 20, ReminderDaysBefore: 3, Active: true}, NewDate(2025, 4, 10), false},
		{"inactive", CreditCardReminder{DueDay: 15, ReminderDaysBefore: 5, Active: false}, NewDate(2025, 4, 15), false},
		{"february clamp", CreditCardReminder{DueDay: 30, ReminderDaysBefore: 0, Active: true}, NewDate(2025, 2, 28), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.IsDue(tc.today); got != tc.want {
				t.Fatalf("IsDue = %v, want %v (days until due %d)", got, tc.want, tc.r.DaysUntilDue(tc.today))
			}
		})
	}
}

func TestMonthlyBudgetValidate(t *testing.T) {
	b := MonthlyBudget{Year: 2025, Month: 1, Total: Money{Cents: 1000}, Categories: []CategoryBudget{
		{Category: "Food", Amount: Money{Cents: 500}},
		{Category: "Fun", Amount: Money{Cents: 200}},
	}}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	b.Categories = append(b.Categories, CategoryBudget{Category: "Food"})
	if err := b.Validate(); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := (MonthlyBudget{Year: 2025, Month: 13}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected month error, got %v", err)
	}
}

func TestPaymentMethods(t *testing.T) {
	got := NormalizePaymentMethods([]string{" Cash", "cash", "", "Card"})
	if strings.Join(got, ",") != "Cash,Card" {
		t.Fatalf("normalize = %v", got)
	}
	got, err := AddPaymentMethod(got, "PayPal")
	if err != nil || strings.Join(got, ",") != "Cash,Card,PayPal" {
		t.Fatalf("add = %v, %v", got, err)
	}
	if _, err := AddPaymentMethod(got, " "); !errors.Is(err, ErrEmptyPaymentMethod) {
		t.Fatalf("expected empty error, got %v", err)
	}
	got = RemovePaymentMethod(got, "card")
	if strings.Join(got, ",") != "Cash,PayPal" {
		t.Fatalf("remove = %v", got)
	}
}
