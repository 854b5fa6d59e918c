package core

import (
	"errors"
	"strings"
	"time"
)

const maxDescriptionLength = 200

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrMissingEntry       = errors.New("missing income or expense amount")
	ErrNotFound           = errors.New("not found")
)

// Meta carries identity and timestamps for records kept in the ledger.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m Meta) RecordID() string { return m.ID }

func (m Meta) Created() time.Time { return m.CreatedAt }

// Stamp assigns identity and creation time to a new record.
func (m *Meta) Stamp(id string, now time.Time) {
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
}

func (m *Meta) Touch(now time.Time) { m.UpdatedAt = now }

// Transaction is one ledger line. Amount is signed: negative for expenses,
// positive for income. The sign is the only source of truth for direction.
type Transaction struct {
	Meta
	Description   string `json:"description"`
	Category      string `json:"category"`
	Amount        Money  `json:"amount"`
	Icon          string `json:"icon,omitempty"`
	Date          Date   `json:"date"`
	PaymentMethod string `json:"paymentMethod,omitempty"`

	// LegacyIsPositive is read from old records and never consulted.
	LegacyIsPositive *bool `json:"isPositive,omitempty"`
}

func (t Transaction) IsIncome() bool  { return t.Amount.Cents > 0 }
func (t Transaction) IsExpense() bool { return t.Amount.Cents < 0 }

// Entry is the income-or-expense choice made when a transaction is recorded.
// Both variants carry a positive magnitude; Signed folds it into the stored
// representation.
type Entry interface {
	Signed() Money
	Magnitude() Money
	isEntry()
}

type Income struct{ Amount Money }

type Expense struct{ Amount Money }

func (i Income) Signed() Money    { return i.Amount.Abs() }
func (i Income) Magnitude() Money { return i.Amount }
func (Income) isEntry()           {}

func (e Expense) Signed() Money    { return e.Amount.Abs().Neg() }
func (e Expense) Magnitude() Money { return e.Amount }
func (Expense) isEntry()           {}

// EntryOf recovers the variant of a stored transaction. Zero amounts read as
// an empty Expense.
func EntryOf(t Transaction) Entry {
	if t.IsIncome() {
		return Income{Amount: t.Amount}
	}
	return Expense{Amount: t.Amount.Abs()}
}

// TransactionDraft is validated user input for adding or editing a
// transaction.
type TransactionDraft struct {
	Entry         Entry
	Description   string
	Category      string
	Icon          string
	Date          Date
	PaymentMethod string
}

func (d TransactionDraft) Validate() error {
	if d.Entry == nil {
		return ErrMissingEntry
	}
	if err := d.Entry.Magnitude().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrEmptyDescription
	}
	if len(d.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	return d.Date.Validate()
}

// ApplyTo copies the draft onto t, leaving identity and timestamps alone.
func (d TransactionDraft) ApplyTo(t *Transaction) {
	t.Amount = d.Entry.Signed()
	t.Description = strings.TrimSpace(d.Description)
	t.Category = strings.TrimSpace(d.Category)
	t.Icon = d.Icon
	t.Date = d.Date
	t.PaymentMethod = strings.TrimSpace(d.PaymentMethod)
}

// Transaction builds an unsaved transaction from the draft.
func (d TransactionDraft) Transaction() Transaction {
	var t Transaction
	d.ApplyTo(&t)
	return t
}
