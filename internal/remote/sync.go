package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"budgetbook/internal/core"
)

// AccountTypeFor guesses the account type from a payment-method label.
func AccountTypeFor(label string) AccountType {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "credit"):
		return AccountCreditCard
	case strings.Contains(l, "cash"):
		return AccountCash
	case strings.Contains(l, "wallet"), strings.Contains(l, "paypal"), strings.Contains(l, "pay"):
		return AccountEWallet
	default:
		return AccountBank
	}
}

// EnsureCategory returns the household's category with name and type,
// creating it on first use.
func (b *Bridge) EnsureCategory(ctx context.Context, householdID, name string, typ CategoryType, icon string) (Category, error) {
	return ensureCategory(b.db.WithContext(ctx), householdID, name, typ, icon)
}

func ensureCategory(db *gorm.DB, householdID, name string, typ CategoryType, icon string) (Category, error) {
	var c Category
	err := db.Where(Category{HouseholdID: householdID, Name: strings.TrimSpace(name), Type: typ}).
		Attrs(Category{Icon: icon}).
		FirstOrCreate(&c).Error
	if err != nil {
		return Category{}, fmt.Errorf("ensure category %q: %w", name, err)
	}
	return c, nil
}

// EnsureAccount returns the household's account named label, creating it
// with an inferred type on first use.
func (b *Bridge) EnsureAccount(ctx context.Context, householdID, label string) (Account, error) {
	return ensureAccount(b.db.WithContext(ctx), householdID, label)
}

func ensureAccount(db *gorm.DB, householdID, label string) (Account, error) {
	var a Account
	label = strings.TrimSpace(label)
	err := db.Where(Account{HouseholdID: householdID, Name: label}).
		Attrs(Account{Type: AccountTypeFor(label)}).
		FirstOrCreate(&a).Error
	if err != nil {
		return Account{}, fmt.Errorf("ensure account %q: %w", label, err)
	}
	return a, nil
}

// UpsertTransaction writes tx keyed by its ledger id, resolving its
// category and payment method to household rows.
func (b *Bridge) UpsertTransaction(ctx context.Context, id Identity, tx core.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("upsert transaction: %w", core.ErrNotFound)
	}
	return b.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		typ := CategoryExpense
		if tx.IsIncome() {
			typ = CategoryIncome
		}

		row := Transaction{
			HouseholdID: id.HouseholdID,
			ClientID:    &tx.ID,
			Type:        typ,
			Amount:      tx.Amount.Abs().Decimal(),
			Description: tx.Description,
			Icon:        tx.Icon,
			Date:        tx.Date.Time,
			CreatedBy:   id.UserID,
		}
		if tx.Category != "" {
			c, err := ensureCategory(db, id.HouseholdID, tx.Category, typ, tx.Icon)
			if err != nil {
				return err
			}
			row.CategoryID = &c.ID
		}
		if tx.PaymentMethod != "" {
			a, err := ensureAccount(db, id.HouseholdID, tx.PaymentMethod)
			if err != nil {
				return err
			}
			row.AccountID = &a.ID
		}
		if !tx.CreatedAt.IsZero() {
			row.CreatedAt = tx.CreatedAt
		}
		if !tx.UpdatedAt.IsZero() {
			row.UpdatedAt = tx.UpdatedAt
		}

		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_id", "category_id", "type", "amount", "description", "icon", "date", "updated_at",
			}),
		}).Omit(clause.Associations).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert transaction %s: %w", tx.ID, err)
		}
		return nil
	})
}

// DeleteTransaction removes the remote row for a ledger id. Deleting an
// unknown id is not an error.
func (b *Bridge) DeleteTransaction(ctx context.Context, id Identity, clientID string) error {
	err := b.db.WithContext(ctx).
		Where("household_id = ? AND client_id = ?", id.HouseholdID, clientID).
		Delete(&Transaction{}).Error
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", clientID, err)
	}
	return nil
}

// PullTransactions downloads every transaction of the household in ledger
// form. Rows created elsewhere without a ledger id use their remote id.
func (b *Bridge) PullTransactions(ctx context.Context, id Identity) ([]core.Transaction, error) {
	var rows []Transaction
	err := b.db.WithContext(ctx).
		Preload("Category").Preload("Account").
		Where("household_id = ?", id.HouseholdID).
		Order("date DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pull transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toLedger())
	}
	return out, nil
}

func (r Transaction) toLedger() core.Transaction {
	tx := core.Transaction{
		Description: r.Description,
		Icon:        r.Icon,
		Date:        core.DateOf(r.Date),
	}
	tx.ID = r.ID
	if r.ClientID != nil && *r.ClientID != "" {
		tx.ID = *r.ClientID
	}
	tx.CreatedAt = r.CreatedAt.UTC()
	tx.UpdatedAt = r.UpdatedAt.UTC()

	amount := core.MoneyFromDecimal(r.Amount).Abs()
	if r.Type == CategoryIncome {
		tx.Amount = amount
	} else {
		tx.Amount = amount.Neg()
	}
	if r.Category != nil {
		tx.Category = r.Category.Name
	}
	if r.Account != nil {
		tx.PaymentMethod = r.Account.Name
	}
	return tx
}

// UpsertBudget replaces the household's budget rows for the month of b
// with one row per category budget.
func (b *Bridge) UpsertBudget(ctx context.Context, id Identity, budget core.MonthlyBudget) error {
	err := b.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Where("household_id = ? AND year = ? AND month = ?", id.HouseholdID, budget.Year, budget.Month).
			Delete(&Budget{}).Error; err != nil {
			return err
		}
		for _, cb := range budget.Categories {
			c, err := ensureCategory(db, id.HouseholdID, cb.Category, CategoryExpense, cb.Icon)
			if err != nil {
				return err
			}
			row := Budget{
				HouseholdID: id.HouseholdID,
				CategoryID:  c.ID,
				Month:       budget.Month,
				Year:        budget.Year,
				Amount:      cb.Amount.Decimal(),
			}
			if err := db.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert budget %s: %w", budget.Key(), err)
	}
	return nil
}

func (b *Bridge) DeleteBudget(ctx context.Context, id Identity, year, month int) error {
	err := b.db.WithContext(ctx).
		Where("household_id = ? AND year = ? AND month = ?", id.HouseholdID, year, month).
		Delete(&Budget{}).Error
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", core.MonthKey(year, month), err)
	}
	return nil
}

// BudgetRows lists the stored rows of one month with their category names.
func (b *Bridge) BudgetRows(ctx context.Context, id Identity, year, month int) (map[string]core.Money, error) {
	var rows []struct {
		Name   string
		Amount decimal.Decimal
	}
	err := b.db.WithContext(ctx).Model(&Budget{}).
		Select("categories.name AS name, budgets.amount AS amount").
		Joins("JOIN categories ON categories.id = budgets.category_id").
		Where("budgets.household_id = ? AND budgets.year = ? AND budgets.month = ?", id.HouseholdID, year, month).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("budget rows: %w", err)
	}
	out := make(map[string]core.Money, len(rows))
	for _, r := range rows {
		out[r.Name] = core.MoneyFromDecimal(r.Amount)
	}
	return out, nil
}
