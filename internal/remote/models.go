package remote

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountCreditCard AccountType = "credit_card"
	AccountEWallet    AccountType = "ewallet"
)

type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
)

// Model gives every table a UUID primary key generated on insert.
type Model struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *Model) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type Household struct {
	Model
	Name      string    `gorm:"not null" json:"name"`
	OwnerID   string    `gorm:"index;not null" json:"ownerId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type HouseholdMember struct {
	Model
	HouseholdID string     `gorm:"uniqueIndex:idx_household_member;not null" json:"householdId"`
	UserID      string     `gorm:"uniqueIndex:idx_household_member;not null" json:"userId"`
	Role        MemberRole `gorm:"type:varchar(16);not null" json:"role"`
	Email       string     `json:"email,omitempty"`
}

type Account struct {
	Model
	HouseholdID string      `gorm:"uniqueIndex:idx_account_name;not null" json:"householdId"`
	Name        string      `gorm:"uniqueIndex:idx_account_name;not null" json:"name"`
	Type        AccountType `gorm:"type:varchar(16);not null" json:"type"`
}

type Category struct {
	Model
	HouseholdID string       `gorm:"uniqueIndex:idx_category_name;not null" json:"householdId"`
	Name        string       `gorm:"uniqueIndex:idx_category_name;not null" json:"name"`
	Type        CategoryType `gorm:"uniqueIndex:idx_category_name;type:varchar(16);not null" json:"type"`
	Icon        string       `json:"icon,omitempty"`
}

// Transaction stores an unsigned amount; Type carries the direction.
// ClientID is the id the ledger assigned locally.
type Transaction struct {
	Model
	HouseholdID string          `gorm:"index;not null" json:"householdId"`
	ClientID    *string         `gorm:"uniqueIndex" json:"clientId,omitempty"`
	AccountID   *string         `json:"accountId,omitempty"`
	CategoryID  *string         `json:"categoryId,omitempty"`
	Type        CategoryType    `gorm:"type:varchar(16);not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description string          `json:"description"`
	Icon        string          `json:"icon,omitempty"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	CreatedBy   string          `json:"createdBy"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Account  *Account  `gorm:"foreignKey:AccountID" json:"-"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"-"`
}

type Budget struct {
	Model
	HouseholdID string          `gorm:"uniqueIndex:idx_budget_period;not null" json:"householdId"`
	CategoryID  string          `gorm:"uniqueIndex:idx_budget_period;not null" json:"categoryId"`
	Month       int             `gorm:"uniqueIndex:idx_budget_period;not null" json:"month"`
	Year        int             `gorm:"uniqueIndex:idx_budget_period;not null" json:"year"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type HouseholdInvite struct {
	Model
	HouseholdID string       `gorm:"index;not null" json:"householdId"`
	Email       string       `gorm:"index;not null" json:"email"`
	Role        MemberRole   `gorm:"type:varchar(16);not null" json:"role"`
	Token       string       `gorm:"uniqueIndex;not null" json:"-"`
	Status      InviteStatus `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	InvitedBy   string       `json:"invitedBy"`
	AcceptedAt  *time.Time   `json:"acceptedAt,omitempty"`
}

// Profile mirrors the identity provider's user record. DefaultHouseholdID
// is the household the user last joined; sign-in resumes it.
type Profile struct {
	ID                 string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Email              string    `gorm:"index" json:"email"`
	DisplayName        string    `json:"displayName"`
	DefaultHouseholdID *string   `gorm:"type:varchar(36)" json:"defaultHouseholdId,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func allModels() []any {
	return []any{
		&Household{}, &HouseholdMember{}, &Account{}, &Category{},
		&Transaction{}, &Budget{}, &HouseholdInvite{}, &Profile{},
	}
}
