package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidBudget     = errors.New("invalid budget")
	ErrDuplicateCategory = errors.New("duplicate budget category")
)

// CategoryBudget is the planned spending for one category within a month.
type CategoryBudget struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
	Icon     string `json:"icon,omitempty"`
}

// MonthlyBudget is the whole plan for one (year, month). Saving replaces the
// previous plan for the same month.
type MonthlyBudget struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"`
	Total      Money            `json:"total"`
	Categories []CategoryBudget `json:"categories"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// BudgetPointer identifies the budget the user is currently looking at.
type BudgetPointer struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (b MonthlyBudget) Key() string {
	return MonthKey(b.Year, b.Month)
}

func (b MonthlyBudget) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidBudget, b.Year)
	}
	if b.Total.Cents < 0 {
		return fmt.Errorf("%w: negative total", ErrInvalidBudget)
	}
	seen := make(map[string]bool, len(b.Categories))
	for _, c := range b.Categories {
		name := strings.TrimSpace(c.Category)
		if name == "" {
			return ErrEmptyCategory
		}
		if c.Amount.Cents < 0 {
			return fmt.Errorf("%w: negative amount for %s", ErrInvalidBudget, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, name)
		}
		seen[name] = true
	}
	return nil
}

// FindBudget looks up a budget by exact (year, month).
func FindBudget(budgets []MonthlyBudget, year, month int) (MonthlyBudget, bool) {
	for _, b := range budgets {
		if b.Year == year && b.Month == month {
			return b, true
		}
	}
	return MonthlyBudget{}, false
}

// MonthKey returns the sortable "YYYY-MM" key for a month.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
