package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

type BudgetService struct {
	store *ledger.Store
	queue syncQueue
}

func NewBudgetService(store *ledger.Store, outbox ledger.Outbox, nudger Nudger, identities *Identities) *BudgetService {
	return &BudgetService{store: store, queue: syncQueue{outbox: outbox, nudger: nudger, identities: identities}}
}

// List returns every budget, newest month first.
func (s *BudgetService) List(ctx context.Context) []core.MonthlyBudget {
	budgets, _ := s.store.Budgets().Get(ctx)
	sort.SliceStable(budgets, func(i, j int) bool { return budgets[i].Key() > budgets[j].Key() })
	return budgets
}

func (s *BudgetService) Get(ctx context.Context, year, month int) (core.MonthlyBudget, bool) {
	budgets, _ := s.store.Budgets().Get(ctx)
	return core.FindBudget(budgets, year, month)
}

// Save replaces the budget for b's month wholesale and makes it current.
func (s *BudgetService) Save(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	for i := range b.Categories {
		b.Categories[i].Category = strings.TrimSpace(b.Categories[i].Category)
	}
	if err := b.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}
	b.UpdatedAt = s.store.Now()

	_, err := s.store.Budgets().Modify(ctx, func(all *[]core.MonthlyBudget) error {
		for i := range *all {
			if (*all)[i].Year == b.Year && (*all)[i].Month == b.Month {
				(*all)[i] = b
				return nil
			}
		}
		*all = append(*all, b)
		return nil
	})
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("save budget: %w", err)
	}
	if err := s.SetCurrent(ctx, b.Year, b.Month); err != nil {
		return core.MonthlyBudget{}, err
	}

	s.queue.push(ctx, ledger.KindBudget, b.Key(), ledger.OpUpsert, b)
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, year, month int) error {
	found := false
	_, err := s.store.Budgets().Modify(ctx, func(all *[]core.MonthlyBudget) error {
		kept := (*all)[:0]
		for _, b := range *all {
			if b.Year == year && b.Month == month {
				found = true
				continue
			}
			kept = append(kept, b)
		}
		if !found {
			return core.ErrNotFound
		}
		*all = kept
		return nil
	})
	if err != nil {
		return err
	}

	ptr := core.BudgetPointer{Year: year, Month: month}
	if cur, ok := s.store.CurrentBudget().Get(ctx); ok && cur == ptr {
		if err := s.store.CurrentBudget().Delete(ctx); err != nil {
			return err
		}
	}
	s.queue.push(ctx, ledger.KindBudget, core.MonthKey(year, month), ledger.OpDelete, ptr)
	return nil
}

// Current returns the budget the pointer names, if both exist.
func (s *BudgetService) Current(ctx context.Context) (core.MonthlyBudget, bool) {
	ptr, ok := s.store.CurrentBudget().Get(ctx)
	if !ok {
		return core.MonthlyBudget{}, false
	}
	return s.Get(ctx, ptr.Year, ptr.Month)
}

func (s *BudgetService) SetCurrent(ctx context.Context, year, month int) error {
	if month < 1 || month > 12 {
		return core.ErrInvalidMonth
	}
	if err := s.store.CurrentBudget().Set(ctx, core.BudgetPointer{Year: year, Month: month}); err != nil {
		return fmt.Errorf("set current budget: %w", err)
	}
	return nil
}
