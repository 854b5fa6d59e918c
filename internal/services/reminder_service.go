package services

import (
	"context"
	"fmt"
	"strings"

	"budgetbook/internal/analytics"
	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

type ReminderService struct {
	store *ledger.Store
}

func NewReminderService(store *ledger.Store) *ReminderService {
	return &ReminderService{store: store}
}

func (s *ReminderService) List(ctx context.Context) []core.CreditCardReminder {
	return s.store.Reminders().List(ctx)
}

func (s *ReminderService) Create(ctx context.Context, r core.CreditCardReminder) (core.CreditCardReminder, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return core.CreditCardReminder{}, err
	}
	saved, err := s.store.Reminders().Append(ctx, r)
	if err != nil {
		return core.CreditCardReminder{}, fmt.Errorf("save reminder: %w", err)
	}
	return saved, nil
}

func (s *ReminderService) Update(ctx context.Context, id string, r core.CreditCardReminder) (core.CreditCardReminder, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return core.CreditCardReminder{}, err
	}
	saved, ok, err := s.store.Reminders().Update(ctx, id, func(cur *core.CreditCardReminder) {
		cur.Name = r.Name
		cur.LastFour = r.LastFour
		cur.DueDay = r.DueDay
		cur.ReminderDaysBefore = r.ReminderDaysBefore
		cur.Active = r.Active
	})
	if err != nil {
		return core.CreditCardReminder{}, fmt.Errorf("update reminder: %w", err)
	}
	if !ok {
		return core.CreditCardReminder{}, core.ErrNotFound
	}
	return saved, nil
}

func (s *ReminderService) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Reminders().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if !ok {
		return core.ErrNotFound
	}
	return nil
}

// Due lists the active reminders inside their lead window on today.
func (s *ReminderService) Due(ctx context.Context, today core.Date) []core.CreditCardReminder {
	return analytics.DueReminders(s.List(ctx), today)
}
