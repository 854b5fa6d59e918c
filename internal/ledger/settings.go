package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbook/internal/core"
)

// Currency returns the active display currency, falling back to the
// default when none was chosen.
func (s *Store) Currency(ctx context.Context) core.Currency {
	c, ok := Document[core.Currency]{s: s, key: KeyCurrency}.Get(ctx)
	if !ok || c.Validate() != nil {
		return core.DefaultCurrency
	}
	return c
}

func (s *Store) SetCurrency(ctx context.Context, c core.Currency) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return Document[core.Currency]{s: s, key: KeyCurrency}.Set(ctx, c)
}

func (s *Store) paymentMethods() Document[[]string] {
	return Document[[]string]{s: s, key: KeyPaymentMethods}
}

// PaymentMethods returns the ordered, de-duplicated labels.
func (s *Store) PaymentMethods(ctx context.Context) []string {
	labels, ok := s.paymentMethods().Get(ctx)
	if !ok {
		return append([]string(nil), core.DefaultPaymentMethods...)
	}
	return core.NormalizePaymentMethods(labels)
}

func (s *Store) SetPaymentMethods(ctx context.Context, labels []string) error {
	return s.paymentMethods().Set(ctx, core.NormalizePaymentMethods(labels))
}

func (s *Store) AddPaymentMethod(ctx context.Context, label string) ([]string, error) {
	return s.paymentMethods().Modify(ctx, func(v *[]string) error {
		current := *v
		if current == nil {
			current = core.DefaultPaymentMethods
		}
		next, err := core.AddPaymentMethod(current, label)
		if err != nil {
			return err
		}
		*v = next
		return nil
	})
}

func (s *Store) RemovePaymentMethod(ctx context.Context, label string) ([]string, error) {
	return s.paymentMethods().Modify(ctx, func(v *[]string) error {
		current := *v
		if current == nil {
			current = core.DefaultPaymentMethods
		}
		*v = core.RemovePaymentMethod(current, label)
		return nil
	})
}

// DeviceID returns the installation id, creating and persisting one on
// first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	doc := Document[string]{s: s, key: KeyDeviceID}
	if id, ok := doc.Get(ctx); ok && id != "" {
		return id, nil
	}
	id, err := doc.Modify(ctx, func(v *string) error {
		if *v == "" {
			*v = s.newID()
			slog.InfoContext(ctx, "Generated device id", "device_id", *v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("device id: %w", err)
	}
	return id, nil
}
