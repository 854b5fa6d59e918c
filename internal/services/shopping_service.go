package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// ShoppingService runs shopping trips. At most one trip is active at a
// time; completing it records a single expense for the trip total.
type ShoppingService struct {
	store  *ledger.Store
	ledger *LedgerService
}

func NewShoppingService(store *ledger.Store, ledgerSvc *LedgerService) *ShoppingService {
	return &ShoppingService{store: store, ledger: ledgerSvc}
}

// Active returns the trip in progress, if any.
func (s *ShoppingService) Active(ctx context.Context) (core.ShoppingTrip, bool) {
	for _, t := range s.store.ShoppingTrips().List(ctx) {
		if t.IsActive() {
			return t, true
		}
	}
	return core.ShoppingTrip{}, false
}

// History lists completed trips, most recent first.
func (s *ShoppingService) History(ctx context.Context) []core.ShoppingTrip {
	trips := s.store.ShoppingTrips().List(ctx)
	var done []core.ShoppingTrip
	for i := len(trips) - 1; i >= 0; i-- {
		if trips[i].Status == core.TripCompleted {
			done = append(done, trips[i])
		}
	}
	return done
}

type TripOptions struct {
	Name          string
	Category      string
	Icon          string
	PaymentMethod string
}

func (s *ShoppingService) Start(ctx context.Context, opts TripOptions) (core.ShoppingTrip, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return core.ShoppingTrip{}, core.ErrEmptyDescription
	}
	category := strings.TrimSpace(opts.Category)
	if category == "" {
		category = core.DefaultShoppingCategory
	}
	trip := core.ShoppingTrip{
		Name:          name,
		Status:        core.TripActive,
		Category:      category,
		Icon:          opts.Icon,
		PaymentMethod: strings.TrimSpace(opts.PaymentMethod),
		Items:         []core.ShoppingItem{},
	}

	var started core.ShoppingTrip
	_, err := s.store.ShoppingTrips().Modify(ctx, func(trips []core.ShoppingTrip) ([]core.ShoppingTrip, error) {
		for _, t := range trips {
			if t.IsActive() {
				return nil, core.ErrTripActive
			}
		}
		now := s.store.Now()
		trip.Stamp(uuid.NewString(), now)
		started = trip
		return append(trips, trip), nil
	})
	if err != nil {
		return core.ShoppingTrip{}, err
	}
	slog.InfoContext(ctx, "Shopping trip started", "trip_id", started.ID, "name", started.Name)
	return started, nil
}

// modifyActive applies fn to trip id, which must be active.
func (s *ShoppingService) modifyActive(ctx context.Context, id string, fn func(*core.ShoppingTrip) error) (core.ShoppingTrip, error) {
	var out core.ShoppingTrip
	_, err := s.store.ShoppingTrips().Modify(ctx, func(trips []core.ShoppingTrip) ([]core.ShoppingTrip, error) {
		for i := range trips {
			if trips[i].ID != id {
				continue
			}
			if !trips[i].IsActive() {
				return nil, core.ErrTripNotActive
			}
			if err := fn(&trips[i]); err != nil {
				return nil, err
			}
			trips[i].Touch(s.store.Now())
			out = trips[i]
			return trips, nil
		}
		return nil, core.ErrNotFound
	})
	return out, err
}

func (s *ShoppingService) AddItem(ctx context.Context, tripID, name string, price core.Money) (core.ShoppingTrip, error) {
	item := core.ShoppingItem{ID: uuid.NewString(), Name: strings.TrimSpace(name), Price: price}
	if err := item.Validate(); err != nil {
		return core.ShoppingTrip{}, err
	}
	return s.modifyActive(ctx, tripID, func(t *core.ShoppingTrip) error {
		t.Items = append(t.Items, item)
		return nil
	})
}

func (s *ShoppingService) RemoveItem(ctx context.Context, tripID, itemID string) (core.ShoppingTrip, error) {
	return s.modifyActive(ctx, tripID, func(t *core.ShoppingTrip) error {
		for i, it := range t.Items {
			if it.ID == itemID {
				t.Items = append(t.Items[:i], t.Items[i+1:]...)
				return nil
			}
		}
		return core.ErrNotFound
	})
}

// Complete records the trip total as one expense dated on and closes the
// trip. The trip is claimed before the expense is written, so concurrent
// calls for the same trip record at most one transaction.
func (s *ShoppingService) Complete(ctx context.Context, tripID string, on core.Date) (core.ShoppingTrip, core.Transaction, error) {
	trip, err := s.modifyActive(ctx, tripID, func(t *core.ShoppingTrip) error {
		if len(t.Items) == 0 {
			return core.ErrEmptyTrip
		}
		t.Status = core.TripCompleting
		return nil
	})
	if err != nil {
		return core.ShoppingTrip{}, core.Transaction{}, err
	}

	tx, err := s.ledger.Add(ctx, core.TransactionDraft{
		Entry:         core.Expense{Amount: trip.Total()},
		Description:   fmt.Sprintf("Shopping: %s (%d items)", trip.Name, len(trip.Items)),
		Category:      trip.Category,
		Icon:          trip.Icon,
		Date:          on,
		PaymentMethod: trip.PaymentMethod,
	})
	if err != nil {
		if _, rerr := s.setStatus(ctx, tripID, core.TripCompleting, func(t *core.ShoppingTrip) {
			t.Status = core.TripActive
		}); rerr != nil {
			slog.ErrorContext(ctx, "Failed to reopen shopping trip", "trip_id", tripID, "error", rerr)
		}
		return core.ShoppingTrip{}, core.Transaction{}, fmt.Errorf("record shopping expense: %w", err)
	}

	done, err := s.setStatus(ctx, tripID, core.TripCompleting, func(t *core.ShoppingTrip) {
		now := s.store.Now()
		t.Status = core.TripCompleted
		t.TransactionID = tx.ID
		t.CompletedAt = &now
	})
	if err != nil {
		return core.ShoppingTrip{}, tx, fmt.Errorf("close shopping trip: %w", err)
	}
	slog.InfoContext(ctx, "Shopping trip completed",
		"trip_id", done.ID,
		"transaction_id", tx.ID,
		"total_cents", done.Total().Cents)
	return done, tx, nil
}

// setStatus applies fn to trip id when it is in status from.
func (s *ShoppingService) setStatus(ctx context.Context, id string, from core.TripStatus, fn func(*core.ShoppingTrip)) (core.ShoppingTrip, error) {
	var out core.ShoppingTrip
	_, err := s.store.ShoppingTrips().Modify(ctx, func(trips []core.ShoppingTrip) ([]core.ShoppingTrip, error) {
		for i := range trips {
			if trips[i].ID != id {
				continue
			}
			if trips[i].Status != from {
				return nil, core.ErrTripNotActive
			}
			fn(&trips[i])
			trips[i].Touch(s.store.Now())
			out = trips[i]
			return trips, nil
		}
		return nil, core.ErrNotFound
	})
	return out, err
}

// Cancel discards an active trip without recording anything.
func (s *ShoppingService) Cancel(ctx context.Context, tripID string) error {
	_, err := s.store.ShoppingTrips().Modify(ctx, func(trips []core.ShoppingTrip) ([]core.ShoppingTrip, error) {
		for i, t := range trips {
			if t.ID != tripID {
				continue
			}
			if !t.IsActive() {
				return nil, core.ErrTripNotActive
			}
			return append(trips[:i], trips[i+1:]...), nil
		}
		return nil, core.ErrNotFound
	})
	return err
}
