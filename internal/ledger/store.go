// Package ledger is the local record store: transactions, budgets,
// credit-card reminders, shopping trips and display settings, each kept as
// one JSON document under a fixed key of a KV backend.
//
// Unreadable documents are logged and read as empty; the store never
// surfaces decode errors to its callers.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"budgetbook/internal/core"
)

const (
	KeyTransactions   = "transactions"
	KeyBudgets        = "monthlyBudgets"
	KeyCurrentBudget  = "currentBudget"
	KeyCurrency       = "currency"
	KeyPaymentMethods = "paymentMethods"
	KeyDeviceID       = "deviceId"
	KeyReminders      = "creditCardReminders"
	KeyShoppingTrips  = "shoppingTrips"
)

// Store serializes read-modify-write cycles over a KV backend.
type Store struct {
	kv      KV
	mu      sync.Mutex
	version atomic.Uint64
	now     func() time.Time
	newID   func() string
}

type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces random UUIDs for new record ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Version increases on every successful write. Callers use it to key
// derived caches.
func (s *Store) Version() uint64 { return s.version.Load() }

func (s *Store) Now() time.Time { return s.now() }

// load decodes key into v. Missing keys and corrupt JSON both report false.
func (s *Store) load(ctx context.Context, key string, v any) bool {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Ledger read failed, treating as empty", "key", key, "error", err)
		return false
	}
	if !ok || len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.WarnContext(ctx, "Corrupt ledger document, treating as empty", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.version.Add(1)
	return nil
}

// ClearAll wipes every ledger key. It runs on sign-out.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Clear(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	s.version.Add(1)
	slog.InfoContext(ctx, "Ledger cleared")
	return nil
}

// Document is a single JSON value stored under one key.
type Document[T any] struct {
	s   *Store
	key string
}

func (d Document[T]) Get(ctx context.Context) (T, bool) {
	var v T
	ok := d.s.load(ctx, d.key, &v)
	return v, ok
}

func (d Document[T]) Set(ctx context.Context, v T) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.s.save(ctx, d.key, v)
}

// Modify runs fn on the current value under the store lock and saves the
// result unless fn fails.
func (d Document[T]) Modify(ctx context.Context, fn func(v *T) error) (T, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var v T
	d.s.load(ctx, d.key, &v)
	if err := fn(&v); err != nil {
		return v, err
	}
	return v, d.s.save(ctx, d.key, v)
}

func (d Document[T]) Delete(ctx context.Context) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if err := d.s.kv.Delete(ctx, d.key); err != nil {
		return fmt.Errorf("delete %s: %w", d.key, err)
	}
	d.s.version.Add(1)
	return nil
}

type record interface {
	RecordID() string
	Created() time.Time
	Stamp(id string, now time.Time)
	Touch(now time.Time)
}

// Collection is a list of identified records stored as one JSON array.
type Collection[T any, P interface {
	*T
	record
}] struct {
	doc Document[[]T]
}

func (c Collection[T, P]) List(ctx context.Context) []T {
	items, _ := c.doc.Get(ctx)
	return items
}

func (c Collection[T, P]) Get(ctx context.Context, id string) (T, bool) {
	for _, it := range c.List(ctx) {
		if P(&it).RecordID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Append assigns a fresh id and timestamps to rec and stores it.
func (c Collection[T, P]) Append(ctx context.Context, rec T) (T, error) {
	s := c.doc.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []T
	s.load(ctx, c.doc.key, &items)
	P(&rec).Stamp(s.newID(), s.now())
	items = append(items, rec)
	if err := s.save(ctx, c.doc.key, items); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Update applies fn to the record with id and bumps its update time. It
// reports false and writes nothing when no record has that id.
func (c Collection[T, P]) Update(ctx context.Context, id string, fn func(*T)) (T, bool, error) {
	s := c.doc.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		items []T
		zero  T
	)
	s.load(ctx, c.doc.key, &items)
	for i := range items {
		p := P(&items[i])
		if p.RecordID() != id {
			continue
		}
		created := p.Created()
		fn(&items[i])
		p.Stamp(id, created)
		p.Touch(s.now())
		if err := s.save(ctx, c.doc.key, items); err != nil {
			return zero, false, err
		}
		return items[i], true, nil
	}
	return zero, false, nil
}

// Delete removes the record with id, reporting whether it existed.
func (c Collection[T, P]) Delete(ctx context.Context, id string) (bool, error) {
	s := c.doc.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []T
	s.load(ctx, c.doc.key, &items)
	kept := items[:0]
	found := false
	for _, it := range items {
		if P(&it).RecordID() == id {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return false, nil
	}
	return true, s.save(ctx, c.doc.key, kept)
}

// Modify rewrites the whole list under the store lock. Records keep the
// ids and timestamps fn gives them.
func (c Collection[T, P]) Modify(ctx context.Context, fn func([]T) ([]T, error)) ([]T, error) {
	return c.doc.Modify(ctx, func(v *[]T) error {
		next, err := fn(*v)
		if err != nil {
			return err
		}
		if next == nil {
			next = []T{}
		}
		*v = next
		return nil
	})
}

// Replace overwrites the whole collection without touching ids or
// timestamps.
func (c Collection[T, P]) Replace(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.doc.Set(ctx, items)
}

func (s *Store) Transactions() Collection[core.Transaction, *core.Transaction] {
	return Collection[core.Transaction, *core.Transaction]{doc: Document[[]core.Transaction]{s: s, key: KeyTransactions}}
}

func (s *Store) Reminders() Collection[core.CreditCardReminder, *core.CreditCardReminder] {
	return Collection[core.CreditCardReminder, *core.CreditCardReminder]{doc: Document[[]core.CreditCardReminder]{s: s, key: KeyReminders}}
}

func (s *Store) ShoppingTrips() Collection[core.ShoppingTrip, *core.ShoppingTrip] {
	return Collection[core.ShoppingTrip, *core.ShoppingTrip]{doc: Document[[]core.ShoppingTrip]{s: s, key: KeyShoppingTrips}}
}

// Budgets holds every MonthlyBudget; at most one per (year, month).
func (s *Store) Budgets() Document[[]core.MonthlyBudget] {
	return Document[[]core.MonthlyBudget]{s: s, key: KeyBudgets}
}

func (s *Store) CurrentBudget() Document[core.BudgetPointer] {
	return Document[core.BudgetPointer]{s: s, key: KeyCurrentBudget}
}
