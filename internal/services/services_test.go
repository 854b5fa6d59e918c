package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/storage/memory"
)

type fakeNudger struct {
	ids []int64
	err error
}

func (f *fakeNudger) PublishSyncNudge(_ context.Context, id int64, _, _, _ string) error {
	f.ids = append(f.ids, id)
	return f.err
}

type fixture struct {
	store  *ledger.Store
	mem    *memory.Store
	nudger *fakeNudger
	ledger *LedgerService
	budget *BudgetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	clock := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	store := ledger.New(mem,
		ledger.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("rec-%d", n)
		}),
	)
	nudger := &fakeNudger{}
	return &fixture{
		store:  store,
		mem:    mem,
		nudger: nudger,
		ledger: NewLedgerService(store, mem, nudger, nil),
		budget: NewBudgetService(store, mem, nudger, nil),
	}
}

func expense(cents int64, desc, category, date string) core.TransactionDraft {
	d, _ := core.ParseDate(date)
	return core.TransactionDraft{
		Entry:       core.Expense{Amount: core.Money{Cents: cents}},
		Description: desc,
		Category:    category,
		Date:        d,
	}
}

func TestLedgerServiceAddQueuesSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tx, err := f.ledger.Add(ctx, expense(1250, "Lunch", "Food", "2025-05-02"))
	if err != nil {
		t.Fatal(err)
	}
	if tx.Amount.Cents != -1250 || tx.ID == "" {
		t.Fatalf("tx = %+v", tx)
	}

	items := f.mem.Items()
	if len(items) != 1 || items[0].Kind != ledger.KindTransaction || items[0].Operation != ledger.OpUpsert || items[0].RecordID != tx.ID {
		t.Fatalf("outbox = %+v", items)
	}
	if len(f.nudger.ids) != 1 || f.nudger.ids[0] != items[0].ID {
		t.Fatalf("nudges = %v", f.nudger.ids)
	}
}

func TestLedgerServiceRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name  string
		draft core.TransactionDraft
		want  error
	}{
		{"zero amount", expense(0, "x", "Food", "2025-05-02"), core.ErrInvalidAmount},
		{"blank description", expense(100, "  ", "Food", "2025-05-02"), core.ErrEmptyDescription},
		{"missing category", expense(100, "x", "", "2025-05-02"), core.ErrEmptyCategory},
		{"bad date", expense(100, "x", "Food", "2025-13-02"), core.ErrInvalidDate},
		{"no entry", core.TransactionDraft{Description: "x", Category: "y"}, core.ErrMissingEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.Add(ctx, tt.draft); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.ledger.List(ctx)) != 0 || len(f.mem.Items()) != 0 {
		t.Fatal("invalid input reached persistence")
	}
}

func TestLedgerServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ledger = NewLedgerService(f.store, f.mem, nil, nil)

	tx, _ := f.ledger.Add(ctx, expense(500, "Bus", "Transport", "2025-05-03"))

	income := expense(500, "Refund", "Transport", "2025-05-03")
	income.Entry = core.Income{Amount: core.Money{Cents: 500}}
	up, err := f.ledger.Update(ctx, tx.ID, income)
	if err != nil {
		t.Fatal(err)
	}
	if !up.IsIncome() || up.Description != "Refund" || up.ID != tx.ID {
		t.Fatalf("updated = %+v", up)
	}

	if _, err := f.ledger.Update(ctx, "nope", income); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
	if err := f.ledger.Delete(ctx, tx.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.ledger.Delete(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}

	items := f.mem.Items()
	if len(items) != 3 || items[2].Operation != ledger.OpDelete || items[2].RecordID != tx.ID {
		t.Fatalf("outbox = %+v", items)
	}
}

func TestLedgerServiceWithoutOutbox(t *testing.T) {
	ctx := context.Background()
	store := ledger.New(memory.New())
	svc := NewLedgerService(store, nil, nil, nil)
	if _, err := svc.Add(ctx, expense(100, "x", "y", "2025-01-01")); err != nil {
		t.Fatalf("local-only add: %v", err)
	}
}

func TestMergeNewerWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	local, _ := f.ledger.Add(ctx, expense(1000, "Local", "Food", "2025-05-01"))
	kept, _ := f.ledger.Add(ctx, expense(2000, "Kept", "Food", "2025-05-02"))

	newer := local
	newer.Description = "Remote edit"
	newer.UpdatedAt = local.UpdatedAt.Add(time.Hour)

	older := kept
	older.Description = "Stale"
	older.UpdatedAt = kept.UpdatedAt.Add(-time.Hour)

	fresh := core.Transaction{Description: "From partner", Amount: core.Money{Cents: -300}, Date: core.NewDate(2025, 5, 4)}
	fresh.ID = "remote-1"

	res, err := f.ledger.Merge(ctx, []core.Transaction{newer, older, fresh, {}})
	if err != nil {
		t.Fatal(err)
	}
	if res != (MergeResult{Added: 1, Updated: 1, Unchanged: 1}) {
		t.Fatalf("result = %+v", res)
	}

	byID := map[string]core.Transaction{}
	for _, tx := range f.ledger.List(ctx) {
		byID[tx.ID] = tx
	}
	if byID[local.ID].Description != "Remote edit" || byID[kept.ID].Description != "Kept" || byID["remote-1"].Description != "From partner" {
		t.Fatalf("merged = %+v", byID)
	}
}

func TestBudgetServiceSaveReplacesMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := core.MonthlyBudget{Year: 2025, Month: 5, Total: core.Money{Cents: 100000}, Categories: []core.CategoryBudget{
		{Category: " Food ", Amount: core.Money{Cents: 40000}},
	}}
	if _, err := f.budget.Save(ctx, b); err != nil {
		t.Fatal(err)
	}
	b.Total = core.Money{Cents: 120000}
	b.Categories = []core.CategoryBudget{{Category: "Rent", Amount: core.Money{Cents: 80000}}}
	if _, err := f.budget.Save(ctx, b); err != nil {
		t.Fatal(err)
	}
	if _, err := f.budget.Save(ctx, core.MonthlyBudget{Year: 2025, Month: 4}); err != nil {
		t.Fatal(err)
	}

	all := f.budget.List(ctx)
	if len(all) != 2 || all[0].Month != 5 || all[1].Month != 4 {
		t.Fatalf("budgets = %+v", all)
	}
	may, _ := f.budget.Get(ctx, 2025, 5)
	if may.Total.Cents != 120000 || len(may.Categories) != 1 || may.Categories[0].Category != "Rent" {
		t.Fatalf("may = %+v", may)
	}

	cur, ok := f.budget.Current(ctx)
	if !ok || cur.Month != 4 {
		t.Fatalf("current = %+v %v", cur, ok)
	}

	dup := core.MonthlyBudget{Year: 2025, Month: 6, Categories: []core.CategoryBudget{{Category: "A"}, {Category: "A"}}}
	if _, err := f.budget.Save(ctx, dup); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("duplicate err = %v", err)
	}

	if err := f.budget.Delete(ctx, 2025, 4); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.budget.Current(ctx); ok {
		t.Fatal("pointer to deleted budget survived")
	}
	if err := f.budget.Delete(ctx, 2025, 4); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}

	last := f.mem.Items()[len(f.mem.Items())-1]
	if last.Kind != ledger.KindBudget || last.Operation != ledger.OpDelete || last.RecordID != "2025-04" {
		t.Fatalf("last outbox item = %+v", last)
	}
}

func TestReminderService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewReminderService(f.store)

	if _, err := svc.Create(ctx, core.CreditCardReminder{Name: "Visa", DueDay: 32}); !errors.Is(err, core.ErrInvalidDueDay) {
		t.Fatalf("err = %v", err)
	}
	r, err := svc.Create(ctx, core.CreditCardReminder{Name: "Visa", LastFour: "1234", DueDay: 31, ReminderDaysBefore: 3, Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, core.CreditCardReminder{Name: "Amex", DueDay: 10, ReminderDaysBefore: 2, Active: false}); err != nil {
		t.Fatal(err)
	}

	due := svc.Due(ctx, core.NewDate(2025, 2, 26))
	if len(due) != 1 || due[0].ID != r.ID {
		t.Fatalf("due on Feb 26 = %+v", due)
	}
	if due := svc.Due(ctx, core.NewDate(2025, 2, 20)); len(due) != 0 {
		t.Fatalf("due on Feb 20 = %+v", due)
	}

	r.Active = false
	if _, err := svc.Update(ctx, r.ID, r); err != nil {
		t.Fatal(err)
	}
	if due := svc.Due(ctx, core.NewDate(2025, 2, 26)); len(due) != 0 {
		t.Fatalf("inactive reminder still due: %+v", due)
	}
	if err := svc.Delete(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, r.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestShoppingTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewShoppingService(f.store, f.ledger)

	trip, err := svc.Start(ctx, TripOptions{Name: "Weekly groceries", PaymentMethod: "Debit Card"})
	if err != nil {
		t.Fatal(err)
	}
	if trip.Category != core.DefaultShoppingCategory || !trip.IsActive() {
		t.Fatalf("trip = %+v", trip)
	}
	if _, err := svc.Start(ctx, TripOptions{Name: "Second"}); !errors.Is(err, core.ErrTripActive) {
		t.Fatalf("second start err = %v", err)
	}

	on := core.NewDate(2025, 5, 10)
	if _, _, err := svc.Complete(ctx, trip.ID, on); !errors.Is(err, core.ErrEmptyTrip) {
		t.Fatalf("complete empty err = %v", err)
	}

	trip, _ = svc.AddItem(ctx, trip.ID, "Milk", core.Money{Cents: 199})
	trip, _ = svc.AddItem(ctx, trip.ID, "Bread", core.Money{Cents: 350})
	trip, err = svc.AddItem(ctx, trip.ID, "Eggs", core.Money{Cents: 420})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddItem(ctx, trip.ID, "", core.Money{Cents: 1}); !errors.Is(err, core.ErrEmptyItemName) {
		t.Fatalf("empty item err = %v", err)
	}
	trip, err = svc.RemoveItem(ctx, trip.ID, trip.Items[1].ID)
	if err != nil || len(trip.Items) != 2 {
		t.Fatalf("remove: %+v %v", trip.Items, err)
	}

	done, tx, err := svc.Complete(ctx, trip.ID, on)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Amount.Cents != -619 || tx.Description != "Shopping: Weekly groceries (2 items)" ||
		tx.Category != core.DefaultShoppingCategory || tx.PaymentMethod != "Debit Card" || !tx.Date.Equal(on.Time) {
		t.Fatalf("tx = %+v", tx)
	}
	if done.Status != core.TripCompleted || done.TransactionID != tx.ID || done.CompletedAt == nil {
		t.Fatalf("done = %+v", done)
	}
	if len(f.ledger.List(ctx)) != 1 {
		t.Fatal("completion must record exactly one transaction")
	}
	if _, _, err := svc.Complete(ctx, trip.ID, on); !errors.Is(err, core.ErrTripNotActive) {
		t.Fatalf("second complete err = %v", err)
	}
	if _, ok := svc.Active(ctx); ok {
		t.Fatal("no trip should be active")
	}
	if h := svc.History(ctx); len(h) != 1 || h[0].ID != trip.ID {
		t.Fatalf("history = %+v", h)
	}

	next, err := svc.Start(ctx, TripOptions{Name: "Hardware", Category: "Home"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Cancel(ctx, next.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Cancel(ctx, trip.ID); !errors.Is(err, core.ErrTripNotActive) {
		t.Fatalf("cancel completed err = %v", err)
	}
	if len(f.store.ShoppingTrips().List(ctx)) != 1 {
		t.Fatal("cancelled trip should be removed")
	}
}

// slowKV delays reads and can fail writes of one key.
type slowKV struct {
	ledger.KV
	delay   time.Duration
	failSet string
}

func (k slowKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	time.Sleep(k.delay)
	return k.KV.Get(ctx, key)
}

func (k slowKV) Set(ctx context.Context, key string, value []byte) error {
	if key == k.failSet {
		return errors.New("disk full")
	}
	return k.KV.Set(ctx, key, value)
}

func TestShoppingTripConcurrentComplete(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	store := ledger.New(slowKV{KV: mem, delay: 2 * time.Millisecond})
	ledgerSvc := NewLedgerService(store, mem, nil, nil)
	svc := NewShoppingService(store, ledgerSvc)

	trip, err := svc.Start(ctx, TripOptions{Name: "Market"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddItem(ctx, trip.ID, "Apples", core.Money{Cents: 300}); err != nil {
		t.Fatal(err)
	}

	const callers = 4
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Complete(ctx, trip.ID, core.NewDate(2025, 5, 10))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, core.ErrTripNotActive):
				rejected++
			default:
				t.Errorf("complete: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || rejected != callers-1 {
		t.Fatalf("ok = %d, rejected = %d", ok, rejected)
	}
	if n := len(ledgerSvc.List(ctx)); n != 1 {
		t.Fatalf("completing one trip recorded %d transactions", n)
	}
	st, _ := mem.Stats(ctx)
	if st.Pending != 1 {
		t.Fatalf("outbox = %+v", st)
	}
}

func TestShoppingTripCompleteReopensOnFailure(t *testing.T) {
	ctx := context.Background()
	store := ledger.New(slowKV{KV: memory.New(), failSet: ledger.KeyTransactions})
	svc := NewShoppingService(store, NewLedgerService(store, nil, nil, nil))

	trip, err := svc.Start(ctx, TripOptions{Name: "Market"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddItem(ctx, trip.ID, "Apples", core.Money{Cents: 300}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Complete(ctx, trip.ID, core.NewDate(2025, 5, 10)); err == nil {
		t.Fatal("expected the expense write to fail")
	}
	active, ok := svc.Active(ctx)
	if !ok || active.ID != trip.ID || active.TransactionID != "" {
		t.Fatalf("trip not reopened: %+v %v", active, ok)
	}
}
