package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"budgetbook/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, ok, err := repo.Get(ctx, "transactions"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := repo.Set(ctx, "transactions", []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set(ctx, "transactions", []byte(`[1,2]`)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := repo.Get(ctx, "transactions")
	if err != nil || !ok || string(got) != `[1,2]` {
		t.Fatalf("Get = %q %v %v", got, ok, err)
	}

	if err := repo.Delete(ctx, "transactions"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := repo.Get(ctx, "transactions"); ok {
		t.Fatal("key survived Delete")
	}
}

func TestClearKeepsOutbox(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_ = repo.Set(ctx, "currency", []byte(`{}`))
	if _, err := repo.Enqueue(ctx, ledger.OutboxItem{Kind: ledger.KindTransaction, RecordID: "a", Operation: ledger.OpUpsert}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := repo.Get(ctx, "currency"); ok {
		t.Fatal("Clear left a key behind")
	}
	st, err := repo.Stats(ctx)
	if err != nil || st.Pending != 1 {
		t.Fatalf("stats after clear = %+v %v", st, err)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for _, id := range []string{"a", "b", "c"} {
		if _, err := repo.Enqueue(ctx, ledger.OutboxItem{
			Kind: ledger.KindTransaction, RecordID: id, Operation: ledger.OpUpsert, Payload: []byte(`{"id":"` + id + `"}`),
			UserID: "u-" + id, Email: id + "@example.com", HouseholdID: "hh-1",
		}); err != nil {
			t.Fatal(err)
		}
	}

	batch, err := repo.DequeueBatch(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 || batch[0].RecordID != "a" || batch[1].RecordID != "b" {
		t.Fatalf("batch = %+v", batch)
	}
	if string(batch[0].Payload) != `{"id":"a"}` || !batch[0].CreatedAt.Equal(now) {
		t.Fatalf("item not decoded: %+v", batch[0])
	}
	if batch[0].UserID != "u-a" || batch[0].Email != "a@example.com" || batch[0].HouseholdID != "hh-1" {
		t.Fatalf("owner not stored: %+v", batch[0])
	}

	if err := repo.MarkProcessing(ctx, batch[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkComplete(ctx, batch[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkRetry(ctx, batch[1].ID, "remote down", now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	batch, _ = repo.DequeueBatch(ctx, 10)
	if len(batch) != 1 || batch[0].RecordID != "c" {
		t.Fatalf("retry item should wait for its next attempt, got %+v", batch)
	}
	if err := repo.MarkFailed(ctx, batch[0].ID, "bad payload"); err != nil {
		t.Fatal(err)
	}

	st, _ := repo.Stats(ctx)
	want := ledger.OutboxStats{Pending: 1, Completed: 1, Failed: 1}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}

	now = now.Add(2 * time.Minute)
	batch, _ = repo.DequeueBatch(ctx, 10)
	if len(batch) != 1 || batch[0].RecordID != "b" || batch[0].Attempts != 1 || batch[0].LastError != "remote down" {
		t.Fatalf("retried item = %+v", batch)
	}

	if err := repo.RetryFailed(ctx); err != nil {
		t.Fatal(err)
	}
	if err := repo.CleanupCompleted(ctx, now.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	st, _ = repo.Stats(ctx)
	if st != (ledger.OutboxStats{Pending: 2}) {
		t.Fatalf("stats after retry+cleanup = %+v", st)
	}
}

func TestResetStaleProcessing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, _ := repo.Enqueue(ctx, ledger.OutboxItem{Kind: ledger.KindBudget, RecordID: "2025-05", Operation: ledger.OpUpsert})
	_ = repo.MarkProcessing(ctx, id)
	if batch, _ := repo.DequeueBatch(ctx, 10); len(batch) != 0 {
		t.Fatalf("processing item dequeued: %+v", batch)
	}
	if err := repo.ResetStaleProcessing(ctx); err != nil {
		t.Fatal(err)
	}
	if batch, _ := repo.DequeueBatch(ctx, 10); len(batch) != 1 {
		t.Fatalf("reset item not dequeued: %+v", batch)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if first.SchemaVersion() != 2 {
		t.Fatalf("schema version = %d", first.SchemaVersion())
	}
	if err := first.Set(context.Background(), "k", []byte(`"v"`)); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if v, ok, err := second.Get(context.Background(), "k"); err != nil || !ok || string(v) != `"v"` {
		t.Fatalf("get after reopen = %q %v %v", v, ok, err)
	}
}
