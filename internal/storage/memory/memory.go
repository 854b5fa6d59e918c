// Package memory provides in-process implementations of the ledger KV and
// sync outbox, used for the memory data backend and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"budgetbook/internal/ledger"
)

var (
	_ ledger.KV     = (*Store)(nil)
	_ ledger.Outbox = (*Store)(nil)
)

type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	outbox []ledger.OutboxItem
	nextID int64
	now    func() time.Time
}

func New() *Store {
	return &Store{values: make(map[string][]byte), now: time.Now}
}

// NewWithClock is New with a fixed clock for retry scheduling.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Clear drops every value. Queued outbox items survive so that a sign-out
// does not discard unsynced work.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string][]byte)
	return nil
}

func (s *Store) Enqueue(_ context.Context, item ledger.OutboxItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now()
	item.ID = s.nextID
	item.Status = ledger.StatusPending
	item.Attempts = 0
	item.CreatedAt = now
	item.UpdatedAt = now
	item.NextAttemptAt = now
	s.outbox = append(s.outbox, item)
	return item.ID, nil
}

func (s *Store) DequeueBatch(_ context.Context, limit int) ([]ledger.OutboxItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []ledger.OutboxItem
	for _, it := range s.outbox {
		if it.Status == ledger.StatusPending && !it.NextAttemptAt.After(now) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) update(id int64, fn func(*ledger.OutboxItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			fn(&s.outbox[i])
			s.outbox[i].UpdatedAt = s.now()
			return
		}
	}
}

func (s *Store) MarkProcessing(_ context.Context, id int64) error {
	s.update(id, func(it *ledger.OutboxItem) { it.Status = ledger.StatusProcessing })
	return nil
}

func (s *Store) MarkComplete(_ context.Context, id int64) error {
	s.update(id, func(it *ledger.OutboxItem) { it.Status = ledger.StatusCompleted })
	return nil
}

func (s *Store) MarkRetry(_ context.Context, id int64, errMsg string, next time.Time) error {
	s.update(id, func(it *ledger.OutboxItem) {
		it.Status = ledger.StatusPending
		it.Attempts++
		it.LastError = errMsg
		it.NextAttemptAt = next
	})
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.update(id, func(it *ledger.OutboxItem) {
		it.Status = ledger.StatusFailed
		it.Attempts++
		it.LastError = errMsg
	})
	return nil
}

func (s *Store) ResetStaleProcessing(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].Status == ledger.StatusProcessing {
			s.outbox[i].Status = ledger.StatusPending
		}
	}
	return nil
}

func (s *Store) RetryFailed(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for i := range s.outbox {
		if s.outbox[i].Status == ledger.StatusFailed {
			s.outbox[i].Status = ledger.StatusPending
			s.outbox[i].Attempts = 0
			s.outbox[i].NextAttemptAt = now
		}
	}
	return nil
}

func (s *Store) CleanupCompleted(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.outbox[:0]
	for _, it := range s.outbox {
		if it.Status == ledger.StatusCompleted && it.UpdatedAt.Before(before) {
			continue
		}
		kept = append(kept, it)
	}
	s.outbox = kept
	return nil
}

func (s *Store) Stats(_ context.Context) (ledger.OutboxStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st ledger.OutboxStats
	for _, it := range s.outbox {
		switch it.Status {
		case ledger.StatusPending:
			st.Pending++
		case ledger.StatusProcessing:
			st.Processing++
		case ledger.StatusCompleted:
			st.Completed++
		case ledger.StatusFailed:
			st.Failed++
		}
	}
	return st, nil
}

// Items returns a snapshot of the outbox for inspection.
func (s *Store) Items() []ledger.OutboxItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.OutboxItem(nil), s.outbox...)
}
