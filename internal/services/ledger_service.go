package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// LedgerService records transactions locally and queues them for sync.
type LedgerService struct {
	store *ledger.Store
	queue syncQueue
}

func NewLedgerService(store *ledger.Store, outbox ledger.Outbox, nudger Nudger, identities *Identities) *LedgerService {
	return &LedgerService{store: store, queue: syncQueue{outbox: outbox, nudger: nudger, identities: identities}}
}

func (s *LedgerService) List(ctx context.Context) []core.Transaction {
	return s.store.Transactions().List(ctx)
}

func (s *LedgerService) Get(ctx context.Context, id string) (core.Transaction, error) {
	tx, ok := s.store.Transactions().Get(ctx, id)
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

// Add validates the draft, stores it and queues an upsert.
func (s *LedgerService) Add(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.Transactions().Append(ctx, d.Transaction())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction recorded",
		"id", tx.ID,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)

	s.queue.push(ctx, ledger.KindTransaction, tx.ID, ledger.OpUpsert, tx)
	return tx, nil
}

// Update replaces the editable fields of an existing transaction.
func (s *LedgerService) Update(ctx context.Context, id string, d core.TransactionDraft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, ok, err := s.store.Transactions().Update(ctx, id, func(t *core.Transaction) {
		d.ApplyTo(t)
		t.LegacyIsPositive = nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	s.queue.push(ctx, ledger.KindTransaction, tx.ID, ledger.OpUpsert, tx)
	return tx, nil
}

func (s *LedgerService) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Transactions().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !ok {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.queue.push(ctx, ledger.KindTransaction, id, ledger.OpDelete, map[string]string{"id": id})
	return nil
}

// MergeResult counts what a pull changed locally.
type MergeResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Merge folds remote transactions into the ledger by id. A remote record
// replaces the local one only when it was updated later. Local records
// missing remotely are kept; they may still be waiting in the outbox.
func (s *LedgerService) Merge(ctx context.Context, incoming []core.Transaction) (MergeResult, error) {
	var res MergeResult
	_, err := s.store.Transactions().Modify(ctx, func(local []core.Transaction) ([]core.Transaction, error) {
		index := make(map[string]int, len(local))
		for i, t := range local {
			index[t.ID] = i
		}
		for _, r := range incoming {
			if r.ID == "" {
				continue
			}
			i, ok := index[r.ID]
			switch {
			case !ok:
				index[r.ID] = len(local)
				local = append(local, r)
				res.Added++
			case r.UpdatedAt.After(local[i].UpdatedAt):
				local[i] = r
				res.Updated++
			default:
				res.Unchanged++
			}
		}
		sort.SliceStable(local, func(a, b int) bool { return local[a].Date.After(local[b].Date.Time) })
		return local, nil
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge transactions: %w", err)
	}
	return res, nil
}
