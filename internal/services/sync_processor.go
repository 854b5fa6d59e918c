package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/remote"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an item is marked failed (default: 3)
	MaxRetries int

	// RetryBackoff is the delay before the first retry; it doubles per attempt (default: 5s)
	RetryBackoff time.Duration

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		RetryBackoff:    5 * time.Second,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

const maxRetryBackoff = 10 * time.Minute

// SyncProcessor drains the outbox into the remote database.
type SyncProcessor struct {
	outbox     ledger.Outbox
	remote     RemoteSync
	ledger     *LedgerService
	identities *Identities
	config     SyncProcessorConfig
	now        func() time.Time

	// batchMu keeps the loop and SyncNow from working the same items.
	batchMu sync.Mutex
	wakeCh  chan struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(
	outbox ledger.Outbox,
	remote RemoteSync,
	ledgerSvc *LedgerService,
	identities *Identities,
	config SyncProcessorConfig,
) *SyncProcessor {
	return &SyncProcessor{
		outbox:     outbox,
		remote:     remote,
		ledger:     ledgerSvc,
		identities: identities,
		config:     config,
		now:        time.Now,
		wakeCh:     make(chan struct{}, 1),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Items left in processing by a crash go back to pending.
	if err := p.outbox.ResetStaleProcessing(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing items", "error", err)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.stopCh = nil
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Wake asks the loop to process a batch now instead of at the next tick.
func (p *SyncProcessor) Wake() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.background(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.background(ctx)
		case <-p.wakeCh:
			p.background(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// background runs one batch and only logs failures; they are retried.
func (p *SyncProcessor) background(ctx context.Context) {
	if _, err := p.processBatch(ctx); err != nil && !errors.Is(err, ErrNotSignedIn) {
		slog.WarnContext(ctx, "Background sync batch had failures", "error", err)
	}
}

// processBatch handles one batch and returns how many items were pushed
// and the first failure, if any. Each item is pushed as the user who
// queued it; items queued while signed out go to the current user.
func (p *SyncProcessor) processBatch(ctx context.Context) (int, error) {
	current, ok := p.identities.Current()
	if !ok {
		return 0, ErrNotSignedIn
	}

	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	items, err := p.outbox.DequeueBatch(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("dequeue sync batch: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	var (
		pushed   int
		firstErr error
	)
	for _, item := range items {
		if ctx.Err() != nil {
			return pushed, ctx.Err()
		}
		if p.stopping() {
			return pushed, nil
		}

		if err := p.outbox.MarkProcessing(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark item as processing", "id", item.ID, "error", err)
			continue
		}

		if err := p.push(ctx, ownerOf(item, current), item); err != nil {
			p.handleFailure(ctx, item, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("sync %s %s: %w", item.Kind, item.RecordID, err)
			}
			continue
		}
		p.handleSuccess(ctx, item)
		pushed++
	}
	return pushed, firstErr
}

func ownerOf(item ledger.OutboxItem, current remote.Identity) remote.Identity {
	if item.UserID == "" || item.HouseholdID == "" {
		return current
	}
	return remote.Identity{UserID: item.UserID, Email: item.Email, HouseholdID: item.HouseholdID}
}

func (p *SyncProcessor) stopping() bool {
	p.mu.Lock()
	ch := p.stopCh
	p.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (p *SyncProcessor) push(ctx context.Context, id remote.Identity, item ledger.OutboxItem) error {
	switch {
	case item.Kind == ledger.KindTransaction && item.Operation == ledger.OpUpsert:
		var tx core.Transaction
		if err := json.Unmarshal(item.Payload, &tx); err != nil {
			return fmt.Errorf("decode transaction payload: %w", err)
		}
		return p.remote.UpsertTransaction(ctx, id, tx)

	case item.Kind == ledger.KindTransaction && item.Operation == ledger.OpDelete:
		return p.remote.DeleteTransaction(ctx, id, item.RecordID)

	case item.Kind == ledger.KindBudget && item.Operation == ledger.OpUpsert:
		var b core.MonthlyBudget
		if err := json.Unmarshal(item.Payload, &b); err != nil {
			return fmt.Errorf("decode budget payload: %w", err)
		}
		return p.remote.UpsertBudget(ctx, id, b)

	case item.Kind == ledger.KindBudget && item.Operation == ledger.OpDelete:
		var ptr core.BudgetPointer
		if err := json.Unmarshal(item.Payload, &ptr); err != nil {
			return fmt.Errorf("decode budget pointer: %w", err)
		}
		return p.remote.DeleteBudget(ctx, id, ptr.Year, ptr.Month)

	default:
		return fmt.Errorf("unknown sync item %s/%s", item.Kind, item.Operation)
	}
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, item ledger.OutboxItem) {
	if err := p.outbox.MarkComplete(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync complete", "id", item.ID, "error", err)
	}
}

func (p *SyncProcessor) handleFailure(ctx context.Context, item ledger.OutboxItem, processErr error) {
	attempt := item.Attempts + 1
	slog.WarnContext(ctx, "Sync processing failed",
		"id", item.ID,
		"kind", item.Kind,
		"operation", item.Operation,
		"attempt", attempt,
		"error", processErr)

	if attempt >= p.config.MaxRetries {
		if err := p.outbox.MarkFailed(ctx, item.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark sync as failed", "id", item.ID, "error", err)
		}
		slog.ErrorContext(ctx, "Sync item failed permanently after max retries",
			"id", item.ID,
			"record_id", item.RecordID,
			"attempts", attempt)
		return
	}

	next := p.now().Add(retryDelay(p.config.RetryBackoff, item.Attempts))
	if err := p.outbox.MarkRetry(ctx, item.ID, processErr.Error(), next); err != nil {
		slog.ErrorContext(ctx, "Failed to schedule sync retry", "id", item.ID, "error", err)
	}
}

// retryDelay doubles base per previous attempt, capped at maxRetryBackoff.
func retryDelay(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	return d
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	cutoff := p.now().Add(-p.config.CleanupAge)
	if err := p.outbox.CleanupCompleted(ctx, cutoff); err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup completed syncs", "error", err)
	}
}

// SyncResult reports a user-initiated sync.
type SyncResult struct {
	Pushed int                `json:"pushed"`
	Pulled MergeResult        `json:"pulled"`
	Queue  ledger.OutboxStats `json:"queue"`
}

// SyncNow pushes every due outbox item and then pulls the household's
// transactions. Unlike the background loop it returns the first failure.
func (p *SyncProcessor) SyncNow(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	for {
		n, err := p.processBatch(ctx)
		res.Pushed += n
		if err != nil {
			return res, err
		}
		if n < p.config.BatchSize {
			break
		}
	}

	pulled, err := p.Pull(ctx)
	if err != nil {
		return res, err
	}
	res.Pulled = pulled

	if st, err := p.outbox.Stats(ctx); err == nil {
		res.Queue = st
	}
	slog.InfoContext(ctx, "Manual sync finished",
		"pushed", res.Pushed,
		"added", pulled.Added,
		"updated", pulled.Updated)
	return res, nil
}

// Pull merges the household's remote transactions into the ledger.
func (p *SyncProcessor) Pull(ctx context.Context) (MergeResult, error) {
	id, ok := p.identities.Current()
	if !ok {
		return MergeResult{}, ErrNotSignedIn
	}
	txs, err := p.remote.PullTransactions(ctx, id)
	if err != nil {
		return MergeResult{}, fmt.Errorf("pull: %w", err)
	}
	return p.ledger.Merge(ctx, txs)
}

func (p *SyncProcessor) Stats(ctx context.Context) (ledger.OutboxStats, error) {
	return p.outbox.Stats(ctx)
}

// RetryFailed resets all failed items for retry
func (p *SyncProcessor) RetryFailed(ctx context.Context) error {
	if err := p.outbox.RetryFailed(ctx); err != nil {
		return err
	}
	p.Wake()
	return nil
}
