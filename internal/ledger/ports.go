package ledger

import (
	"context"
	"time"
)

// KV is the persistence port behind the ledger: named keys each holding one
// JSON document. Implementations must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

type SyncOperation string

const (
	OpUpsert SyncOperation = "upsert"
	OpDelete SyncOperation = "delete"
)

type SyncKind string

const (
	KindTransaction SyncKind = "transaction"
	KindBudget      SyncKind = "budget"
)

type OutboxStatus string

const (
	StatusPending    OutboxStatus = "pending"
	StatusProcessing OutboxStatus = "processing"
	StatusCompleted  OutboxStatus = "completed"
	StatusFailed     OutboxStatus = "failed"
)

// OutboxItem is one pending change waiting to be pushed to the remote
// database. Payload holds the JSON of the record at enqueue time; the owner
// fields name the user and household that made the change.
type OutboxItem struct {
	ID            int64
	Kind          SyncKind
	RecordID      string
	Operation     SyncOperation
	Payload       []byte
	UserID        string
	Email         string
	HouseholdID   string
	Status        OutboxStatus
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	NextAttemptAt time.Time
}

type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// Outbox persists sync work so that remote failures never lose local
// changes.
type Outbox interface {
	Enqueue(ctx context.Context, item OutboxItem) (int64, error)
	// DequeueBatch returns up to limit pending items whose retry time has
	// passed, oldest first.
	DequeueBatch(ctx context.Context, limit int) ([]OutboxItem, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkComplete(ctx context.Context, id int64) error
	// MarkRetry returns the item to pending with one more attempt recorded
	// and a retry time of next.
	MarkRetry(ctx context.Context, id int64, errMsg string, next time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ResetStaleProcessing(ctx context.Context) error
	RetryFailed(ctx context.Context) error
	CleanupCompleted(ctx context.Context, before time.Time) error
	Stats(ctx context.Context) (OutboxStats, error)
}
