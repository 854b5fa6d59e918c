package backend

import (
	"context"

	"budgetbook/internal/amqp"
	"budgetbook/internal/analytics"
	"budgetbook/internal/cache"
	"budgetbook/internal/ledger"
	"budgetbook/internal/remote"
	"budgetbook/internal/services"
)

// Backend is the assembled application: local ledger, optional remote and
// messaging integrations, and the services built on them. Optional parts
// are nil when not configured.
type Backend struct {
	Store  *ledger.Store
	Outbox ledger.Outbox

	AMQP   *amqp.Client
	Remote *remote.Bridge

	Summaries *cache.LRUCache[analytics.Summary]
	Caches    *cache.Manager

	Identities *services.Identities
	Ledger     *services.LedgerService
	Budgets    *services.BudgetService
	Reminders  *services.ReminderService
	Shopping   *services.ShoppingService
	Analytics  *services.AnalyticsService
	Export     *services.ExportService

	// Set only when a remote database is configured.
	Household     *services.HouseholdService
	SyncProcessor *services.SyncProcessor

	Notifications *services.NotificationPoller
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
