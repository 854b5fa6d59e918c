package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetbook/internal/amqp"
	"budgetbook/internal/analytics"
	"budgetbook/internal/cache"
	"budgetbook/internal/ledger"
	"budgetbook/internal/remote"
	"budgetbook/internal/services"
	"budgetbook/internal/sheets"
	gsheet "budgetbook/internal/sheets/google"
	sheetmem "budgetbook/internal/sheets/memory"
	"budgetbook/internal/storage"
	"budgetbook/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// local is what a backend type contributes: the ledger KV and the outbox.
type local struct {
	kv      ledger.KV
	outbox  ledger.Outbox
	cleanup func() error
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		loc local
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		loc, err = f.createSQLiteStore(config)
	case MemoryBackend:
		loc = f.createMemoryStore()
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	cleanups := []func() error{}
	if loc.cleanup != nil {
		cleanups = append(cleanups, loc.cleanup)
	}
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i]())
		}
		return errors.Join(errs...)
	}

	b := &Backend{
		Store:      ledger.New(loc.kv),
		Outbox:     loc.outbox,
		Identities: &services.Identities{},
		Caches:     cache.NewManager(),
	}

	// Initialize AMQP client (optional)
	var nudger services.Nudger
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync nudges", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			b.AMQP = client
			nudger = client
			cleanups = append(cleanups, client.Close)
		}
	}

	// Initialize remote bridge (optional)
	if config.RemoteDatabaseURL != "" {
		bridge, err := remote.Open(config.RemoteDatabaseURL)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to open remote database: %w", err)
		}
		b.Remote = bridge
		cleanups = append(cleanups, bridge.Close)
	}

	publisher, err := f.createPublisher(ctx, config)
	if err != nil {
		cleanup()
		return nil, err
	}

	b.Summaries = cache.NewLRUCache[analytics.Summary](config.SummaryCacheSize, config.SummaryCacheTTL)
	b.Caches.Register(b.Summaries)

	b.Ledger = services.NewLedgerService(b.Store, b.Outbox, nudger, b.Identities)
	b.Budgets = services.NewBudgetService(b.Store, b.Outbox, nudger, b.Identities)
	b.Reminders = services.NewReminderService(b.Store)
	b.Shopping = services.NewShoppingService(b.Store, b.Ledger)
	b.Analytics = services.NewAnalyticsService(b.Store, b.Budgets, b.Summaries, config.TrendMonths)
	b.Export = services.NewExportService(b.Ledger, b.Budgets, publisher, config.GoogleExportSheetName)

	if b.Remote != nil {
		b.Household = services.NewHouseholdService(b.Remote, b.Identities)
		b.SyncProcessor = services.NewSyncProcessor(b.Outbox, b.Remote, b.Ledger, b.Identities, config.SyncProcessorConfig())
	}
	b.Notifications = services.NewNotificationPoller(b.Reminders, b.Household, config.NotificationPollInterval, nil)

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"amqp_enabled", b.AMQP != nil,
		"remote_enabled", b.Remote != nil,
		"sheets_enabled", publisher != nil)

	return &BackendResult{
		Backend: b,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (local, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return local{}, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite ledger", "db_path", config.SQLiteDBPath)
	return local{kv: repo, outbox: repo, cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryStore() local {
	store := memory.New()
	f.logger.Info("Initialized memory ledger")
	return local{kv: store, outbox: store}
}

// createPublisher returns the Google Sheets client when configured. The
// memory backend falls back to an in-process sheet so export can be tried
// without credentials.
func (f *DefaultFactory) createPublisher(ctx context.Context, config Config) (sheets.Publisher, error) {
	if config.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return client, nil
	}
	if config.Type == MemoryBackend {
		return sheetmem.New(), nil
	}
	return nil, nil
}
