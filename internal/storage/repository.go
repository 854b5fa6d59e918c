// Package storage keeps the ledger and its sync outbox in a local SQLite
// database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetbook/internal/ledger"

	_ "modernc.org/sqlite"
)

var (
	_ ledger.KV     = (*SQLiteRepository)(nil)
	_ ledger.Outbox = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	now     func() time.Time
	version uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := Migrate(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Ledger schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db, now: time.Now, version: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint { return r.version }

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ledger_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, millis(r.now()))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ledger_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every ledger document. The outbox is left alone so that a
// sign-out does not drop unsynced changes.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ledger_kv`); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, item ledger.OutboxItem) (int64, error) {
	now := millis(r.now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_outbox (kind, record_id, operation, payload, user_id, email, household_id, status, attempts, created_at, updated_at, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', 0, ?, ?, ?)`,
		string(item.Kind), item.RecordID, string(item.Operation), item.Payload,
		item.UserID, item.Email, item.HouseholdID, now, now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue sync item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue sync item id: %w", err)
	}
	slog.DebugContext(ctx, "Sync item enqueued", "id", id, "kind", item.Kind, "record_id", item.RecordID, "operation", item.Operation)
	return id, nil
}

const outboxColumns = `id, kind, record_id, operation, payload, user_id, email, household_id, status, attempts, last_error, created_at, updated_at, next_attempt_at`

func (r *SQLiteRepository) DequeueBatch(ctx context.Context, limit int) ([]ledger.OutboxItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+outboxColumns+` FROM sync_outbox
		WHERE status = 'pending' AND next_attempt_at <= ?
		ORDER BY id
		LIMIT ?`, millis(r.now()), limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue sync batch: %w", err)
	}
	defer rows.Close()

	var items []ledger.OutboxItem
	for rows.Next() {
		var (
			it                     ledger.OutboxItem
			kind, op, status       string
			created, updated, next int64
		)
		if err := rows.Scan(&it.ID, &kind, &it.RecordID, &op, &it.Payload, &it.UserID, &it.Email, &it.HouseholdID, &status, &it.Attempts, &it.LastError, &created, &updated, &next); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		it.Kind = ledger.SyncKind(kind)
		it.Operation = ledger.SyncOperation(op)
		it.Status = ledger.OutboxStatus(status)
		it.CreatedAt, it.UpdatedAt, it.NextAttemptAt = fromMillis(created), fromMillis(updated), fromMillis(next)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkProcessing(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark sync processing",
		`UPDATE sync_outbox SET status = 'processing', updated_at = ? WHERE id = ?`, millis(r.now()), id)
}

func (r *SQLiteRepository) MarkComplete(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark sync complete",
		`UPDATE sync_outbox SET status = 'completed', updated_at = ? WHERE id = ?`, millis(r.now()), id)
}

func (r *SQLiteRepository) MarkRetry(ctx context.Context, id int64, errMsg string, next time.Time) error {
	return r.exec(ctx, "mark sync retry", `
		UPDATE sync_outbox
		SET status = 'pending', attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ?`, truncate(errMsg), millis(next), millis(r.now()), id)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return r.exec(ctx, "mark sync failed", `
		UPDATE sync_outbox
		SET status = 'failed', attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?`, truncate(errMsg), millis(r.now()), id)
}

func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) error {
	return r.exec(ctx, "reset stale processing",
		`UPDATE sync_outbox SET status = 'pending', updated_at = ? WHERE status = 'processing'`, millis(r.now()))
}

func (r *SQLiteRepository) RetryFailed(ctx context.Context) error {
	now := millis(r.now())
	return r.exec(ctx, "retry failed syncs", `
		UPDATE sync_outbox SET status = 'pending', attempts = 0, next_attempt_at = ?, updated_at = ?
		WHERE status = 'failed'`, now, now)
}

func (r *SQLiteRepository) CleanupCompleted(ctx context.Context, before time.Time) error {
	return r.exec(ctx, "cleanup completed syncs",
		`DELETE FROM sync_outbox WHERE status = 'completed' AND updated_at < ?`, millis(before))
}

func (r *SQLiteRepository) Stats(ctx context.Context) (ledger.OutboxStats, error) {
	var st ledger.OutboxStats
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_outbox GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("sync queue stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return st, fmt.Errorf("scan sync queue stats: %w", err)
		}
		switch ledger.OutboxStatus(status) {
		case ledger.StatusPending:
			st.Pending = n
		case ledger.StatusProcessing:
			st.Processing = n
		case ledger.StatusCompleted:
			st.Completed = n
		case ledger.StatusFailed:
			st.Failed = n
		}
	}
	return st, rows.Err()
}

func truncate(s string) string {
	const max = 500
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max]
	}
	return s
}
