package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/remote"
)

var (
	ErrNotSignedIn = errors.New("not signed in")
	ErrForbidden   = errors.New("not allowed for this household role")
)

// Nudger wakes sync workers after an outbox write. *amqp.Client
// implements it.
type Nudger interface {
	PublishSyncNudge(ctx context.Context, outboxID int64, kind, recordID, operation string) error
}

// RemoteSync is the part of the remote bridge the sync processor drives.
type RemoteSync interface {
	UpsertTransaction(ctx context.Context, id remote.Identity, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id remote.Identity, clientID string) error
	UpsertBudget(ctx context.Context, id remote.Identity, b core.MonthlyBudget) error
	DeleteBudget(ctx context.Context, id remote.Identity, year, month int) error
	PullTransactions(ctx context.Context, id remote.Identity) ([]core.Transaction, error)
}

// HouseholdBridge is the part of the remote bridge behind household
// management.
type HouseholdBridge interface {
	UpsertProfile(ctx context.Context, p remote.Profile) error
	GetOrCreateDefaultHousehold(ctx context.Context, userID, email string) (remote.Household, error)
	EnsureMembership(ctx context.Context, householdID, userID, email string, role remote.MemberRole) (remote.HouseholdMember, error)
	ListMembers(ctx context.Context, householdID string) ([]remote.HouseholdMember, error)
	CreateInvite(ctx context.Context, householdID, email string, role remote.MemberRole, invitedBy string) (remote.HouseholdInvite, error)
	ListInvites(ctx context.Context, householdID string) ([]remote.HouseholdInvite, error)
	ListInvitesForEmail(ctx context.Context, email string) ([]remote.HouseholdInvite, error)
	RevokeInvite(ctx context.Context, householdID, inviteID string) error
	AcceptInvite(ctx context.Context, inviteID, userID, email string) (remote.HouseholdMember, error)
}

var (
	_ RemoteSync      = (*remote.Bridge)(nil)
	_ HouseholdBridge = (*remote.Bridge)(nil)
)

// Identities holds the signed-in user. Sync and household operations are
// skipped or rejected while it is empty.
type Identities struct {
	mu sync.RWMutex
	id remote.Identity
	ok bool
}

func (s *Identities) Set(id remote.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.ok = id, true
}

func (s *Identities) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.ok = remote.Identity{}, false
}

func (s *Identities) Current() (remote.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.ok
}

// syncQueue records local changes in the outbox, stamped with the identity
// signed in at the time. Every field is optional; without an outbox the
// ledger runs local-only.
type syncQueue struct {
	outbox     ledger.Outbox
	nudger     Nudger
	identities *Identities
}

// push never fails the caller: the local write already succeeded.
func (q syncQueue) push(ctx context.Context, kind ledger.SyncKind, recordID string, op ledger.SyncOperation, payload any) {
	if q.outbox == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode sync payload", "kind", kind, "record_id", recordID, "error", err)
		return
	}
	item := ledger.OutboxItem{Kind: kind, RecordID: recordID, Operation: op, Payload: raw}
	if q.identities != nil {
		if owner, ok := q.identities.Current(); ok {
			item.UserID, item.Email, item.HouseholdID = owner.UserID, owner.Email, owner.HouseholdID
		}
	}
	id, err := q.outbox.Enqueue(ctx, item)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to enqueue sync item", "kind", kind, "record_id", recordID, "error", err)
		return
	}
	if q.nudger == nil {
		return
	}
	if err := q.nudger.PublishSyncNudge(ctx, id, string(kind), recordID, string(op)); err != nil {
		slog.WarnContext(ctx, "Failed to publish sync nudge", "outbox_id", id, "error", err)
	}
}
