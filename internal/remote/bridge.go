// Package remote is the bridge to the hosted household database: the
// categories, accounts, transactions and budgets pushed by the sync
// processor, and the household membership and invite flows.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// sqliteDriver is the database/sql name modernc.org/sqlite registers. The
// gorm dialector runs on it, so the process carries a single SQLite engine.
const sqliteDriver = "sqlite"

var (
	ErrInviteNotPending = errors.New("invite is not pending")
	ErrInviteAccepted   = errors.New("invite was already accepted")
	ErrInvalidRole      = errors.New("role must be admin or member")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrNotMember        = errors.New("user is not a member of the household")
	ErrNotFound         = errors.New("not found")
)

// Identity is the signed-in user together with the household their
// records belong to.
type Identity struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	HouseholdID string `json:"householdId"`
}

type Bridge struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn and migrates the schema. A dsn starting with
// "sqlite:" opens a local file through modernc.org/sqlite; anything else is
// treated as a PostgreSQL connection string.
func Open(dsn string) (*Bridge, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		dialector = &sqlite.Dialector{DriverName: sqliteDriver, DSN: path}
	} else {
		if !strings.Contains(dsn, "sslmode") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "sslmode=require"
		}
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect remote database: %w", err)
	}
	return New(db)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB) (*Bridge, error) {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("migrate remote schema: %w", err)
	}
	return &Bridge{db: db, now: time.Now}, nil
}

func (b *Bridge) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Bridge) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// UpsertProfile records the identity provider's view of a user.
func (b *Bridge) UpsertProfile(ctx context.Context, p Profile) error {
	p.UpdatedAt = b.now()
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetOrCreateDefaultHousehold returns the household saved on the user's
// profile while they are still a member of it, otherwise the first household
// they belong to. A household they own is created when there is none.
func (b *Bridge) GetOrCreateDefaultHousehold(ctx context.Context, userID, email string) (Household, error) {
	var h Household
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Profile
		err := tx.First(&p, "id = ?", userID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && p.DefaultHouseholdID != nil {
			var n int64
			if err := tx.Model(&HouseholdMember{}).
				Where("household_id = ? AND user_id = ?", *p.DefaultHouseholdID, userID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return tx.First(&h, "id = ?", *p.DefaultHouseholdID).Error
			}
		}

		var m HouseholdMember
		err = tx.Where("user_id = ?", userID).Order("created_at").First(&m).Error
		if err == nil {
			return tx.First(&h, "id = ?", m.HouseholdID).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		h = Household{Name: "My Household", OwnerID: userID}
		if err := tx.Create(&h).Error; err != nil {
			return err
		}
		return tx.Create(&HouseholdMember{HouseholdID: h.ID, UserID: userID, Role: RoleOwner, Email: email}).Error
	})
	if err != nil {
		return Household{}, fmt.Errorf("default household: %w", err)
	}
	return h, nil
}

// EnsureMembership adds the user to the household with role unless a
// membership already exists. An existing role is never changed.
func (b *Bridge) EnsureMembership(ctx context.Context, householdID, userID, email string, role MemberRole) (HouseholdMember, error) {
	m := HouseholdMember{HouseholdID: householdID, UserID: userID}
	err := b.db.WithContext(ctx).
		Where(HouseholdMember{HouseholdID: householdID, UserID: userID}).
		Attrs(HouseholdMember{Role: role, Email: email}).
		FirstOrCreate(&m).Error
	if err != nil {
		return HouseholdMember{}, fmt.Errorf("ensure membership: %w", err)
	}
	return m, nil
}

func (b *Bridge) ListMembers(ctx context.Context, householdID string) ([]HouseholdMember, error) {
	var members []HouseholdMember
	if err := b.db.WithContext(ctx).Where("household_id = ?", householdID).Order("created_at").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (b *Bridge) IsMember(ctx context.Context, householdID, userID string) (bool, error) {
	var n int64
	err := b.db.WithContext(ctx).Model(&HouseholdMember{}).
		Where("household_id = ? AND user_id = ?", householdID, userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

func (b *Bridge) CreateInvite(ctx context.Context, householdID, email string, role MemberRole, invitedBy string) (HouseholdInvite, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || strings.ContainsAny(email, " \t\n") {
		return HouseholdInvite{}, ErrInvalidEmail
	}
	if role != RoleAdmin && role != RoleMember {
		return HouseholdInvite{}, ErrInvalidRole
	}
	inv := HouseholdInvite{
		HouseholdID: householdID,
		Email:       email,
		Role:        role,
		Token:       uuid.NewString(),
		Status:      InvitePending,
		InvitedBy:   invitedBy,
	}
	if err := b.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return HouseholdInvite{}, fmt.Errorf("create invite: %w", err)
	}
	slog.InfoContext(ctx, "Household invite created", "household_id", householdID, "invite_id", inv.ID, "role", role)
	return inv, nil
}

// ListInvites returns the household's pending invites, newest first.
func (b *Bridge) ListInvites(ctx context.Context, householdID string) ([]HouseholdInvite, error) {
	var invites []HouseholdInvite
	err := b.db.WithContext(ctx).
		Where("household_id = ? AND status = ?", householdID, InvitePending).
		Order("created_at DESC").Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}

// ListInvitesForEmail returns pending invites addressed to email across
// all households.
func (b *Bridge) ListInvitesForEmail(ctx context.Context, email string) ([]HouseholdInvite, error) {
	var invites []HouseholdInvite
	err := b.db.WithContext(ctx).
		Where("email = ? AND status = ?", strings.ToLower(strings.TrimSpace(email)), InvitePending).
		Order("created_at DESC").Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("list invites for email: %w", err)
	}
	return invites, nil
}

// RevokeInvite deletes a pending invite. Accepted invites are kept.
func (b *Bridge) RevokeInvite(ctx context.Context, householdID, inviteID string) error {
	var inv HouseholdInvite
	err := b.db.WithContext(ctx).First(&inv, "id = ? AND household_id = ?", inviteID, householdID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load invite: %w", err)
	}
	if inv.Status == InviteAccepted {
		return ErrInviteAccepted
	}
	if err := b.db.WithContext(ctx).Delete(&HouseholdInvite{}, "id = ?", inviteID).Error; err != nil {
		return fmt.Errorf("revoke invite: %w", err)
	}
	return nil
}

// AcceptInvite flips a pending invite to accepted and adds the user to the
// household. The status flip is conditional, so concurrent accepts of the
// same invite succeed at most once.
func (b *Bridge) AcceptInvite(ctx context.Context, inviteID, userID, email string) (HouseholdMember, error) {
	var member HouseholdMember
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv HouseholdInvite
		if err := tx.First(&inv, "id = ?", inviteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !strings.EqualFold(inv.Email, strings.TrimSpace(email)) {
			return ErrNotFound
		}

		now := b.now()
		res := tx.Model(&HouseholdInvite{}).
			Where("id = ? AND status = ?", inviteID, InvitePending).
			Updates(map[string]any{"status": InviteAccepted, "accepted_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteNotPending
		}

		member = HouseholdMember{HouseholdID: inv.HouseholdID, UserID: userID}
		if err := tx.Where(HouseholdMember{HouseholdID: inv.HouseholdID, UserID: userID}).
			Attrs(HouseholdMember{Role: inv.Role, Email: inv.Email}).
			FirstOrCreate(&member).Error; err != nil {
			return err
		}

		householdID := inv.HouseholdID
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"default_household_id", "updated_at"}),
		}).Create(&Profile{ID: userID, Email: inv.Email, DefaultHouseholdID: &householdID, UpdatedAt: now}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInviteNotPending) {
			return HouseholdMember{}, err
		}
		return HouseholdMember{}, fmt.Errorf("accept invite: %w", err)
	}
	slog.InfoContext(ctx, "Household invite accepted", "invite_id", inviteID, "household_id", member.HouseholdID)
	return member, nil
}
