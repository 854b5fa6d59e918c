package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"budgetbook/internal/core"
)

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b, err := Open("sqlite:" + filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestDefaultHouseholdIsCreatedOnce(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	h1, err := b.GetOrCreateDefaultHousehold(ctx, "user-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := b.GetOrCreateDefaultHousehold(ctx, "user-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if h1.ID == "" || h1.ID != h2.ID {
		t.Fatalf("household ids %q and %q", h1.ID, h2.ID)
	}

	members, err := b.ListMembers(ctx, h1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].Role != RoleOwner || members[0].UserID != "user-1" {
		t.Fatalf("members = %+v", members)
	}

	m, err := b.EnsureMembership(ctx, h1.ID, "user-1", "", RoleMember)
	if err != nil || m.Role != RoleOwner {
		t.Fatalf("EnsureMembership must not change role: %+v %v", m, err)
	}
}

func TestInviteFlow(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)
	h, _ := b.GetOrCreateDefaultHousehold(ctx, "owner", "owner@example.com")

	tests := []struct {
		name  string
		email string
		role  MemberRole
		want  error
	}{
		{"owner role rejected", "x@example.com", RoleOwner, ErrInvalidRole},
		{"bad email", "not-an-email", RoleMember, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.CreateInvite(ctx, h.ID, tt.email, tt.role, "owner"); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	inv, err := b.CreateInvite(ctx, h.ID, " Friend@Example.com ", RoleAdmin, "owner")
	if err != nil {
		t.Fatal(err)
	}
	if inv.Email != "friend@example.com" || inv.Token == "" || inv.Status != InvitePending {
		t.Fatalf("invite = %+v", inv)
	}

	pending, _ := b.ListInvitesForEmail(ctx, "FRIEND@example.com")
	if len(pending) != 1 {
		t.Fatalf("pending for email = %+v", pending)
	}

	if _, err := b.AcceptInvite(ctx, inv.ID, "friend", "someone-else@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("accept with wrong email err = %v", err)
	}

	m, err := b.AcceptInvite(ctx, inv.ID, "friend", "friend@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if m.HouseholdID != h.ID || m.Role != RoleAdmin {
		t.Fatalf("member = %+v", m)
	}
	if _, err := b.AcceptInvite(ctx, inv.ID, "friend", "friend@example.com"); !errors.Is(err, ErrInviteNotPending) {
		t.Fatalf("second accept err = %v", err)
	}
	if err := b.RevokeInvite(ctx, h.ID, inv.ID); !errors.Is(err, ErrInviteAccepted) {
		t.Fatalf("revoke accepted err = %v", err)
	}
	if ok, _ := b.IsMember(ctx, h.ID, "friend"); !ok {
		t.Fatal("friend should be a member")
	}
	if def, err := b.GetOrCreateDefaultHousehold(ctx, "friend", "friend@example.com"); err != nil || def.ID != h.ID {
		t.Fatalf("default household after accept = %+v %v", def, err)
	}

	list, _ := b.ListInvites(ctx, h.ID)
	if len(list) != 0 {
		t.Fatalf("accepted invite still listed as pending: %+v", list)
	}
}

func TestRevokePendingInvite(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)
	h, _ := b.GetOrCreateDefaultHousehold(ctx, "owner", "")
	inv, _ := b.CreateInvite(ctx, h.ID, "y@example.com", RoleMember, "owner")

	if err := b.RevokeInvite(ctx, h.ID, inv.ID); err != nil {
		t.Fatal(err)
	}
	if err := b.RevokeInvite(ctx, h.ID, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second revoke err = %v", err)
	}
}

func TestTransactionSync(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)
	h, _ := b.GetOrCreateDefaultHousehold(ctx, "u", "")
	id := Identity{UserID: "u", HouseholdID: h.ID}

	tx := core.Transaction{
		Description:   "Groceries",
		Category:      "Food",
		Amount:        core.Money{Cents: -4250},
		Date:          core.NewDate(2025, 4, 3),
		PaymentMethod: "Credit Card",
	}
	tx.ID = "local-1"
	tx.CreatedAt = time.Date(2025, 4, 3, 10, 0, 0, 0, time.UTC)
	tx.UpdatedAt = tx.CreatedAt

	if err := b.UpsertTransaction(ctx, id, tx); err != nil {
		t.Fatal(err)
	}
	tx.Description = "Groceries (market)"
	tx.UpdatedAt = tx.UpdatedAt.Add(time.Hour)
	if err := b.UpsertTransaction(ctx, id, tx); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := b.PullTransactions(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("pulled %d rows, want 1", len(got))
	}
	p := got[0]
	if p.ID != "local-1" || p.Description != "Groceries (market)" || p.Amount.Cents != -4250 ||
		p.Category != "Food" || p.PaymentMethod != "Credit Card" || p.Date.String() != "2025-04-03" {
		t.Fatalf("pulled = %+v", p)
	}

	acct, _ := b.EnsureAccount(ctx, h.ID, "Credit Card")
	if acct.Type != AccountCreditCard {
		t.Fatalf("account type = %s", acct.Type)
	}

	if err := b.DeleteTransaction(ctx, id, "local-1"); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteTransaction(ctx, id, "local-1"); err != nil {
		t.Fatalf("delete of missing row: %v", err)
	}
	got, _ = b.PullTransactions(ctx, id)
	if len(got) != 0 {
		t.Fatalf("rows after delete = %+v", got)
	}
}

func TestBudgetSync(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)
	h, _ := b.GetOrCreateDefaultHousehold(ctx, "u", "")
	id := Identity{UserID: "u", HouseholdID: h.ID}

	budget := core.MonthlyBudget{Year: 2025, Month: 6, Categories: []core.CategoryBudget{
		{Category: "Food", Amount: core.Money{Cents: 30000}},
		{Category: "Transport", Amount: core.Money{Cents: 8000}},
	}}
	if err := b.UpsertBudget(ctx, id, budget); err != nil {
		t.Fatal(err)
	}
	budget.Categories = budget.Categories[:1]
	budget.Categories[0].Amount = core.Money{Cents: 35050}
	if err := b.UpsertBudget(ctx, id, budget); err != nil {
		t.Fatal(err)
	}

	rows, err := b.BudgetRows(ctx, id, 2025, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows["Food"].Cents != 35050 {
		t.Fatalf("rows = %+v", rows)
	}

	if err := b.DeleteBudget(ctx, id, 2025, 6); err != nil {
		t.Fatal(err)
	}
	rows, _ = b.BudgetRows(ctx, id, 2025, 6)
	if len(rows) != 0 {
		t.Fatalf("rows after delete = %+v", rows)
	}
}

func TestAccountTypeFor(t *testing.T) {
	tests := map[string]AccountType{
		"Cash":        AccountCash,
		"Credit Card": AccountCreditCard,
		"PayPal":      AccountEWallet,
		"Debit Card":  AccountBank,
	}
	for label, want := range tests {
		if got := AccountTypeFor(label); got != want {
			t.Errorf("AccountTypeFor(%q) = %s, want %s", label, got, want)
		}
	}
}

func TestOpenUsesModerncDriver(t *testing.T) {
	b := newTestBridge(t)
	d, ok := b.db.Dialector.(*sqlite.Dialector)
	if !ok || d.DriverName != sqliteDriver {
		t.Fatalf("dialector = %#v", b.db.Dialector)
	}
	if err := b.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}
