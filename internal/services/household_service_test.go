package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/remote"
	"budgetbook/internal/storage/memory"
)

func newHouseholdService(t *testing.T) (*HouseholdService, *remote.Bridge) {
	t.Helper()
	bridge, err := remote.Open("sqlite:" + filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("open bridge: %v", err)
	}
	t.Cleanup(func() { bridge.Close() })
	return NewHouseholdService(bridge, &Identities{}), bridge
}

func TestHouseholdRequiresSignIn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newHouseholdService(t)

	if _, err := svc.View(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("View err = %v", err)
	}
	if _, err := svc.Invite(ctx, "x@example.com", remote.RoleMember); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Invite err = %v", err)
	}
	if _, err := svc.Accept(ctx, "id"); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Accept err = %v", err)
	}
}

func TestHouseholdInviteAndAccept(t *testing.T) {
	ctx := context.Background()
	owner, bridge := newHouseholdService(t)
	guest := NewHouseholdService(bridge, &Identities{})

	ownerID, err := owner.SignIn(ctx, "owner", "owner@example.com", "Owner")
	if err != nil {
		t.Fatal(err)
	}
	view, err := owner.View(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Role != remote.RoleOwner || len(view.Members) != 1 {
		t.Fatalf("owner view = %+v", view)
	}

	inv, err := owner.Invite(ctx, "Guest@Example.com", remote.RoleMember)
	if err != nil {
		t.Fatal(err)
	}

	guestID, err := guest.SignIn(ctx, "guest", "guest@example.com", "Guest")
	if err != nil {
		t.Fatal(err)
	}
	if guestID.HouseholdID == ownerID.HouseholdID {
		t.Fatal("guest should start in their own household")
	}
	mine, err := guest.MyInvites(ctx)
	if err != nil || len(mine) != 1 || mine[0].ID != inv.ID {
		t.Fatalf("guest invites = %+v %v", mine, err)
	}

	m, err := guest.Accept(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if m.HouseholdID != ownerID.HouseholdID || m.Role != remote.RoleMember {
		t.Fatalf("membership = %+v", m)
	}
	gv, err := guest.View(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if gv.Identity.HouseholdID != ownerID.HouseholdID || len(gv.Members) != 2 {
		t.Fatalf("guest view = %+v", gv)
	}

	// Plain members cannot manage invites.
	if _, err := guest.Invite(ctx, "third@example.com", remote.RoleMember); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member invite err = %v", err)
	}
	if _, err := guest.Accept(ctx, inv.ID); !errors.Is(err, remote.ErrInviteNotPending) {
		t.Fatalf("second accept err = %v", err)
	}

	guest.SignOut(ctx)
	again, err := guest.SignIn(ctx, "guest", "guest@example.com", "Guest")
	if err != nil {
		t.Fatal(err)
	}
	if again.HouseholdID != ownerID.HouseholdID {
		t.Fatalf("household after sign-in = %q, want joined %q", again.HouseholdID, ownerID.HouseholdID)
	}
}

func TestHouseholdRevoke(t *testing.T) {
	ctx := context.Background()
	svc, _ := newHouseholdService(t)
	if _, err := svc.SignIn(ctx, "owner", "owner@example.com", ""); err != nil {
		t.Fatal(err)
	}
	inv, err := svc.Invite(ctx, "later@example.com", remote.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Revoke(ctx, inv.ID); err != nil {
		t.Fatal(err)
	}
	view, _ := svc.View(ctx)
	if len(view.Invites) != 0 {
		t.Fatalf("invites after revoke = %+v", view.Invites)
	}

	svc.SignOut(ctx)
	if _, err := svc.View(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("after sign out err = %v", err)
	}
}

func TestNotificationPoller(t *testing.T) {
	ctx := context.Background()
	household, bridge := newHouseholdService(t)
	invited := NewHouseholdService(bridge, &Identities{})

	store := ledger.New(memory.New())
	reminders := NewReminderService(store)
	for _, r := range []core.CreditCardReminder{
		{Name: "Visa", LastFour: "4242", DueDay: 15, ReminderDaysBefore: 3, Active: true},
		{Name: "Store card", DueDay: 16, ReminderDaysBefore: 1, Active: true},
		{Name: "Amex", DueDay: 20, ReminderDaysBefore: 2, Active: true},
	} {
		if _, err := reminders.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := household.SignIn(ctx, "owner", "owner@example.com", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := household.Invite(ctx, "friend@example.com", remote.RoleMember); err != nil {
		t.Fatal(err)
	}
	if _, err := invited.SignIn(ctx, "friend", "friend@example.com", ""); err != nil {
		t.Fatal(err)
	}

	today := func() core.Date { return core.NewDate(2025, 3, 15) }
	poller := NewNotificationPoller(reminders, invited, time.Hour, today)
	if err := poller.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	items, at := poller.Notifications()
	if at.IsZero() {
		t.Error("refresh time not recorded")
	}
	if len(items) != 3 {
		t.Fatalf("notifications = %+v", items)
	}

	messages := map[string]string{}
	for _, n := range items {
		messages[n.Title] = n.Message
	}
	if messages["Visa ••4242"] != "Payment due today" {
		t.Errorf("visa = %q", messages["Visa ••4242"])
	}
	if messages["Store card"] != "Payment due tomorrow" {
		t.Errorf("store card = %q", messages["Store card"])
	}
	if !strings.Contains(messages["Household invite"], "member") {
		t.Errorf("invite = %q", messages["Household invite"])
	}

	// Without a signed-in identity invites are skipped, not an error.
	invited.SignOut(ctx)
	if err := poller.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if items, _ := poller.Notifications(); len(items) != 2 {
		t.Fatalf("signed-out notifications = %+v", items)
	}
}

func TestNotificationPollerWithoutHousehold(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := ledger.New(memory.New())
	reminders := NewReminderService(store)
	if _, err := reminders.Create(ctx, core.CreditCardReminder{Name: "Visa", DueDay: 3, ReminderDaysBefore: 5, Active: true}); err != nil {
		t.Fatal(err)
	}

	poller := NewNotificationPoller(reminders, nil, time.Hour, func() core.Date { return core.NewDate(2025, 1, 1) })
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for {
		items, _ := poller.Notifications()
		if len(items) == 1 {
			if items[0].DueInDays != 2 || items[0].Message != "Payment due in 2 days" {
				t.Errorf("notification = %+v", items[0])
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("poller never refreshed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
