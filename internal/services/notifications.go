package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/core"
)

type NotificationKind string

const (
	NotifyReminder NotificationKind = "reminder"
	NotifyInvite   NotificationKind = "invite"
)

type Notification struct {
	Kind      NotificationKind `json:"kind"`
	RefID     string           `json:"refId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	DueInDays int              `json:"dueInDays,omitempty"`
}

// NotificationPoller rebuilds the notification list on a fixed interval
// from due card reminders and pending household invites.
type NotificationPoller struct {
	reminders *ReminderService
	household *HouseholdService
	interval  time.Duration
	today     func() core.Date

	mu    sync.RWMutex
	items []Notification
	at    time.Time
}

// NewNotificationPoller builds a poller. household may be nil when no
// remote database is configured.
func NewNotificationPoller(reminders *ReminderService, household *HouseholdService, interval time.Duration, today func() core.Date) *NotificationPoller {
	if today == nil {
		today = func() core.Date { return core.DateOf(time.Now()) }
	}
	return &NotificationPoller{reminders: reminders, household: household, interval: interval, today: today}
}

// Run refreshes immediately and then every interval until ctx is done.
func (p *NotificationPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "Notification poller stopped")
			return
		case <-ticker.C:
			p.refreshAndLog(ctx)
		}
	}
}

func (p *NotificationPoller) refreshAndLog(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Notification refresh failed", "error", err)
	}
}

// Refresh recomputes the list. On error the previous list is kept.
func (p *NotificationPoller) Refresh(ctx context.Context) error {
	var reminders, invites []Notification
	today := p.today()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, r := range p.reminders.Due(gctx, today) {
			n := r.DaysUntilDue(today)
			msg := fmt.Sprintf("Payment due in %d days", n)
			switch n {
			case 0:
				msg = "Payment due today"
			case 1:
				msg = "Payment due tomorrow"
			}
			title := r.Name
			if r.LastFour != "" {
				title = fmt.Sprintf("%s ••%s", r.Name, r.LastFour)
			}
			reminders = append(reminders, Notification{
				Kind: NotifyReminder, RefID: r.ID, Title: title, Message: msg, DueInDays: n,
			})
		}
		return nil
	})
	if p.household != nil {
		g.Go(func() error {
			pending, err := p.household.MyInvites(gctx)
			if err != nil {
				if errors.Is(err, ErrNotSignedIn) {
					return nil
				}
				return err
			}
			for _, inv := range pending {
				invites = append(invites, Notification{
					Kind:    NotifyInvite,
					RefID:   inv.ID,
					Title:   "Household invite",
					Message: fmt.Sprintf("You were invited to join a household as %s", inv.Role),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	items := append(reminders, invites...)
	p.mu.Lock()
	p.items = items
	p.at = time.Now()
	p.mu.Unlock()
	return nil
}

// Notifications returns the latest list and when it was built.
func (p *NotificationPoller) Notifications() ([]Notification, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Notification(nil), p.items...), p.at
}
