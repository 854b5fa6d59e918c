package http

import (
	"net/http"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
)

func reminderFromRequest(r *http.Request) (core.CreditCardReminder, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.CreditCardReminder{}, err
	}
	due, err := p.GetInt("dueDay", 0)
	if err != nil {
		return core.CreditCardReminder{}, err
	}
	lead, err := p.GetInt("reminderDaysBefore", 3)
	if err != nil {
		return core.CreditCardReminder{}, err
	}
	return core.CreditCardReminder{
		Name:               p.Get("name"),
		LastFour:           p.Get("lastFour"),
		DueDay:             due,
		ReminderDaysBefore: lead,
		Active:             p.GetBool("active", true),
	}, nil
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Reminders.List(r.Context()))
}

// handleDueReminders lists active reminders inside their lead window today.
func (s *Server) handleDueReminders(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	type dueReminder struct {
		core.CreditCardReminder
		DaysUntilDue int `json:"daysUntilDue"`
	}
	due := s.app.Reminders.Due(r.Context(), today)
	out := make([]dueReminder, 0, len(due))
	for _, rem := range due {
		out = append(out, dueReminder{CreditCardReminder: rem, DaysUntilDue: rem.DaysUntilDue(today)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := reminderFromRequest(r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	saved, err := s.app.Reminders.Create(r.Context(), rem)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.refreshNotifications(r)
	respond(w, r, http.StatusCreated, saved, func(b *HTMXResponseBuilder) {
		b.Trigger(EventRemindersChange, struct{}{}).
			TriggerFormReset().
			TriggerSuccessNotification("Reminder added")
	})
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := reminderFromRequest(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	saved, err := s.app.Reminders.Update(r.Context(), r.PathValue("id"), rem)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.refreshNotifications(r)
	respond(w, r, http.StatusOK, saved, func(b *HTMXResponseBuilder) {
		b.Trigger(EventRemindersChange, struct{}{})
	})
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Reminders.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.refreshNotifications(r)
	respond(w, r, http.StatusNoContent, nil, func(b *HTMXResponseBuilder) {
		b.Status(http.StatusOK).Trigger(EventRemindersChange, struct{}{})
	})
}

// refreshNotifications rebuilds the notification list after a change the
// poller would otherwise only pick up on its next tick.
func (s *Server) refreshNotifications(r *http.Request) {
	if err := s.app.Notifications.Refresh(r.Context()); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Notification refresh failed",
			applog.FieldError, err,
			applog.FieldComponent, applog.ComponentNotifications)
	}
}
