package core

import (
	"errors"
	"strings"
)

var (
	ErrInvalidDueDay   = errors.New("due day must be between 1 and 31")
	ErrInvalidLeadDays = errors.New("reminder days must be between 0 and 31")
	ErrInvalidLastFour = errors.New("last four must be exactly four digits")
)

// CreditCardReminder tracks a recurring card payment due date.
type CreditCardReminder struct {
	Meta
	Name               string `json:"name"`
	LastFour           string `json:"lastFour,omitempty"`
	DueDay             int    `json:"dueDay"`
	ReminderDaysBefore int    `json:"reminderDaysBefore"`
	Active             bool   `json:"active"`
}

func (r CreditCardReminder) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyDescription
	}
	if r.DueDay < 1 || r.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if r.ReminderDaysBefore < 0 || r.ReminderDaysBefore > 31 {
		return ErrInvalidLeadDays
	}
	if r.LastFour != "" {
		if len(r.LastFour) != 4 {
			return ErrInvalidLastFour
		}
		for _, c := range r.LastFour {
			if c < '0' || c > '9' {
				return ErrInvalidLastFour
			}
		}
	}
	return nil
}

// DueDayIn clamps the configured due day to the length of the given month.
func (r CreditCardReminder) DueDayIn(year, month int) int {
	days := DaysInMonth(year, month)
	if r.DueDay > days {
		return days
	}
	return r.DueDay
}

// DaysUntilDue counts days from today to the next due day, wrapping across
// the end of the month. It is 0 on the due day itself.
func (r CreditCardReminder) DaysUntilDue(today Date) int {
	year, month, day, ok := today.Parts()
	if !ok {
		return -1
	}
	days := DaysInMonth(year, month)
	due := r.DueDayIn(year, month)
	return ((due-day)%days + days) % days
}

// IsDue reports whether an active reminder falls inside its lead window.
func (r CreditCardReminder) IsDue(today Date) bool {
	if !r.Active {
		return false
	}
	n := r.DaysUntilDue(today)
	return n >= 0 && n <= r.ReminderDaysBefore
}
