package analytics

import (
	"sort"

	"budgetbook/internal/core"
)

const (
	LabelToday       = "Today"
	LabelYesterday   = "Yesterday"
	LabelUnknownDate = "Unknown date"

	dateLabelLayout = "Mon, Jan 2, 2006"
)

// DateGroup holds the transactions that share one calendar date.
type DateGroup struct {
	Date         core.Date          `json:"date"`
	Label        string             `json:"label"`
	Total        core.Money         `json:"total"`
	Transactions []core.Transaction `json:"transactions"`
}

// GroupByDate buckets transactions by exact date relative to today. Groups
// come out as Today, Yesterday, then every other date newest first;
// transactions with an unusable date land in a final group. Inside a group
// the most recently updated transaction comes first, and transactions
// without an update time keep their input order after the stamped ones.
func GroupByDate(txs []core.Transaction, today core.Date) []DateGroup {
	byDate := make(map[string]*DateGroup)
	var unknown *DateGroup
	for _, t := range txs {
		if t.Date.IsZero() {
			if unknown == nil {
				unknown = &DateGroup{Label: LabelUnknownDate}
			}
			unknown.Transactions = append(unknown.Transactions, t)
			continue
		}
		key := t.Date.String()
		g := byDate[key]
		if g == nil {
			g = &DateGroup{Date: t.Date, Label: dateLabel(t.Date, today)}
			byDate[key] = g
		}
		g.Transactions = append(g.Transactions, t)
	}

	groups := make([]DateGroup, 0, len(byDate)+1)
	for _, g := range byDate {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		ri, rj := groupRank(groups[i].Label), groupRank(groups[j].Label)
		if ri != rj {
			return ri < rj
		}
		return groups[i].Date.After(groups[j].Date.Time)
	})
	if unknown != nil {
		groups = append(groups, *unknown)
	}

	for i := range groups {
		sortByUpdate(groups[i].Transactions)
		groups[i].Total = Sum(groups[i].Transactions)
	}
	return groups
}

func dateLabel(d, today core.Date) string {
	switch {
	case today.IsZero():
		return d.Format(dateLabelLayout)
	case d.Equal(today.Time):
		return LabelToday
	case d.Equal(today.AddDays(-1).Time):
		return LabelYesterday
	default:
		return d.Format(dateLabelLayout)
	}
}

func groupRank(label string) int {
	switch label {
	case LabelToday:
		return 0
	case LabelYesterday:
		return 1
	default:
		return 2
	}
}

// sortByUpdate orders a group latest update first, ties by id.
func sortByUpdate(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].UpdatedAt.Equal(txs[j].UpdatedAt) {
			return txs[i].UpdatedAt.After(txs[j].UpdatedAt)
		}
		return txs[i].ID < txs[j].ID
	})
}

// DueReminders returns the reminders that are due today, soonest first.
func DueReminders(reminders []core.CreditCardReminder, today core.Date) []core.CreditCardReminder {
	var due []core.CreditCardReminder
	for _, r := range reminders {
		if r.IsDue(today) {
			due = append(due, r)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DaysUntilDue(today) < due[j].DaysUntilDue(today)
	})
	return due
}
