package http

import (
	"fmt"
	"net/http"
	"strings"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
)

// draftFromRequest builds a transaction draft from form or JSON fields:
// type (income|expense), amount, description, category, icon, date,
// paymentMethod.
func (s *Server) draftFromRequest(r *http.Request) (core.TransactionDraft, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.TransactionDraft{}, err
	}

	amount, err := ParseMoneyField(p.Get("amount"))
	if err != nil {
		return core.TransactionDraft{}, err
	}
	var entry core.Entry
	switch strings.ToLower(p.Get("type")) {
	case "income":
		entry = core.Income{Amount: amount}
	case "expense", "":
		entry = core.Expense{Amount: amount}
	default:
		return core.TransactionDraft{}, fmt.Errorf("type %q: %w", p.Get("type"), core.ErrMissingEntry)
	}

	date, err := ParseDateField(p.Get("date"), s.today())
	if err != nil {
		return core.TransactionDraft{}, err
	}
	return core.TransactionDraft{
		Entry:         entry,
		Description:   p.Get("description"),
		Category:      p.Get("category"),
		Icon:          p.Get("icon"),
		Date:          date,
		PaymentMethod: p.Get("paymentMethod"),
	}, nil
}

// handleListTransactions returns a month's transactions grouped by day.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthFromQuery(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":   p.Year,
		"month":  p.Month,
		"groups": s.app.Analytics.Grouped(r.Context(), p.Year, p.Month),
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.app.Ledger.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draft, err := s.draftFromRequest(r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx, err := s.app.Ledger.Add(ctx, draft)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.events.LogTransactionRecorded(ctx, tx.ID, tx.Description, tx.Amount.Cents, tx.Category)

	cur := s.app.Store.Currency(ctx)
	respond(w, r, http.StatusCreated, tx, func(b *HTMXResponseBuilder) {
		b.TriggerLedgerChanged(tx.Date.Year(), tx.Date.Month()).
			TriggerOverviewRefresh(tx.Date.Year(), tx.Date.Month()).
			TriggerFormReset().
			TriggerSuccessNotification(fmt.Sprintf("Saved %s: %s", tx.Description, cur.Format(tx.Amount)))
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	before, err := s.app.Ledger.Get(ctx, id)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	draft, err := s.draftFromRequest(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tx, err := s.app.Ledger.Update(ctx, id, draft)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, tx, func(b *HTMXResponseBuilder) {
		// A date change can move the row between months; refresh both.
		b.TriggerLedgerChanged(before.Date.Year(), before.Date.Month()).
			TriggerOverviewRefresh(tx.Date.Year(), tx.Date.Month()).
			TriggerSuccessNotification("Transaction updated")
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	tx, err := s.app.Ledger.Get(ctx, id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.app.Ledger.Delete(ctx, id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	respond(w, r, http.StatusNoContent, nil, func(b *HTMXResponseBuilder) {
		b.Status(http.StatusOK).
			TriggerLedgerChanged(tx.Date.Year(), tx.Date.Month()).
			TriggerOverviewRefresh(tx.Date.Year(), tx.Date.Month()).
			TriggerSuccessNotification("Transaction deleted")
	})
}
