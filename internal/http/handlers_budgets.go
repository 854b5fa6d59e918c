package http

import (
	"net/http"
	"strconv"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
)

type budgetRequest struct {
	Total      core.Money            `json:"total"`
	Categories []core.CategoryBudget `json:"categories"`
}

func monthFromPath(r *http.Request) (MonthParams, error) {
	y, yerr := strconv.Atoi(r.PathValue("year"))
	m, merr := strconv.Atoi(r.PathValue("month"))
	if yerr != nil || merr != nil {
		return MonthParams{}, core.ErrInvalidMonth
	}
	p := MonthParams{Year: y, Month: m}
	return p, p.Validate()
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Budgets.List(r.Context()))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	p, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	b, ok := s.app.Budgets.Get(r.Context(), p.Year, p.Month)
	if !ok {
		writeError(w, r, applog.OpRead, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleSaveBudget replaces the month's budget with the JSON body and makes
// it the current one.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	p, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req budgetRequest
	if err := NewRequestBodyParser(r).DecodeJSON(&req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	saved, err := s.app.Budgets.Save(r.Context(), core.MonthlyBudget{
		Year:       p.Year,
		Month:      p.Month,
		Total:      req.Total,
		Categories: req.Categories,
	})
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, saved, func(b *HTMXResponseBuilder) {
		b.TriggerBudgetChanged(p.Year, p.Month).
			TriggerOverviewRefresh(p.Year, p.Month).
			TriggerSuccessNotification("Budget saved")
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	p, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.app.Budgets.Delete(r.Context(), p.Year, p.Month); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	respond(w, r, http.StatusNoContent, nil, func(b *HTMXResponseBuilder) {
		b.Status(http.StatusOK).TriggerBudgetChanged(p.Year, p.Month)
	})
}

func (s *Server) handleCurrentBudget(w http.ResponseWriter, r *http.Request) {
	b, ok := s.app.Budgets.Current(r.Context())
	if !ok {
		writeError(w, r, applog.OpRead, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleSetCurrentBudget points the dashboard at another saved month.
func (s *Server) handleSetCurrentBudget(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	year, err := parser.GetInt("year", 0)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	month, err := parser.GetInt("month", 0)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	ctx := r.Context()
	if _, ok := s.app.Budgets.Get(ctx, year, month); !ok {
		writeError(w, r, applog.OpUpdate, core.ErrNotFound)
		return
	}
	if err := s.app.Budgets.SetCurrent(ctx, year, month); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, core.BudgetPointer{Year: year, Month: month}, func(b *HTMXResponseBuilder) {
		b.TriggerBudgetChanged(year, month)
	})
}
