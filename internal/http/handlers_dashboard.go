package http

import (
	"context"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"budgetbook/internal/analytics"
	"budgetbook/internal/auth"
	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
)

var templateFuncs = template.FuncMap{
	"money": func(c core.Currency, m core.Money) string { return c.Format(m) },
	"pct": func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64) + "%"
	},
	"monthName": func(m int) string {
		if m < 1 || m > 12 {
			return ""
		}
		return time.Month(m).String()
	},
	"isIncome": func(t core.Transaction) bool { return t.IsIncome() },
}

// categoryRow is one bar of the month-overview chart.
type categoryRow struct {
	Name   string
	Amount core.Money
	Width  int
}

type overviewView struct {
	Currency   core.Currency
	Summary    analytics.Summary
	Rows       []categoryRow
	Groups     []analytics.DateGroup
	Prev, Next MonthParams
}

type dashboardView struct {
	User           auth.User
	Today          string
	Overview       overviewView
	PaymentMethods []string
	Categories     []string
	Notifications  []services.Notification
	Trip           *core.ShoppingTrip
	SyncEnabled    bool
}

// barRows scales category amounts against the largest one. Non-empty bars
// are at least 2% wide so small categories stay visible.
func barRows(cats []analytics.CategoryAmount) []categoryRow {
	var maxCents int64
	for _, c := range cats {
		if c.Amount.Cents > maxCents {
			maxCents = c.Amount.Cents
		}
	}
	rows := make([]categoryRow, 0, len(cats))
	for _, c := range cats {
		width := 0
		if maxCents > 0 && c.Amount.Cents > 0 {
			width = int((c.Amount.Cents*100 + maxCents/2) / maxCents)
			width = max(2, min(width, 100))
		}
		rows = append(rows, categoryRow{Name: c.Category, Amount: c.Amount, Width: width})
	}
	return rows
}

func shiftMonth(p MonthParams, delta int) MonthParams {
	idx := p.Year*12 + (p.Month - 1) + delta
	return MonthParams{Year: idx / 12, Month: idx%12 + 1}
}

func (s *Server) monthFromQuery(r *http.Request) (MonthParams, error) {
	p := ParseMonthParams(r.URL.Query(), s.today())
	return p, p.Validate()
}

func (s *Server) overview(ctx context.Context, p MonthParams) (overviewView, error) {
	sum, err := s.app.Analytics.Summary(ctx, p.Year, p.Month)
	if err != nil {
		return overviewView{}, err
	}
	return overviewView{
		Currency: s.app.Store.Currency(ctx),
		Summary:  sum,
		Rows:     barRows(sum.Categories),
		Groups:   s.app.Analytics.Grouped(ctx, p.Year, p.Month),
		Prev:     shiftMonth(p, -1),
		Next:     shiftMonth(p, 1),
	}, nil
}

// knownCategories is every category seen in the ledger or any budget,
// sorted case-insensitively.
func (s *Server) knownCategories(ctx context.Context) []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToLower(c)] {
			return
		}
		seen[strings.ToLower(c)] = true
		out = append(out, c)
	}
	for _, t := range s.app.Ledger.List(ctx) {
		add(t.Category)
	}
	for _, b := range s.app.Budgets.List(ctx) {
		for _, c := range b.Categories {
			add(c.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldComponent, applog.ComponentTemplate)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.monthFromQuery(r)
	if err != nil {
		p = ParseMonthParams(nil, s.today())
	}
	ov, err := s.overview(ctx, p)
	if err != nil {
		writeError(w, r, applog.OpRender, err)
		return
	}

	user, _ := auth.UserFromContext(ctx)
	notes, _ := s.app.Notifications.Notifications()
	view := dashboardView{
		User:           user,
		Today:          s.today().String(),
		Overview:       ov,
		PaymentMethods: s.app.Store.PaymentMethods(ctx),
		Categories:     s.knownCategories(ctx),
		Notifications:  notes,
		SyncEnabled:    s.app.SyncProcessor != nil,
	}
	if trip, ok := s.app.Shopping.Active(ctx); ok {
		view.Trip = &trip
	}
	s.render(w, r, "dashboard.html", view)
}

// handleMonthOverview renders the month-overview partial swapped in by HTMX.
func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.monthFromQuery(r)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Invalid month parameter",
			applog.FieldYear, p.Year, applog.FieldMonth, p.Month)
		p = ParseMonthParams(nil, s.today())
	}
	ov, err := s.overview(ctx, p)
	if err != nil {
		writeError(w, r, applog.OpRender, err)
		return
	}
	s.render(w, r, "month_overview.html", ov)
}

func (s *Server) handleNotificationsPartial(w http.ResponseWriter, r *http.Request) {
	notes, _ := s.app.Notifications.Notifications()
	s.render(w, r, "notifications.html", notes)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthFromQuery(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	sum, err := s.app.Analytics.Summary(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleCategoryGrid returns the month's spend for every category, zero
// filled. Repeated "category" params choose the list; the default is every
// known category.
func (s *Server) handleCategoryGrid(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthFromQuery(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	cats := r.URL.Query()["category"]
	if len(cats) == 0 {
		cats = s.knownCategories(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":       p.Year,
		"month":      p.Month,
		"categories": s.app.Analytics.Grid(r.Context(), p.Year, p.Month, cats),
	})
}
