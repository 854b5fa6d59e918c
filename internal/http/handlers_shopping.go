package http

import (
	"fmt"
	"net/http"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
)

type shoppingView struct {
	Active  *core.ShoppingTrip  `json:"active,omitempty"`
	History []core.ShoppingTrip `json:"history"`
}

func (s *Server) handleShopping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := shoppingView{History: s.app.Shopping.History(ctx)}
	if trip, ok := s.app.Shopping.Active(ctx); ok {
		view.Active = &trip
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	trip, err := s.app.Shopping.Start(r.Context(), services.TripOptions{
		Name:          p.Get("name"),
		Category:      p.Get("category"),
		Icon:          p.Get("icon"),
		PaymentMethod: p.Get("paymentMethod"),
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	respond(w, r, http.StatusCreated, trip, func(b *HTMXResponseBuilder) {
		b.Trigger(EventShoppingChanged, struct{}{}).TriggerFormReset()
	})
}

func (s *Server) handleAddTripItem(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	price, err := ParseMoneyField(p.Get("price"))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	trip, err := s.app.Shopping.AddItem(r.Context(), r.PathValue("id"), p.Get("name"), price)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, trip, func(b *HTMXResponseBuilder) {
		b.Trigger(EventShoppingChanged, struct{}{}).TriggerFormReset()
	})
}

func (s *Server) handleRemoveTripItem(w http.ResponseWriter, r *http.Request) {
	trip, err := s.app.Shopping.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("item"))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, trip, func(b *HTMXResponseBuilder) {
		b.Trigger(EventShoppingChanged, struct{}{})
	})
}

// handleCompleteTrip turns the trip into one expense. An optional "date"
// field dates it; the default is today.
func (s *Server) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	on, err := ParseDateField(p.Get("date"), s.today())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	trip, tx, err := s.app.Shopping.Complete(ctx, r.PathValue("id"), on)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.events.LogTransactionRecorded(ctx, tx.ID, tx.Description, tx.Amount.Cents, tx.Category)

	cur := s.app.Store.Currency(ctx)
	respond(w, r, http.StatusOK, map[string]any{"trip": trip, "transaction": tx}, func(b *HTMXResponseBuilder) {
		b.Trigger(EventShoppingChanged, struct{}{}).
			TriggerLedgerChanged(on.Year(), on.Month()).
			TriggerOverviewRefresh(on.Year(), on.Month()).
			TriggerSuccessNotification(fmt.Sprintf("Trip saved as %s", cur.Format(tx.Amount)))
	})
}

func (s *Server) handleCancelTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Shopping.Cancel(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	respond(w, r, http.StatusNoContent, nil, func(b *HTMXResponseBuilder) {
		b.Status(http.StatusOK).Trigger(EventShoppingChanged, struct{}{})
	})
}
