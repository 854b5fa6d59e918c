package http

import (
	"net/http"
	"strings"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
)

type settingsView struct {
	Currency       core.Currency `json:"currency"`
	PaymentMethods []string      `json:"paymentMethods"`
	DeviceID       string        `json:"deviceId"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device, err := s.app.Store.DeviceID(ctx)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsView{
		Currency:       s.app.Store.Currency(ctx),
		PaymentMethods: s.app.Store.PaymentMethods(ctx),
		DeviceID:       device,
	})
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	c := core.Currency{
		Code:   strings.ToUpper(p.Get("code")),
		Symbol: p.Get("symbol"),
		Name:   p.Get("name"),
	}
	if err := s.app.Store.SetCurrency(r.Context(), c); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, c, func(b *HTMXResponseBuilder) {
		b.Trigger(EventSettingsChanged, struct{}{}).
			TriggerSuccessNotification("Currency set to " + c.Code)
	})
}

func (s *Server) handleAddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	labels, err := s.app.Store.AddPaymentMethod(r.Context(), p.Get("label"))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, labels, func(b *HTMXResponseBuilder) {
		b.Trigger(EventSettingsChanged, struct{}{}).TriggerFormReset()
	})
}

func (s *Server) handleRemovePaymentMethod(w http.ResponseWriter, r *http.Request) {
	labels, err := s.app.Store.RemovePaymentMethod(r.Context(), r.PathValue("label"))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	respond(w, r, http.StatusOK, labels, func(b *HTMXResponseBuilder) {
		b.Trigger(EventSettingsChanged, struct{}{})
	})
}
