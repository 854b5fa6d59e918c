package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/remote"
	"budgetbook/internal/services"
)

var errRemoteDisabled = errors.New("remote sync is not configured")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case isValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound), errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTripActive), errors.Is(err, core.ErrTripNotActive),
		errors.Is(err, remote.ErrInviteNotPending), errors.Is(err, remote.ErrInviteAccepted):
		return http.StatusConflict
	case errors.Is(err, services.ErrForbidden), errors.Is(err, remote.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrExportUnavailable), errors.Is(err, errRemoteDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidMonth,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyCategory,
	core.ErrMissingEntry,
	core.ErrInvalidDueDay,
	core.ErrInvalidLeadDays,
	core.ErrInvalidLastFour,
	core.ErrInvalidBudget,
	core.ErrDuplicateCategory,
	core.ErrEmptyItemName,
	core.ErrEmptyTrip,
	core.ErrInvalidCurrency,
	core.ErrEmptyPaymentMethod,
	remote.ErrInvalidRole,
	remote.ErrInvalidEmail,
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with a JSON body for API callers and an HTML fragment
// plus an error toast for HTMX. Server errors are logged and their text is
// not echoed.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		msg = "Something went wrong, please try again"
	}

	if isHTMX(r) {
		ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
		return
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// respond writes v as JSON, or for HTMX an empty body carrying the triggers
// built by htmx.
func respond(w http.ResponseWriter, r *http.Request, status int, v any, htmx func(*HTMXResponseBuilder)) {
	if isHTMX(r) && htmx != nil {
		b := NewHTMXResponse().Status(status)
		htmx(b)
		b.Write(w)
		return
	}
	writeJSON(w, status, v)
}
