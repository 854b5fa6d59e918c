package http

import (
	"net/http"
	"strings"
	"time"

	applog "budgetbook/internal/log"
	"budgetbook/internal/remote"
	"budgetbook/internal/services"
)

// household returns the household service or errRemoteDisabled.
func (s *Server) household() (*services.HouseholdService, error) {
	if s.app.Household == nil {
		return nil, errRemoteDisabled
	}
	return s.app.Household, nil
}

func (s *Server) handleHousehold(w http.ResponseWriter, r *http.Request) {
	h, err := s.household()
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	view, err := h.View(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	h, err := s.household()
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	role := remote.MemberRole(strings.ToLower(p.Get("role")))
	if role == "" {
		role = remote.RoleMember
	}
	inv, err := h.Invite(r.Context(), p.Get("email"), role)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	respond(w, r, http.StatusCreated, inv, func(b *HTMXResponseBuilder) {
		b.TriggerFormReset().TriggerSuccessNotification("Invite sent to " + inv.Email)
	})
}

func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	h, err := s.household()
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := h.Revoke(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	respond(w, r, http.StatusNoContent, nil, func(b *HTMXResponseBuilder) {
		b.Status(http.StatusOK).TriggerSuccessNotification("Invite revoked")
	})
}

func (s *Server) handleMyInvites(w http.ResponseWriter, r *http.Request) {
	h, err := s.household()
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	invites, err := h.MyInvites(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if invites == nil {
		invites = []remote.HouseholdInvite{}
	}
	writeJSON(w, http.StatusOK, invites)
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	h, err := s.household()
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	member, err := h.Accept(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.refreshNotifications(r)
	if s.app.SyncProcessor != nil {
		if _, err := s.app.SyncProcessor.Pull(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Pull after joining household failed",
				applog.FieldError, err,
				applog.FieldHouseholdID, member.HouseholdID)
		}
	}
	respond(w, r, http.StatusOK, member, func(b *HTMXResponseBuilder) {
		b.Header("HX-Refresh", "true").TriggerSuccessNotification("Joined household")
	})
}

type notificationsView struct {
	Items     []services.Notification `json:"items"`
	UpdatedAt *time.Time              `json:"updatedAt,omitempty"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items, at := s.app.Notifications.Notifications()
	view := notificationsView{Items: items}
	if view.Items == nil {
		view.Items = []services.Notification{}
	}
	if !at.IsZero() {
		view.UpdatedAt = &at
	}
	writeJSON(w, http.StatusOK, view)
}
