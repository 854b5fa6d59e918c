package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbook/internal/remote"
)

// HouseholdService applies the household flows to the signed-in user.
type HouseholdService struct {
	bridge     HouseholdBridge
	identities *Identities
}

func NewHouseholdService(bridge HouseholdBridge, identities *Identities) *HouseholdService {
	return &HouseholdService{bridge: bridge, identities: identities}
}

// SignIn records the user's profile, resolves their default household and
// makes them the current identity.
func (s *HouseholdService) SignIn(ctx context.Context, userID, email, displayName string) (remote.Identity, error) {
	if err := s.bridge.UpsertProfile(ctx, remote.Profile{ID: userID, Email: email, DisplayName: displayName}); err != nil {
		return remote.Identity{}, err
	}
	h, err := s.bridge.GetOrCreateDefaultHousehold(ctx, userID, email)
	if err != nil {
		return remote.Identity{}, err
	}
	id := remote.Identity{UserID: userID, Email: email, HouseholdID: h.ID}
	s.identities.Set(id)
	slog.InfoContext(ctx, "Signed in", "user_id", userID, "household_id", h.ID)
	return id, nil
}

func (s *HouseholdService) SignOut(ctx context.Context) {
	s.identities.Clear()
	slog.InfoContext(ctx, "Signed out")
}

func (s *HouseholdService) current() (remote.Identity, error) {
	id, ok := s.identities.Current()
	if !ok {
		return remote.Identity{}, ErrNotSignedIn
	}
	return id, nil
}

// HouseholdView is the household page model.
type HouseholdView struct {
	Identity remote.Identity          `json:"identity"`
	Role     remote.MemberRole        `json:"role"`
	Members  []remote.HouseholdMember `json:"members"`
	Invites  []remote.HouseholdInvite `json:"invites"`
}

func (s *HouseholdService) View(ctx context.Context) (HouseholdView, error) {
	id, err := s.current()
	if err != nil {
		return HouseholdView{}, err
	}
	members, err := s.bridge.ListMembers(ctx, id.HouseholdID)
	if err != nil {
		return HouseholdView{}, err
	}
	invites, err := s.bridge.ListInvites(ctx, id.HouseholdID)
	if err != nil {
		return HouseholdView{}, err
	}
	v := HouseholdView{Identity: id, Members: members, Invites: invites}
	for _, m := range members {
		if m.UserID == id.UserID {
			v.Role = m.Role
		}
	}
	return v, nil
}

// requireManager checks that the current user is owner or admin of their
// household.
func (s *HouseholdService) requireManager(ctx context.Context) (remote.Identity, error) {
	v, err := s.View(ctx)
	if err != nil {
		return remote.Identity{}, err
	}
	if v.Role != remote.RoleOwner && v.Role != remote.RoleAdmin {
		return remote.Identity{}, ErrForbidden
	}
	return v.Identity, nil
}

func (s *HouseholdService) Invite(ctx context.Context, email string, role remote.MemberRole) (remote.HouseholdInvite, error) {
	id, err := s.requireManager(ctx)
	if err != nil {
		return remote.HouseholdInvite{}, err
	}
	return s.bridge.CreateInvite(ctx, id.HouseholdID, email, role, id.UserID)
}

func (s *HouseholdService) Revoke(ctx context.Context, inviteID string) error {
	id, err := s.requireManager(ctx)
	if err != nil {
		return err
	}
	return s.bridge.RevokeInvite(ctx, id.HouseholdID, inviteID)
}

// MyInvites lists pending invites addressed to the current user.
func (s *HouseholdService) MyInvites(ctx context.Context) ([]remote.HouseholdInvite, error) {
	id, err := s.current()
	if err != nil {
		return nil, err
	}
	if id.Email == "" {
		return nil, nil
	}
	return s.bridge.ListInvitesForEmail(ctx, id.Email)
}

// Accept joins the invite's household and switches the current identity
// to it.
func (s *HouseholdService) Accept(ctx context.Context, inviteID string) (remote.HouseholdMember, error) {
	id, err := s.current()
	if err != nil {
		return remote.HouseholdMember{}, err
	}
	m, err := s.bridge.AcceptInvite(ctx, inviteID, id.UserID, id.Email)
	if err != nil {
		return remote.HouseholdMember{}, fmt.Errorf("accept invite: %w", err)
	}
	id.HouseholdID = m.HouseholdID
	s.identities.Set(id)
	return m, nil
}
