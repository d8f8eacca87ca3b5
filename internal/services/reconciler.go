package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventcheckin/internal/domain"
)

type reconcilerService struct {
	members domain.MemberRepository
}

// NewReconciler creates the membership reconciler over the given member store.
func NewReconciler(members domain.MemberRepository) domain.Reconciler {
	return &reconcilerService{members: members}
}

// Reconcile runs once per successful sign-in and makes the member store
// reflect it. First sign-in creates the subject-id record, adopting the role
// of a pre-registration record keyed by the encoded email if one exists, and
// retires that record. Returning sign-in only refreshes last-login and the
// profile fields, never the role. Any store failure fails the sign-in.
func (s *reconcilerService) Reconcile(ctx context.Context, ident *domain.Identity) (*domain.Member, error) {
	if ident == nil || ident.SubjectID == "" {
		return nil, fmt.Errorf("%w: identity has no subject id", domain.ErrAuthFailed)
	}
	email := strings.TrimSpace(strings.ToLower(ident.Email))
	now := time.Now()

	existing, err := s.members.Get(ctx, ident.SubjectID)
	if err == nil {
		return s.refreshExisting(ctx, existing, ident, now)
	}
	if !errors.Is(err, domain.ErrMemberNotFound) {
		return nil, fmt.Errorf("get member: %w", err)
	}

	// First sign-in for this identity: look for a pre-registration by email.
	role := domain.RoleUser
	var preRegistered *domain.Member
	if email != "" {
		pre, err := s.members.Get(ctx, domain.EncodeEmailKey(email))
		switch {
		case err == nil:
			preRegistered = pre
			if pre.Role != "" {
				role = pre.Role
			}
		case errors.Is(err, domain.ErrMemberNotFound):
			// No pre-registration; default role stands.
		default:
			return nil, fmt.Errorf("lookup pre-registration: %w", err)
		}
	}

	member := &domain.Member{
		ID:          ident.SubjectID,
		Email:       email,
		Name:        ident.Name,
		AvatarURL:   ident.AvatarURL,
		Role:        role,
		CreatedAt:   now,
		LastLoginAt: now,
		CheckedIn:   false,
		CheckedInAt: nil,
	}
	if err := s.members.Put(ctx, member); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}

	// The pre-registration record has served its purpose; retire it so the
	// roster keeps one live record per person.
	if preRegistered != nil && preRegistered.ConsumedAt == nil {
		if err := s.members.Patch(ctx, preRegistered.ID, domain.MemberPatch{ConsumedAt: &now}); err != nil {
			return nil, fmt.Errorf("retire pre-registration: %w", err)
		}
	}
	return member, nil
}

// refreshExisting updates a returning signer: last-login always, name and
// avatar only when the provider supplied a non-empty value. Role is never
// touched here.
func (s *reconcilerService) refreshExisting(ctx context.Context, existing *domain.Member, ident *domain.Identity, now time.Time) (*domain.Member, error) {
	patch := domain.MemberPatch{LastLoginAt: &now}
	if name := strings.TrimSpace(ident.Name); name != "" {
		patch.Name = &name
	}
	if ident.AvatarURL != "" {
		avatar := ident.AvatarURL
		patch.AvatarURL = &avatar
	}
	if err := s.members.Patch(ctx, existing.ID, patch); err != nil {
		return nil, fmt.Errorf("update member on sign-in: %w", err)
	}
	existing.LastLoginAt = now
	if patch.Name != nil {
		existing.Name = *patch.Name
	}
	if patch.AvatarURL != nil {
		existing.AvatarURL = *patch.AvatarURL
	}
	return existing, nil
}
