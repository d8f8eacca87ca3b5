package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"eventcheckin/internal/domain"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type rosterService struct {
	members      domain.MemberRepository
	emailService domain.EmailService
	logger       *slog.Logger
}

// NewRosterService creates the roster service. emailService may be nil, in
// which case pre-registration sends no invitation.
func NewRosterService(members domain.MemberRepository, emailService domain.EmailService, logger *slog.Logger) domain.RosterService {
	return &rosterService{members: members, emailService: emailService, logger: logger}
}

func (s *rosterService) ListAll(ctx context.Context) ([]*domain.Member, error) {
	members, err := s.members.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	// Hide retired pre-registration records: their role already lives on the
	// subject-id record, so showing both would double-count one person.
	live := members[:0]
	for _, m := range members {
		if m.ConsumedAt == nil {
			live = append(live, m)
		}
	}
	return live, nil
}

func (s *rosterService) CheckIn(ctx context.Context, id string) (*domain.Member, error) {
	member, err := s.members.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	now := time.Now()
	checkedIn := true
	if err := s.members.Patch(ctx, id, domain.MemberPatch{CheckedIn: &checkedIn, CheckedInAt: &now}); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("check in member: %w", err)
	}
	member.CheckedIn = true
	member.CheckedInAt = &now
	s.logger.Info("member checked in", "member_id", id)
	return member, nil
}

func (s *rosterService) UpdateRole(ctx context.Context, id, role string) (*domain.Member, error) {
	role = strings.TrimSpace(strings.ToLower(role))
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}
	member, err := s.members.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	if err := s.members.Patch(ctx, id, domain.MemberPatch{Role: &role}); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	member.Role = role
	s.logger.Info("member role updated", "member_id", id, "role", role)
	return member, nil
}

func (s *rosterService) PreRegister(ctx context.Context, email, name, role string) (*domain.Member, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return nil, domain.ErrInvalidEmail
	}
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	member := &domain.Member{
		ID:              domain.EncodeEmailKey(email),
		Email:           email,
		Name:            strings.TrimSpace(name),
		Role:            role,
		CreatedAt:       time.Now(),
		CheckedIn:       false,
		CheckedInAt:     nil,
		IsPreRegistered: true,
	}
	if err := s.members.Put(ctx, member); err != nil {
		return nil, fmt.Errorf("create pre-registration: %w", err)
	}
	if s.emailService != nil {
		data := &domain.InvitationEmailData{Email: email, Name: member.Name, Role: role}
		if err := s.emailService.SendInvitation(ctx, data); err != nil {
			// The record is written; a failed invitation email should not
			// undo the pre-registration.
			s.logger.Error("failed to send invitation email", "email", email, "err", err)
		}
	}
	s.logger.Info("member pre-registered", "member_id", member.ID, "role", role)
	return member, nil
}

// Filter returns the members whose name, email, or id contains query,
// case-insensitively. An empty query returns the input unchanged; order is
// always preserved.
func Filter(members []*domain.Member, query string) []*domain.Member {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return members
	}
	var matched []*domain.Member
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.Name), query) ||
			strings.Contains(strings.ToLower(m.Email), query) ||
			strings.Contains(strings.ToLower(m.ID), query) {
			matched = append(matched, m)
		}
	}
	return matched
}

// Stats computes the dashboard counters. The rate is rounded to the nearest
// integer percent and is zero for an empty roster.
func Stats(members []*domain.Member) domain.RosterStats {
	stats := domain.RosterStats{Total: len(members)}
	for _, m := range members {
		if m.CheckedIn {
			stats.CheckedIn++
		}
	}
	stats.Pending = stats.Total - stats.CheckedIn
	if stats.Total > 0 {
		stats.CheckInRatePercent = int(math.Round(float64(stats.CheckedIn) / float64(stats.Total) * 100))
	}
	return stats
}
