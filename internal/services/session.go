package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventcheckin/internal/domain"
)

const defaultFlowTTL = 10 * time.Minute

type sessionService struct {
	gateway     domain.IdentityGateway
	reconciler  domain.Reconciler
	members     domain.MemberRepository
	flows       domain.AuthFlowRepository
	tokenIssuer domain.TokenIssuer
	tokenExpiry time.Duration
	flowTTL     time.Duration
	logger      *slog.Logger
}

// NewSessionService creates the session controller. flowTTL bounds how long a
// redirect sign-in may stay pending; zero means the default of 10 minutes.
func NewSessionService(
	gateway domain.IdentityGateway,
	reconciler domain.Reconciler,
	members domain.MemberRepository,
	flows domain.AuthFlowRepository,
	tokenIssuer domain.TokenIssuer,
	tokenExpiry time.Duration,
	flowTTL time.Duration,
	logger *slog.Logger,
) domain.SessionService {
	if flowTTL <= 0 {
		flowTTL = defaultFlowTTL
	}
	return &sessionService{
		gateway:     gateway,
		reconciler:  reconciler,
		members:     members,
		flows:       flows,
		tokenIssuer: tokenIssuer,
		tokenExpiry: tokenExpiry,
		flowTTL:     flowTTL,
		logger:      logger,
	}
}

func (s *sessionService) BeginSignIn(ctx context.Context) (string, string, error) {
	state := uuid.NewString()
	flow := &domain.AuthFlow{
		State:     state,
		Status:    domain.FlowPending,
		CreatedAt: time.Now(),
	}
	if err := s.flows.Create(ctx, flow); err != nil {
		return "", "", fmt.Errorf("create sign-in flow: %w", err)
	}
	return state, s.gateway.AuthCodeURL(state), nil
}

func (s *sessionService) CompleteSignIn(ctx context.Context, state, code string) (*domain.SignInResult, error) {
	flow, err := s.flows.Get(ctx, state)
	if err != nil {
		if errors.Is(err, domain.ErrFlowNotFound) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("get sign-in flow: %w", err)
	}
	if flow.Status != domain.FlowPending {
		return nil, domain.ErrFlowNotFound
	}
	now := time.Now()
	if now.Sub(flow.CreatedAt) > s.flowTTL {
		if _, err := s.flows.Consume(ctx, state, domain.FlowExpired, now); err != nil {
			return nil, fmt.Errorf("expire sign-in flow: %w", err)
		}
		return nil, domain.ErrFlowExpired
	}

	ident, err := s.gateway.Exchange(ctx, code)
	if err != nil {
		s.failFlow(ctx, state)
		return nil, err
	}
	result, err := s.finishSignIn(ctx, ident)
	if err != nil {
		s.failFlow(ctx, state)
		return nil, err
	}

	// The flow is single-use: if another request already consumed it, this
	// completion loses.
	consumed, err := s.flows.Consume(ctx, state, domain.FlowCompleted, time.Now())
	if err != nil {
		return nil, fmt.Errorf("complete sign-in flow: %w", err)
	}
	if !consumed {
		return nil, domain.ErrFlowNotFound
	}
	s.logger.Info("sign-in completed", "member_id", result.Member.ID, "role", result.Member.Role)
	return result, nil
}

func (s *sessionService) SignInWithIDToken(ctx context.Context, rawToken string) (*domain.SignInResult, error) {
	ident, err := s.gateway.VerifyIDToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	result, err := s.finishSignIn(ctx, ident)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sign-in completed", "member_id", result.Member.ID, "role", result.Member.Role)
	return result, nil
}

// finishSignIn is the common tail of both sign-in paths: reconcile the member
// record, re-read it so the role comes fresh from the store, and issue the
// session token. Sign-in is only reported complete once all of that worked.
func (s *sessionService) finishSignIn(ctx context.Context, ident *domain.Identity) (*domain.SignInResult, error) {
	member, err := s.reconciler.Reconcile(ctx, ident)
	if err != nil {
		return nil, err
	}
	fresh, err := s.members.Get(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("read member after reconciliation: %w", err)
	}
	token, err := s.tokenIssuer.Issue(fresh.ID, fresh.Email, fresh.Role, s.tokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &domain.SignInResult{Token: token, Member: fresh}, nil
}

// failFlow moves the flow to failed. Best effort: the sign-in error itself is
// what gets surfaced to the caller.
func (s *sessionService) failFlow(ctx context.Context, state string) {
	if _, err := s.flows.Consume(ctx, state, domain.FlowFailed, time.Now()); err != nil {
		s.logger.Error("failed to mark sign-in flow failed", "state", state, "err", err)
	}
}

func (s *sessionService) ResumeIfPending(ctx context.Context) error {
	expired, err := s.flows.ExpirePending(ctx, time.Now().Add(-s.flowTTL))
	if err != nil {
		return fmt.Errorf("expire pending sign-in flows: %w", err)
	}
	if expired > 0 {
		s.logger.Info("expired stale sign-in flows from previous run", "count", expired)
	}
	return nil
}

func (s *sessionService) SignOut(ctx context.Context, memberID string) error {
	// Session tokens are stateless; signing out is a lifecycle event, not a
	// store mutation. Validate the member so a bogus token cannot fake it.
	if _, err := s.members.Get(ctx, memberID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.ErrMemberNotFound
		}
		return fmt.Errorf("get member: %w", err)
	}
	s.logger.Info("signed out", "member_id", memberID)
	return nil
}

func (s *sessionService) WhoAmI(ctx context.Context, memberID string) (*domain.Member, error) {
	member, err := s.members.Get(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}
